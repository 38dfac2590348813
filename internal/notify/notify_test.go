package notify_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hive2hive/h2h/internal/location"
	"github.com/hive2hive/h2h/internal/network/data"
	"github.com/hive2hive/h2h/internal/network/messenger/loopmessenger"
	"github.com/hive2hive/h2h/internal/network/overlay/memoverlay"
	"github.com/hive2hive/h2h/internal/notify"
)

// TestNotifyPrunesPeerThatDeniesMessages exercises spec.md §8 scenario 5:
// user A has three logged-in peers, one of which denies every message; a
// single Notify call should still deliver to the other two and prune the
// unfriendly one from A's Locations.
func TestNotifyPrunesPeerThatDeniesMessages(t *testing.T) {
	overlay := memoverlay.New()
	registry := loopmessenger.NewRegistry()

	senderMessenger := loopmessenger.New(registry, "sender")
	senderDM := data.NewDataManager(overlay, senderMessenger, logrus.StandardLogger())

	locs := location.New(senderDM)

	peers := []string{"p0", "p1", "p2"}
	for _, addr := range peers {
		m := loopmessenger.New(registry, addr)
		defer m.Close()
		if addr == "p1" {
			m.Listen("test-kind", func(ctx context.Context, msg data.DirectMessage) data.AcceptanceReply {
				return data.Failure
			})
		} else {
			m.Listen("test-kind", func(ctx context.Context, msg data.DirectMessage) data.AcceptanceReply {
				return data.Accepted
			})
		}
		require.NoError(t, locs.Login(context.Background(), "A", addr))
	}

	process := notify.New(senderDM, locs, "sender")
	outcome, err := process.Notify(context.Background(), []string{"A"},
		func(recipient string) data.DirectMessage {
			return data.DirectMessage{Kind: "test-kind", Payload: []byte("hello")}
		}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.Sent)
	assert.Equal(t, 2, outcome.Arrived)
	assert.Empty(t, outcome.Exhausted)

	after, err := locs.Get(context.Background(), "A")
	require.NoError(t, err)
	assert.Len(t, after.Entries, 2)
	for _, e := range after.Entries {
		assert.NotEqual(t, "p1", e.PeerAddress)
	}
}

// TestNotifyHandlesSelfRecipientLocally exercises the local-handler path:
// a recipient equal to the notifier's own user id is delivered in-process
// without consulting Locations' peer list for that delivery.
func TestNotifyHandlesSelfRecipientLocally(t *testing.T) {
	overlay := memoverlay.New()
	registry := loopmessenger.NewRegistry()
	senderMessenger := loopmessenger.New(registry, "self")
	senderDM := data.NewDataManager(overlay, senderMessenger, logrus.StandardLogger())
	locs := location.New(senderDM)

	process := notify.New(senderDM, locs, "self")

	var handled bool
	outcome, err := process.Notify(context.Background(), []string{"self"},
		func(recipient string) data.DirectMessage {
			return data.DirectMessage{Kind: "test-kind", Payload: []byte("hi")}
		},
		func(ctx context.Context, recipient string, msg data.DirectMessage) {
			handled = true
		})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Empty(t, outcome.Exhausted)
}

package loopmessenger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hive2hive/h2h/internal/network/data"
	"github.com/hive2hive/h2h/internal/network/messenger/loopmessenger"
)

func TestSendDirectDeliversToListeningPeer(t *testing.T) {
	registry := loopmessenger.NewRegistry()
	alice := loopmessenger.New(registry, "alice")
	bob := loopmessenger.New(registry, "bob")
	defer alice.Close()
	defer bob.Close()

	var received data.DirectMessage
	bob.Listen("ping", func(ctx context.Context, msg data.DirectMessage) data.AcceptanceReply {
		received = msg
		return data.Accepted
	})

	reply, err := alice.SendDirect(context.Background(), "bob", data.DirectMessage{Kind: "ping", Payload: []byte("hi")})
	require.NoError(t, err)
	assert.Equal(t, data.Accepted, reply)
	assert.Equal(t, "alice", received.SenderAddress)
	assert.Equal(t, "hi", string(received.Payload))
}

func TestSendDirectToUnregisteredAddressFails(t *testing.T) {
	registry := loopmessenger.NewRegistry()
	alice := loopmessenger.New(registry, "alice")
	defer alice.Close()

	_, err := alice.SendDirect(context.Background(), "ghost", data.DirectMessage{Kind: "ping"})
	var unreachable *loopmessenger.UnreachableError
	require.ErrorAs(t, err, &unreachable)
}

func TestSendDirectWithoutMatchingHandlerReturnsFutureFailure(t *testing.T) {
	registry := loopmessenger.NewRegistry()
	alice := loopmessenger.New(registry, "alice")
	bob := loopmessenger.New(registry, "bob")
	defer alice.Close()
	defer bob.Close()

	reply, err := alice.SendDirect(context.Background(), "bob", data.DirectMessage{Kind: "unhandled-kind"})
	require.NoError(t, err)
	assert.Equal(t, data.FutureFailure, reply)
}

func TestCloseUnregistersFromRegistry(t *testing.T) {
	registry := loopmessenger.NewRegistry()
	alice := loopmessenger.New(registry, "alice")
	bob := loopmessenger.New(registry, "bob")
	defer bob.Close()

	require.NoError(t, alice.Close())

	_, err := bob.SendDirect(context.Background(), "alice", data.DirectMessage{Kind: "ping"})
	var unreachable *loopmessenger.UnreachableError
	require.ErrorAs(t, err, &unreachable)
}

package webrtcmessenger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hive2hive/h2h/internal/network/data"
	"github.com/hive2hive/h2h/internal/network/messenger/webrtcmessenger"
)

// pairSignaler wires two Messengers' HandleSignal calls directly to each
// other, standing in for the out-of-band signaling channel (e.g. the
// tracker connection) a real deployment would use.
type pairSignaler struct {
	peer func(ctx context.Context, from string, sdp []byte) error
}

func (s *pairSignaler) SendSignal(ctx context.Context, peerAddress string, sdp []byte) error {
	return s.peer(ctx, peerAddress, sdp)
}

// TestSendDirectDeliversAndReturnsReply establishes a loopback WebRTC
// data-channel connection between two in-process Messengers and asserts
// a direct message sent by one is observed and accepted by the other.
func TestSendDirectDeliversAndReturnsReply(t *testing.T) {
	aliceSig := &pairSignaler{}
	bobSig := &pairSignaler{}

	alice := webrtcmessenger.New("alice", aliceSig, nil)
	bob := webrtcmessenger.New("bob", bobSig, nil)

	aliceSig.peer = func(ctx context.Context, _ string, sdp []byte) error {
		return bob.HandleSignal(ctx, "alice", sdp)
	}
	bobSig.peer = func(ctx context.Context, _ string, sdp []byte) error {
		return alice.HandleSignal(ctx, "bob", sdp)
	}

	var received data.DirectMessage
	done := make(chan struct{}, 1)
	bob.Listen("ping", func(ctx context.Context, msg data.DirectMessage) data.AcceptanceReply {
		received = msg
		done <- struct{}{}
		return data.Accepted
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reply, err := alice.SendDirect(ctx, "bob", data.DirectMessage{Kind: "ping", Payload: []byte("hello bob")})
	require.NoError(t, err)
	require.Equal(t, data.Accepted, reply)

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("timed out waiting for bob to observe the message")
	}
	require.Equal(t, "hello bob", string(received.Payload))
	require.Equal(t, "alice", received.SenderAddress)

	require.NoError(t, alice.Close())
	require.NoError(t, bob.Close())
}

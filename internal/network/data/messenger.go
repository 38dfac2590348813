package data

import "context"

// AcceptanceReply is the recipient's answer to a direct message
// (spec.md §6).
type AcceptanceReply int

const (
	Accepted AcceptanceReply = iota
	Failure
	FutureFailure
)

func (r AcceptanceReply) String() string {
	switch r {
	case Accepted:
		return "OK"
	case Failure:
		return "FAILURE"
	case FutureFailure:
		return "FUTURE_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// DirectMessage is a peer-to-peer message carrying a sender address and an
// opaque, kind-tagged payload (gob-encoded by the caller).
type DirectMessage struct {
	SenderAddress string
	Kind          string
	Payload       []byte
}

// MessageHandler processes an inbound DirectMessage and returns the
// AcceptanceReply to send back to the sender.
type MessageHandler func(ctx context.Context, msg DirectMessage) AcceptanceReply

// Messenger is the direct peer-messaging contract of spec.md §4.1/§6.
type Messenger interface {
	// SendDirect delivers msg to peerAddress and returns its reply.
	SendDirect(ctx context.Context, peerAddress string, msg DirectMessage) (AcceptanceReply, error)
	// Listen registers the handler invoked for inbound messages of the
	// given kind. Only one handler per kind is supported; registering
	// again replaces the previous handler.
	Listen(kind string, handler MessageHandler)
	// LocalAddress is this messenger's own address, suitable for storing
	// in Locations.
	LocalAddress() string
	Close() error
}

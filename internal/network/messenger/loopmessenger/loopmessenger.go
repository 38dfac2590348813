// Package loopmessenger is an in-process reference implementation of
// data.Messenger, grounded on the teacher's internal/protocol message
// dispatch (kind-keyed handler map) but routed through a shared registry
// instead of a TCP socket. It is used by scenario tests and single-process
// multi-node demos where every "peer address" is just a registry key.
package loopmessenger

import (
	"context"
	"sync"

	"github.com/hive2hive/h2h/internal/network/data"
)

// Registry is the shared switchboard every loopmessenger registers with.
// A single Registry stands in for the DHT's direct-messaging layer within
// one process.
type Registry struct {
	mu    sync.Mutex
	peers map[string]*Messenger
}

func NewRegistry() *Registry {
	return &Registry{peers: make(map[string]*Messenger)}
}

func (r *Registry) register(m *Messenger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[m.address] = m
}

func (r *Registry) unregister(address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, address)
}

func (r *Registry) lookup(address string) (*Messenger, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.peers[address]
	return m, ok
}

// Messenger is one node's endpoint on a Registry.
type Messenger struct {
	address  string
	registry *Registry

	mu       sync.RWMutex
	handlers map[string]data.MessageHandler
}

// New creates a messenger bound to address and joins it to registry.
// address must be unique within the registry.
func New(registry *Registry, address string) *Messenger {
	m := &Messenger{address: address, registry: registry, handlers: make(map[string]data.MessageHandler)}
	registry.register(m)
	return m
}

func (m *Messenger) SendDirect(ctx context.Context, peerAddress string, msg data.DirectMessage) (data.AcceptanceReply, error) {
	select {
	case <-ctx.Done():
		return data.Failure, ctx.Err()
	default:
	}

	peer, ok := m.registry.lookup(peerAddress)
	if !ok {
		return data.Failure, &UnreachableError{Address: peerAddress}
	}

	peer.mu.RLock()
	handler, ok := peer.handlers[msg.Kind]
	peer.mu.RUnlock()
	if !ok {
		return data.FutureFailure, nil
	}

	if msg.SenderAddress == "" {
		msg.SenderAddress = m.address
	}
	return handler(ctx, msg), nil
}

func (m *Messenger) Listen(kind string, handler data.MessageHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[kind] = handler
}

func (m *Messenger) LocalAddress() string { return m.address }

func (m *Messenger) Close() error {
	m.registry.unregister(m.address)
	return nil
}

// UnreachableError is returned when no messenger is registered at the
// requested address, modelling a peer that dropped off the network
// (spec.md §5 "unfriendly logout" scenario).
type UnreachableError struct {
	Address string
}

func (e *UnreachableError) Error() string {
	return "no peer registered at address " + e.Address
}

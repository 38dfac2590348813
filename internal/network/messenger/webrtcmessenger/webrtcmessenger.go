// Package webrtcmessenger implements data.Messenger over WebRTC data
// channels, grounded on the teacher's internal/transport/webrtc package
// (PeerConnection + DataChannel setup, offer/answer exchange through an
// injected signaler). Unlike the teacher's fire-and-forget channel, each
// DirectMessage here carries a correlation id so SendDirect can wait for
// the recipient's AcceptanceReply on the same channel.
package webrtcmessenger

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"

	"github.com/hive2hive/h2h/internal/network/data"
)

// Signaler exchanges SDP offers/answers out-of-band (e.g. over the
// tracker connection, or any other side channel already established
// between peers). It mirrors the teacher's transport.Signaler contract.
type Signaler interface {
	SendSignal(ctx context.Context, peerAddress string, sdp []byte) error
}

// envelope frames one request or reply crossing a data channel.
type envelope struct {
	ID      string
	IsReply bool
	Msg     data.DirectMessage
	Reply   data.AcceptanceReply
}

type pendingCall struct {
	resultCh chan data.AcceptanceReply
}

type peerConn struct {
	pc          *webrtc.PeerConnection
	dc          *webrtc.DataChannel
	isInitiator bool
	mu          sync.Mutex
	open        chan struct{}
	openedOnce  sync.Once
}

// Messenger implements data.Messenger over WebRTC data channels.
type Messenger struct {
	address     string
	config      webrtc.Configuration
	signaler    Signaler
	mu          sync.Mutex
	peers       map[string]*peerConn
	handlers    map[string]data.MessageHandler
	pending     map[string]pendingCall
	pendingMu   sync.Mutex
}

// New creates a Messenger that signals through signaler and connects via
// the given STUN server URLs.
func New(address string, signaler Signaler, stunServers []string) *Messenger {
	iceServers := make([]webrtc.ICEServer, 0, len(stunServers))
	for _, s := range stunServers {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: []string{s}})
	}
	return &Messenger{
		address:  address,
		config:   webrtc.Configuration{ICEServers: iceServers},
		signaler: signaler,
		peers:    make(map[string]*peerConn),
		handlers: make(map[string]data.MessageHandler),
		pending:  make(map[string]pendingCall),
	}
}

func (m *Messenger) LocalAddress() string { return m.address }

func (m *Messenger) Listen(kind string, handler data.MessageHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[kind] = handler
}

// SendDirect opens (or reuses) a data channel to peerAddress, sends msg,
// and blocks until the peer's reply envelope arrives or ctx is done.
func (m *Messenger) SendDirect(ctx context.Context, peerAddress string, msg data.DirectMessage) (data.AcceptanceReply, error) {
	conn, err := m.connectionTo(ctx, peerAddress)
	if err != nil {
		return data.Failure, err
	}

	id := uuid.NewString()
	resultCh := make(chan data.AcceptanceReply, 1)
	m.pendingMu.Lock()
	m.pending[id] = pendingCall{resultCh: resultCh}
	m.pendingMu.Unlock()
	defer func() {
		m.pendingMu.Lock()
		delete(m.pending, id)
		m.pendingMu.Unlock()
	}()

	msg.SenderAddress = m.address
	if err := sendEnvelope(conn, envelope{ID: id, Msg: msg}); err != nil {
		return data.Failure, err
	}

	select {
	case reply := <-resultCh:
		return reply, nil
	case <-ctx.Done():
		return data.FutureFailure, ctx.Err()
	}
}

func (m *Messenger) connectionTo(ctx context.Context, peerAddress string) (*peerConn, error) {
	m.mu.Lock()
	conn, ok := m.peers[peerAddress]
	m.mu.Unlock()
	if ok {
		return conn, nil
	}

	pc, err := webrtc.NewPeerConnection(m.config)
	if err != nil {
		return nil, fmt.Errorf("create peer connection to %s: %w", peerAddress, err)
	}
	conn = &peerConn{pc: pc, isInitiator: true, open: make(chan struct{})}
	m.registerConn(peerAddress, conn)

	ordered := true
	dc, err := pc.CreateDataChannel("h2h", &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, fmt.Errorf("create data channel to %s: %w", peerAddress, err)
	}
	m.setupDataChannel(conn, dc)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	if err := m.signaler.SendSignal(ctx, peerAddress, []byte(offer.SDP)); err != nil {
		return nil, fmt.Errorf("send offer to %s: %w", peerAddress, err)
	}

	select {
	case <-conn.open:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return conn, nil
}

// HandleSignal processes an inbound offer or answer from peerAddress,
// completing the handshake begun by connectionTo or starting a fresh one
// when peerAddress dials first.
func (m *Messenger) HandleSignal(ctx context.Context, peerAddress string, sdp []byte) error {
	m.mu.Lock()
	conn, ok := m.peers[peerAddress]
	m.mu.Unlock()

	if !ok {
		pc, err := webrtc.NewPeerConnection(m.config)
		if err != nil {
			return fmt.Errorf("create peer connection from %s: %w", peerAddress, err)
		}
		conn = &peerConn{pc: pc, isInitiator: false, open: make(chan struct{})}
		m.registerConn(peerAddress, conn)
		pc.OnDataChannel(func(dc *webrtc.DataChannel) { m.setupDataChannel(conn, dc) })
	}

	desc := webrtc.SessionDescription{SDP: string(sdp)}
	if conn.isInitiator {
		desc.Type = webrtc.SDPTypeAnswer
	} else {
		desc.Type = webrtc.SDPTypeOffer
	}
	if err := conn.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description from %s: %w", peerAddress, err)
	}

	if !conn.isInitiator {
		answer, err := conn.pc.CreateAnswer(nil)
		if err != nil {
			return fmt.Errorf("create answer for %s: %w", peerAddress, err)
		}
		if err := conn.pc.SetLocalDescription(answer); err != nil {
			return fmt.Errorf("set local description for answer: %w", err)
		}
		if err := m.signaler.SendSignal(ctx, peerAddress, []byte(answer.SDP)); err != nil {
			return fmt.Errorf("send answer to %s: %w", peerAddress, err)
		}
	}
	return nil
}

func (m *Messenger) registerConn(peerAddress string, conn *peerConn) {
	m.mu.Lock()
	m.peers[peerAddress] = conn
	m.mu.Unlock()
}

func (m *Messenger) setupDataChannel(conn *peerConn, dc *webrtc.DataChannel) {
	conn.mu.Lock()
	conn.dc = dc
	conn.mu.Unlock()

	dc.OnOpen(func() { conn.openedOnce.Do(func() { close(conn.open) }) })

	dc.OnMessage(func(raw webrtc.DataChannelMessage) {
		var env envelope
		if err := gob.NewDecoder(bytes.NewReader(raw.Data)).Decode(&env); err != nil {
			return
		}
		if env.IsReply {
			m.pendingMu.Lock()
			call, ok := m.pending[env.ID]
			m.pendingMu.Unlock()
			if ok {
				call.resultCh <- env.Reply
			}
			return
		}
		m.dispatchInbound(conn, env)
	})
}

func (m *Messenger) dispatchInbound(conn *peerConn, env envelope) {
	m.mu.Lock()
	handler, ok := m.handlers[env.Msg.Kind]
	m.mu.Unlock()

	reply := data.Failure
	if ok {
		reply = handler(context.Background(), env.Msg)
	}
	_ = sendEnvelope(conn, envelope{ID: env.ID, IsReply: true, Reply: reply})
}

func sendEnvelope(conn *peerConn, env envelope) error {
	conn.mu.Lock()
	dc := conn.dc
	conn.mu.Unlock()
	if dc == nil {
		return fmt.Errorf("data channel not ready")
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return dc.Send(buf.Bytes())
}

func (m *Messenger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conn := range m.peers {
		if conn.dc != nil {
			_ = conn.dc.Close()
		}
		_ = conn.pc.Close()
	}
	m.peers = make(map[string]*peerConn)
	return nil
}

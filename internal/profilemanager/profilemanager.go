// Package profilemanager serializes concurrent get/modify/put cycles on
// a single user's encrypted profile object, grounded directly on
// org.hive2hive.core.network.data.UserProfileManager: two FIFO queues
// (read-only, modify) drained by one worker goroutine, piggy-backed
// reads, a bounded modification window, and an atomic put-slot claim
// that resolves the source's pid-equality race (SPEC_FULL.md §6).
package profilemanager

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hive2hive/h2h/internal/config"
	"github.com/hive2hive/h2h/internal/h2hconst"
	"github.com/hive2hive/h2h/internal/h2herrors"
	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/network/data"
	"github.com/hive2hive/h2h/internal/security"
)

// PID identifies one caller's get/modify cycle, so the manager can tell
// its own modifier apart from any other caller racing to put.
type PID string

// NewPID returns a fresh, unique PID for one get-then-maybe-put cycle.
func NewPID() PID { return PID(uuid.NewString()) }

type queueEntry struct {
	pid          PID
	intendsToPut bool
	resultCh     chan profileResult
}

type profileResult struct {
	profile *model.UserProfile
	err     error
}

type readyMsg struct {
	pid      PID
	profile  *model.UserProfile
	resultCh chan error
}

type slotState int

const (
	slotOpen slotState = iota
	slotClaimed
	slotExpired
)

type putSlot struct {
	pid   PID
	state slotState
}

const sliceLength = 100 * time.Millisecond

// Manager owns the serialized queues for exactly one user's profile.
type Manager struct {
	dm    *data.DataManager
	creds security.UserCredentials
	cfg   config.Configuration
	log   *logrus.Entry

	mu            sync.Mutex
	cond          *sync.Cond
	readOnly      []*queueEntry
	modify        []*queueEntry
	closed        bool
	activeReadyCh chan readyMsg

	slot atomic.Value // putSlot

	protectionOnce sync.Mutex
	protectionKey  *security.KeyPair // memoized (spec.md §4.4 "Caching")

	stoppedCh chan struct{}
}

// New builds a manager and starts its worker goroutine.
func New(dm *data.DataManager, creds security.UserCredentials, cfg config.Configuration, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.New()
	}
	m := &Manager{
		dm:        dm,
		creds:     creds,
		cfg:       cfg,
		log:       log.WithField("component", "profile-manager").WithField("user", creds.UserID),
		stoppedCh: make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.mu)
	m.slot.Store(putSlot{})
	go m.run()
	return m
}

// GetUserProfile enqueues a get request and blocks until the worker
// publishes a value or an error. intendsToPut marks the caller as a
// modifier, entering the modify queue instead of the read-only queue.
func (m *Manager) GetUserProfile(ctx context.Context, pid PID, intendsToPut bool) (*model.UserProfile, error) {
	entry := &queueEntry{pid: pid, intendsToPut: intendsToPut, resultCh: make(chan profileResult, 1)}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, h2herrors.NewNoSession("profile manager stopped")
	}
	if intendsToPut {
		m.modify = append(m.modify, entry)
	} else {
		m.readOnly = append(m.readOnly, entry)
	}
	m.cond.Signal()
	m.mu.Unlock()

	select {
	case res := <-entry.resultCh:
		return res.profile, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReadyToPut hands the modified profile back to the manager. It fails
// immediately with PutFailed if pid is not the currently active modifier
// or its modification window has already elapsed.
func (m *Manager) ReadyToPut(ctx context.Context, pid PID, profile *model.UserProfile) error {
	if err := m.claimPutSlot(pid); err != nil {
		return err
	}

	m.mu.Lock()
	ch := m.activeReadyCh
	m.mu.Unlock()
	if ch == nil {
		return h2herrors.NewPutFailed("Not allowed to put anymore")
	}

	resultCh := make(chan error, 1)
	select {
	case ch <- readyMsg{pid: pid, profile: profile, resultCh: resultCh}:
	default:
		return h2herrors.NewPutFailed("Not allowed to put anymore")
	}

	select {
	case err := <-resultCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProtectionKey returns the user's cached protection keypair, fetching
// and decrypting the profile once if it has not been seen yet.
func (m *Manager) ProtectionKey(ctx context.Context) (security.KeyPair, error) {
	m.protectionOnce.Lock()
	defer m.protectionOnce.Unlock()
	if m.protectionKey != nil {
		return *m.protectionKey, nil
	}
	profile, err := m.GetUserProfile(ctx, NewPID(), false)
	if err != nil {
		return security.KeyPair{}, err
	}
	m.protectionKey = &profile.ProtectionKey
	return *m.protectionKey, nil
}

// Close stops the worker. Queued callers still waiting receive NoSession.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()
	<-m.stoppedCh
}

func (m *Manager) claimPutSlot(pid PID) error {
	for {
		old := m.slot.Load().(putSlot)
		if old.pid != pid {
			return h2herrors.NewPutFailed("Not allowed to put anymore")
		}
		switch old.state {
		case slotExpired:
			return h2herrors.NewPutFailed("Too long modification. Only 1000ms are allowed.")
		case slotClaimed:
			return h2herrors.NewPutFailed("Not allowed to put anymore")
		}
		next := putSlot{pid: pid, state: slotClaimed}
		if m.slot.CompareAndSwap(old, next) {
			return nil
		}
	}
}

// expireSlot flips an open slot belonging to pid to expired, returning
// false if the caller already claimed it first (no override in that case).
func (m *Manager) expireSlot(pid PID) bool {
	for {
		old := m.slot.Load().(putSlot)
		if old.pid != pid || old.state != slotOpen {
			return false
		}
		next := putSlot{pid: pid, state: slotExpired}
		if m.slot.CompareAndSwap(old, next) {
			return true
		}
	}
}

func (m *Manager) run() {
	defer close(m.stoppedCh)
	for {
		m.mu.Lock()
		for len(m.modify) == 0 && len(m.readOnly) == 0 && !m.closed {
			m.cond.Wait()
		}
		if m.closed && len(m.modify) == 0 && len(m.readOnly) == 0 {
			m.mu.Unlock()
			return
		}

		var modifier *queueEntry
		var readers []*queueEntry
		if len(m.modify) > 0 {
			modifier = m.modify[0]
			m.modify = m.modify[1:]
		}
		readers = m.readOnly
		m.readOnly = nil
		m.mu.Unlock()

		ctx := context.Background()
		profile, err := m.fetchAndDecrypt(ctx)

		// Readers that queued while the fetch was in flight share its result.
		m.mu.Lock()
		readers = append(readers, m.readOnly...)
		m.readOnly = nil
		m.mu.Unlock()

		if modifier != nil {
			modifier.resultCh <- profileResult{profile: cloneOrNil(profile), err: err}
		}
		for _, r := range readers {
			r.resultCh <- profileResult{profile: cloneOrNil(profile), err: err}
		}

		if err != nil || modifier == nil {
			continue
		}
		m.runModificationWindow(ctx, modifier.pid, profile)
	}
}

func cloneOrNil(p *model.UserProfile) *model.UserProfile {
	if p == nil {
		return nil
	}
	return p.Clone()
}

func (m *Manager) runModificationWindow(ctx context.Context, pid PID, currentProfile *model.UserProfile) {
	m.slot.Store(putSlot{pid: pid, state: slotOpen})
	readyCh := make(chan readyMsg, 1)
	m.mu.Lock()
	m.activeReadyCh = readyCh
	m.mu.Unlock()

	slices := int(m.cfg.MaxModificationTime / sliceLength)
	if slices < 1 {
		slices = 1
	}

	var msg readyMsg
	gotReady := false
	for i := 0; i < slices && !gotReady; i++ {
		select {
		case msg = <-readyCh:
			gotReady = true
		case <-time.After(sliceLength):
		}
	}

	m.mu.Lock()
	m.activeReadyCh = nil
	m.mu.Unlock()

	if !gotReady {
		select {
		case msg = <-readyCh:
			gotReady = true
		default:
			m.expireSlot(pid)
		}
	}

	if !gotReady {
		m.log.Warn("modification window elapsed without readyToPut")
		return
	}

	err := m.encryptAndPut(ctx, msg.profile, currentProfile.VersionKey)
	msg.resultCh <- err
}

func (m *Manager) fetchAndDecrypt(ctx context.Context) (*model.UserProfile, error) {
	params := data.NewParameters(m.creds.ProfileLocationKey(), string(h2hconst.UserProfile))
	content, found, err := m.dm.Get(ctx, params)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, h2herrors.NewGetFailed("no profile stored for this user")
	}
	encProfile, err := content.AsUserProfile()
	if err != nil {
		return nil, h2herrors.WrapGetFailed("unexpected content at profile location", err)
	}

	key := security.DeriveAESKeyFromPassword(m.creds, m.cfg.AESKeyLengthProfile)
	plaintext, err := security.DecryptAES(encProfile.Ciphertext, key)
	if err != nil {
		return nil, h2herrors.WrapGetFailed("decrypt profile", err)
	}
	profile, err := model.Unmarshal(plaintext)
	if err != nil {
		return nil, h2herrors.WrapGetFailed("decode profile", err)
	}
	return profile, nil
}

func (m *Manager) encryptAndPut(ctx context.Context, profile *model.UserProfile, basedOn model.VersionKey) error {
	plaintext, err := model.Marshal(profile)
	if err != nil {
		return h2herrors.WrapPutFailed("encode profile", err)
	}

	key := security.DeriveAESKeyFromPassword(m.creds, m.cfg.AESKeyLengthProfile)
	ciphertext, err := security.EncryptAES(plaintext, key)
	if err != nil {
		return h2herrors.WrapPutFailed("encrypt profile", err)
	}

	newVersion := model.VersionKey(uuid.NewString())
	profile.BasedOnKey = basedOn
	profile.VersionKey = newVersion

	content := data.NetworkContent{Kind: data.KindUserProfile, UserProfile: &data.EncryptedUserProfile{Ciphertext: ciphertext}}
	params := data.NewParameters(m.creds.ProfileLocationKey(), string(h2hconst.UserProfile)).
		WithVersionKey(newVersion).
		WithBasedOnKey(basedOn).
		WithProtectionKey(&profile.ProtectionKey).
		WithData(content)

	if err := m.dm.Put(ctx, params); err != nil {
		return err
	}

	protKey := profile.ProtectionKey
	m.protectionOnce.Lock()
	m.protectionKey = &protKey
	m.protectionOnce.Unlock()
	return nil
}

// CreateProfile puts a brand-new profile to the DHT, to be called once at
// registration before the manager's normal get/modify cycle is ever used.
func CreateProfile(ctx context.Context, dm *data.DataManager, creds security.UserCredentials, cfg config.Configuration, profile *model.UserProfile) error {
	plaintext, err := model.Marshal(profile)
	if err != nil {
		return h2herrors.WrapPutFailed("encode profile", err)
	}
	key := security.DeriveAESKeyFromPassword(creds, cfg.AESKeyLengthProfile)
	ciphertext, err := security.EncryptAES(plaintext, key)
	if err != nil {
		return h2herrors.WrapPutFailed("encrypt profile", err)
	}

	profile.VersionKey = model.VersionKey(uuid.NewString())
	profile.BasedOnKey = ""

	content := data.NetworkContent{Kind: data.KindUserProfile, UserProfile: &data.EncryptedUserProfile{Ciphertext: ciphertext}}
	params := data.NewParameters(creds.ProfileLocationKey(), string(h2hconst.UserProfile)).
		WithVersionKey(profile.VersionKey).
		WithProtectionKey(&profile.ProtectionKey).
		WithData(content)
	return dm.Put(ctx, params)
}

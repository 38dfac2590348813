package data

import (
	"context"

	"github.com/hive2hive/h2h/internal/h2herrors"
	"github.com/sirupsen/logrus"
)

// DataManager is the thin façade of spec.md §4.1, composing an Overlay and
// a Messenger into blocking and non-blocking get/put/remove/sendDirect.
// Every failure is mapped to the h2herrors kind named by the spec.
type DataManager struct {
	overlay   Overlay
	messenger Messenger
	log       *logrus.Entry
}

func NewDataManager(overlay Overlay, messenger Messenger, log *logrus.Logger) *DataManager {
	if log == nil {
		log = logrus.New()
	}
	return &DataManager{overlay: overlay, messenger: messenger, log: log.WithField("component", "data-manager")}
}

// Get is blocking; returns h2herrors.GetFailed on transport error. A
// missing key is not an error: callers get (zero, false, nil).
func (dm *DataManager) Get(ctx context.Context, params Parameters) (NetworkContent, bool, error) {
	content, found, err := dm.overlay.Get(ctx, params)
	if err != nil {
		dm.log.WithError(err).WithField("location", params.LocationKey).Debug("get failed")
		return NetworkContent{}, false, h2herrors.WrapGetFailed("overlay get failed", err)
	}
	return content, found, nil
}

// Put is blocking; fails with h2herrors.PutFailed if the overlay rejects
// the write (stale BasedOnKey, protection-key mismatch, transport error).
func (dm *DataManager) Put(ctx context.Context, params Parameters) error {
	if err := dm.overlay.Put(ctx, params); err != nil {
		dm.log.WithError(err).WithField("location", params.LocationKey).Debug("put failed")
		return h2herrors.WrapPutFailed("overlay put failed", err)
	}
	return nil
}

// PutUnblocked returns immediately with an awaitable handle.
func (dm *DataManager) PutUnblocked(ctx context.Context, params Parameters) (PutFuture, error) {
	future, err := dm.overlay.PutUnblocked(ctx, params)
	if err != nil {
		return nil, h2herrors.WrapPutFailed("overlay put failed", err)
	}
	return future, nil
}

func (dm *DataManager) Remove(ctx context.Context, params Parameters) error {
	if err := dm.overlay.Remove(ctx, params); err != nil {
		return h2herrors.WrapPutFailed("overlay remove failed", err)
	}
	return nil
}

// SendDirect delivers msg to peerAddress, surfacing h2herrors.NoPeerConnection
// on transport failure; a non-OK AcceptanceReply is returned, not an error,
// so callers can fall back to the next peer.
func (dm *DataManager) SendDirect(ctx context.Context, peerAddress string, msg DirectMessage) (AcceptanceReply, error) {
	reply, err := dm.messenger.SendDirect(ctx, peerAddress, msg)
	if err != nil {
		return Failure, h2herrors.NewNoPeerConnection(err.Error())
	}
	return reply, nil
}

func (dm *DataManager) Listen(kind string, handler MessageHandler) {
	dm.messenger.Listen(kind, handler)
}

func (dm *DataManager) LocalAddress() string { return dm.messenger.LocalAddress() }

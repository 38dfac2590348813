// Package location manages the Locations DHT object: the set of peer
// addresses currently logged in as a given user, with initial-peer
// promotion and lazy pruning of unreachable peers (spec.md §4.5).
package location

import (
	"context"
	"time"

	"github.com/hive2hive/h2h/internal/h2hconst"
	"github.com/hive2hive/h2h/internal/h2herrors"
	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/network/data"
)

// Registry fetches and updates a single user's Locations object.
type Registry struct {
	dm *data.DataManager
}

func New(dm *data.DataManager) *Registry {
	return &Registry{dm: dm}
}

func locationKey(userID string) string { return "locations:" + userID }

// Get fetches the Locations object for userID, returning an empty one
// (no entries) if none has been put yet.
func (r *Registry) Get(ctx context.Context, userID string) (model.Locations, error) {
	params := data.NewParameters(locationKey(userID), string(h2hconst.Locations))
	content, found, err := r.dm.Get(ctx, params)
	if err != nil {
		return model.Locations{}, err
	}
	if !found {
		return model.Locations{UserID: userID}, nil
	}
	locs, err := content.AsLocations()
	if err != nil {
		return model.Locations{}, h2herrors.WrapGetFailed("unexpected content at locations", err)
	}
	return *locs, nil
}

func (r *Registry) put(ctx context.Context, locs model.Locations) error {
	params := data.NewParameters(locationKey(locs.UserID), string(h2hconst.Locations)).
		WithTTL(h2hconst.DefaultTTLs[h2hconst.Locations]).
		WithData(data.NetworkContent{Kind: data.KindLocations, Locations: &locs})
	return r.dm.Put(ctx, params)
}

// Login appends peerAddress to userID's Locations, marking it initial if
// the set was empty.
func (r *Registry) Login(ctx context.Context, userID, peerAddress string) error {
	locs, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}
	locs.UserID = userID
	entry := model.LocationEntry{PeerAddress: peerAddress, Timestamp: time.Now(), Initial: len(locs.Entries) == 0}
	locs.Entries = append(locs.Entries, entry)
	return r.put(ctx, locs)
}

// Logout removes peerAddress from userID's Locations. If the removed
// entry was initial and others remain, the next one is promoted.
func (r *Registry) Logout(ctx context.Context, userID, peerAddress string) error {
	locs, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}
	locs.Entries = removeAndPromote(locs.Entries, peerAddress)
	return r.put(ctx, locs)
}

// Prune removes the listed dead peer addresses from userID's Locations
// (spec.md §4.5 "notification cleanup"), promoting a new initial peer if
// needed.
func (r *Registry) Prune(ctx context.Context, userID string, dead []string) error {
	if len(dead) == 0 {
		return nil
	}
	locs, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}
	deadSet := make(map[string]bool, len(dead))
	for _, d := range dead {
		deadSet[d] = true
	}
	var kept []model.LocationEntry
	hadInitial := false
	for _, e := range locs.Entries {
		if deadSet[e.PeerAddress] {
			if e.Initial {
				hadInitial = true
			}
			continue
		}
		kept = append(kept, e)
	}
	if hadInitial {
		promoteFirst(kept)
	}
	locs.Entries = kept
	return r.put(ctx, locs)
}

// InitialPeer returns the address of the initial peer, if one exists.
func InitialPeer(locs model.Locations) (string, bool) {
	for _, e := range locs.Entries {
		if e.Initial {
			return e.PeerAddress, true
		}
	}
	if len(locs.Entries) > 0 {
		return locs.Entries[0].PeerAddress, true
	}
	return "", false
}

// OrderedPeers returns every peer address with the initial peer (if any)
// first, for the notification process's per-recipient fallback order.
func OrderedPeers(locs model.Locations) []string {
	out := make([]string, 0, len(locs.Entries))
	var rest []string
	for _, e := range locs.Entries {
		if e.Initial {
			out = append(out, e.PeerAddress)
		} else {
			rest = append(rest, e.PeerAddress)
		}
	}
	return append(out, rest...)
}

func removeAndPromote(entries []model.LocationEntry, peerAddress string) []model.LocationEntry {
	var kept []model.LocationEntry
	removedInitial := false
	for _, e := range entries {
		if e.PeerAddress == peerAddress {
			if e.Initial {
				removedInitial = true
			}
			continue
		}
		kept = append(kept, e)
	}
	if removedInitial {
		promoteFirst(kept)
	}
	return kept
}

func promoteFirst(entries []model.LocationEntry) {
	for i := range entries {
		if entries[i].Initial {
			return
		}
	}
	if len(entries) > 0 {
		entries[0].Initial = true
	}
}

// Package notify implements the notification process of spec.md §4.5:
// given a message factory and a set of recipient userIDs, fan out a
// direct message to every one of each recipient's logged-in peers,
// handling self-recipients locally and lazily pruning peers that denied
// contact.
package notify

import (
	"context"

	"github.com/hive2hive/h2h/internal/location"
	"github.com/hive2hive/h2h/internal/network/data"
)

// MessageFactory builds the DirectMessage to send to recipient. It is
// called once per recipient so different recipients can receive
// differently-scoped payloads (e.g. a share notification naming only the
// folder the specific recipient gained access to).
type MessageFactory func(recipient string) data.DirectMessage

// LocalHandler runs in-process for a recipient equal to the local user,
// standing in for "a self-recipient handles the message locally" without
// a network round-trip.
type LocalHandler func(ctx context.Context, recipient string, msg data.DirectMessage)

// Outcome tallies a Notify call (spec.md §4.5 "track (sent, arrived)
// counts").
type Outcome struct {
	Sent      int
	Arrived   int
	Exhausted []string // recipients with zero accepted deliveries
}

// Process fans out notifications using a Registry to resolve recipients
// to peer addresses.
type Process struct {
	dm         *data.DataManager
	locations  *location.Registry
	selfUserID string
}

func New(dm *data.DataManager, locations *location.Registry, selfUserID string) *Process {
	return &Process{dm: dm, locations: locations, selfUserID: selfUserID}
}

// Notify delivers a message to every peer of every recipient. Recipients
// equal to the local user additionally (or exclusively, if they have no
// other peers) receive local handling. Peers that fail to accept are
// pruned from that recipient's Locations afterward.
func (p *Process) Notify(ctx context.Context, recipients []string, factory MessageFactory, local LocalHandler) (Outcome, error) {
	var outcome Outcome
	for _, recipient := range recipients {
		locs, err := p.locations.Get(ctx, recipient)
		if err != nil {
			outcome.Exhausted = append(outcome.Exhausted, recipient)
			continue
		}

		msg := factory(recipient)
		var dead []string
		delivered := 0
		for _, peer := range location.OrderedPeers(locs) {
			outcome.Sent++
			reply, sendErr := p.dm.SendDirect(ctx, peer, msg)
			if sendErr != nil || reply != data.Accepted {
				dead = append(dead, peer)
				continue
			}
			outcome.Arrived++
			delivered++
		}

		if recipient == p.selfUserID && local != nil {
			local(ctx, recipient, msg)
			delivered++
		}

		if delivered == 0 {
			outcome.Exhausted = append(outcome.Exhausted, recipient)
		}
		if len(dead) > 0 {
			if pruneErr := p.locations.Prune(ctx, recipient, dead); pruneErr != nil {
				return outcome, pruneErr
			}
		}
	}
	return outcome, nil
}

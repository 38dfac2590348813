// Package memoverlay is an in-process reference implementation of
// data.Overlay, grounded on the teacher's internal/tracker/store.go
// mutex-guarded map. It is the overlay used by unit and scenario tests
// (spec.md §8) and by single-process multi-node demos; it enforces the
// version-chain invariant the same way a real DHT would.
package memoverlay

import (
	"context"
	"sync"

	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/network/data"
)

type key struct {
	location string
	content  string
}

type entry struct {
	data       data.NetworkContent
	versionKey model.VersionKey
}

// Latency, when non-nil, is called on every Get, Put and Remove to exercise the
// piggy-backing behaviour of the profile manager (spec.md §8 scenario 2).
type Overlay struct {
	mu      sync.Mutex
	entries map[key]entry
	Latency func()
}

func New() *Overlay {
	return &Overlay{entries: make(map[key]entry)}
}

func k(params data.Parameters) key {
	return key{location: params.LocationKey, content: params.ContentKey}
}

func (o *Overlay) delay() {
	if o.Latency != nil {
		o.Latency()
	}
}

func (o *Overlay) Get(ctx context.Context, params data.Parameters) (data.NetworkContent, bool, error) {
	select {
	case <-ctx.Done():
		return data.NetworkContent{}, false, ctx.Err()
	default:
	}
	o.delay()
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[k(params)]
	if !ok {
		return data.NetworkContent{}, false, nil
	}
	return e.data, true, nil
}

func (o *Overlay) Put(ctx context.Context, params data.Parameters) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	o.delay()
	o.mu.Lock()
	defer o.mu.Unlock()

	existing, exists := o.entries[k(params)]
	if exists && params.BasedOnKey != "" && existing.versionKey != params.BasedOnKey {
		return &StaleVersionError{Want: existing.versionKey, Got: params.BasedOnKey}
	}

	o.entries[k(params)] = entry{data: params.Data, versionKey: params.VersionKey}
	return nil
}

type memFuture struct {
	done chan error
}

func (f *memFuture) Await(ctx context.Context) error {
	select {
	case err := <-f.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *memFuture) Cancel() {}

func (o *Overlay) PutUnblocked(ctx context.Context, params data.Parameters) (data.PutFuture, error) {
	f := &memFuture{done: make(chan error, 1)}
	go func() {
		f.done <- o.Put(ctx, params)
	}()
	return f, nil
}

func (o *Overlay) Remove(ctx context.Context, params data.Parameters) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	o.delay()
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.entries, k(params))
	return nil
}

// StaleVersionError is returned by Put when BasedOnKey does not match the
// currently stored VersionKey.
type StaleVersionError struct {
	Want, Got model.VersionKey
}

func (e *StaleVersionError) Error() string {
	return "stale version: based-on key does not match current version key"
}

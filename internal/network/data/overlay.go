package data

import "context"

// Overlay is the opaque DHT contract of spec.md §4.1 / §6: a versioned
// key/value store. Concrete implementations live in
// internal/network/overlay/{memoverlay,sqliteoverlay}.
type Overlay interface {
	// Get returns the content stored at params' address, or (zero, false,
	// nil) if nothing is stored there.
	Get(ctx context.Context, params Parameters) (NetworkContent, bool, error)
	// Put stores params.Data at params' address. If params.BasedOnKey is
	// set, the overlay must reject the put when it does not match the
	// currently stored VersionKey.
	Put(ctx context.Context, params Parameters) error
	// PutUnblocked is the non-blocking variant, returning an awaitable,
	// cancellable future.
	PutUnblocked(ctx context.Context, params Parameters) (PutFuture, error)
	// Remove deletes the content at params' address.
	Remove(ctx context.Context, params Parameters) error
}

// PutFuture is the await handle for PutUnblocked (SPEC_FULL.md §9 Design
// Notes: model as an await handle with Await/Cancel/listener registration,
// treating the overlay await as interruptible).
type PutFuture interface {
	Await(ctx context.Context) error
	Cancel()
}

package usecase

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"

	"replication-connector/internal/replication/domain/repository"
)

// WriteGate serializes work on a key. Release must be called exactly once after a
// successful Acquire.
type WriteGate interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// StripedGate is an in-process gate. Keys hash onto a fixed set of stripes, so
// unrelated keys may share a stripe but one key always maps to the same one.
type StripedGate struct {
	stripes []chan struct{}
}

// NewStripedGate creates a gate with n stripes. n below one yields a single stripe.
func NewStripedGate(n int) *StripedGate {
	if n < 1 {
		n = 1
	}
	stripes := make([]chan struct{}, n)
	for i := range stripes {
		stripes[i] = make(chan struct{}, 1)
	}
	return &StripedGate{stripes: stripes}
}

// Acquire blocks until the key's stripe is free or ctx is done
func (g *StripedGate) Acquire(ctx context.Context, key string) (func(), error) {
	stripe := g.stripe(key)
	select {
	case stripe <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() { once.Do(func() { <-stripe }) }, nil
}

func (g *StripedGate) stripe(key string) chan struct{} {
	return g.stripes[xxhash.Sum64String(key)%uint64(len(g.stripes))]
}

// LockedGate layers a cross-process record lock on top of a local gate.
// The local gate is always taken first and released last.
type LockedGate struct {
	local WriteGate
	lock  repository.RecordLock
}

// NewLockedGate combines local and lock
func NewLockedGate(local WriteGate, lock repository.RecordLock) *LockedGate {
	return &LockedGate{local: local, lock: lock}
}

// Acquire takes the local gate, then the shared lock
func (g *LockedGate) Acquire(ctx context.Context, key string) (func(), error) {
	releaseLocal, err := g.local.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	unlock, err := g.lock.Lock(ctx, key)
	if err != nil {
		releaseLocal()
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			unlock()
			releaseLocal()
		})
	}, nil
}

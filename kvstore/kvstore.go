// Package kvstore provides the durable ordered maps that back the target,
// past track and max speed stores. Keys are MMSIs; values are opaque encoded
// records.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrNotFound = errors.New("kvstore: key not found")
	ErrClosed   = errors.New("kvstore: closed")
	// ErrLocked is returned when the backing file is held by another process.
	// Recreating the store would not help, so Open does not retry on it.
	ErrLocked = errors.New("kvstore: locked by another process")
	// ErrUnusable is returned when a backend lost its storage after it was
	// opened and cannot serve further calls.
	ErrUnusable = errors.New("kvstore: backend unusable")
)

// Backend is a crash-recoverable key/value map with ordered iteration.
//
// ForEach visits entries in ascending key order. val is only valid until fn
// returns, and fn must not call back into the backend.
type Backend interface {
	Get(ctx context.Context, key uint32) ([]byte, error)
	Put(ctx context.Context, key uint32, val []byte) error
	Delete(ctx context.Context, key uint32) error
	ForEach(ctx context.Context, fn func(key uint32, val []byte) error) error
	Len(ctx context.Context) (int, error)
	Compact(ctx context.Context) error
	Close() error
}

// Opener opens a backend and, on corruption, removes whatever it stores so
// the next open starts empty.
type Opener interface {
	Open(ctx context.Context) (Backend, error)
	Reset(ctx context.Context) error
	String() string
}

// Open opens the backend described by o. If the first attempt fails the
// backing data is deleted and the open is retried once.
func Open(ctx context.Context, o Opener, logger *slog.Logger) (Backend, error) {
	b, err := o.Open(ctx)
	if err == nil {
		return b, nil
	}
	if errors.Is(err, ErrLocked) {
		return nil, err
	}
	logger.Error("failed to open store, recreating", "store", o.String(), "err", err)
	if rerr := o.Reset(ctx); rerr != nil {
		return nil, fmt.Errorf("reset %s: %w (open: %v)", o, rerr, err)
	}
	b, err = o.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s after reset: %w", o, err)
	}
	logger.Warn("store recreated empty", "store", o.String())
	return b, nil
}

// Keys collects every key in ascending order. The durable store sweeps walk
// this snapshot and reload each key under their write lock.
func Keys(ctx context.Context, b Backend) ([]uint32, error) {
	var keys []uint32
	err := b.ForEach(ctx, func(key uint32, _ []byte) error {
		keys = append(keys, key)
		return nil
	})
	return keys, err
}

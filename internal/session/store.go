// Package session provides session-scoped key-value storage used to keep
// per-session decisions sticky.
package session

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by stores that cannot be reached or are disabled.
var ErrUnavailable = errors.New("session storage unavailable")

// Store is a key-value store scoped to one session (or, for backends, to many).
type Store interface {
	// Get returns the stored value and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}

// AtomicStore is implemented by stores that can write a key only when it is absent.
type AtomicStore interface {
	Store

	// SetIfAbsent writes value when key is absent and returns the value stored
	// after the call: value itself, or whatever another writer stored first.
	SetIfAbsent(ctx context.Context, key, value string) (string, error)
}

// SetIfAbsent writes value under key unless something is already stored, and
// returns the winning value. It is atomic when store implements AtomicStore and
// a plain get-then-set otherwise.
func SetIfAbsent(ctx context.Context, store Store, key, value string) (string, error) {
	if as, ok := store.(AtomicStore); ok {
		return as.SetIfAbsent(ctx, key, value)
	}

	existing, ok, err := store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if ok {
		return existing, nil
	}
	if err := store.Set(ctx, key, value); err != nil {
		return "", err
	}
	return value, nil
}

// Swapper is implemented by stores that can replace a value only while it still
// holds the expected one.
type Swapper interface {
	// CompareAndSwap writes value when key holds old or is absent and returns the
	// value stored after the call.
	CompareAndSwap(ctx context.Context, key, old, value string) (string, error)
}

// CompareAndSwap replaces old with value under key and returns the winning value.
// It is atomic when store implements Swapper and a plain get-then-set otherwise.
func CompareAndSwap(ctx context.Context, store Store, key, old, value string) (string, error) {
	if sw, ok := store.(Swapper); ok {
		return sw.CompareAndSwap(ctx, key, old, value)
	}

	current, ok, err := store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if ok && current != old {
		return current, nil
	}
	if err := store.Set(ctx, key, value); err != nil {
		return "", err
	}
	return value, nil
}

// Unavailable is a Store whose every call fails, as when browser storage is disabled.
type Unavailable struct{}

// Get always fails.
func (Unavailable) Get(context.Context, string) (string, bool, error) {
	return "", false, ErrUnavailable
}

// Set always fails.
func (Unavailable) Set(context.Context, string, string) error {
	return ErrUnavailable
}

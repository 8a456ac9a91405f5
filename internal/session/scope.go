package session

import "context"

// KeyPrefix namespaces keys of one session inside a shared backend.
func KeyPrefix(sessionID string) string {
	return "session:" + sessionID + ":"
}

type scoped struct {
	backend Store
	prefix  string
}

// Scope returns a view of backend restricted to one session.
func Scope(backend Store, sessionID string) AtomicStore {
	return &scoped{backend: backend, prefix: KeyPrefix(sessionID)}
}

func (s *scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.backend.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.backend.Set(ctx, s.prefix+key, value)
}

func (s *scoped) CompareAndSwap(ctx context.Context, key, old, value string) (string, error) {
	return CompareAndSwap(ctx, s.backend, s.prefix+key, old, value)
}

func (s *scoped) SetIfAbsent(ctx context.Context, key, value string) (string, error) {
	return SetIfAbsent(ctx, s.backend, s.prefix+key, value)
}

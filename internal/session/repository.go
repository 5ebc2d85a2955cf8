package session

import "context"

// RepositoryAPI is the durable key/value store holding the session
// entries across restarts.
type RepositoryAPI interface {
	Load(ctx context.Context) (map[string]string, error)
	// Save writes all entries atomically.
	Save(ctx context.Context, entries map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// API is the subset of the portal client the store needs.
type API interface {
	Do(ctx context.Context, method, path string, body, out interface{}) error
}

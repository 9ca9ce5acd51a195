// Package store provides the durable key-value collaborator and the journal
// entry store built on top of it.
package store

import "context"

// KV is the durable key-value store the journal collection is persisted in.
// Get reports whether the key was present.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

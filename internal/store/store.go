// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store is the resumable object-store boundary shared by every
// pipeline stage. Artifacts are immutable once written: the presence of a key
// is the resumability signal, reads are always safe to race, and writes to a
// given key are expected to come from exactly one logical computation (one
// paper's extraction, one variant's aggregation). That single-writer rule is
// a caller invariant, not an enforced lock.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// ErrNotExist is returned by reads of absent keys.
var ErrNotExist = errors.New("store: object does not exist")

// Store reads and writes JSON and raw bytes under logical keys. A failed
// operation must leave the final key unwritten; writing the same valid
// content twice is safe and idempotent.
type Store interface {
	// ReadJSON reads the object at key and unmarshals it into v.
	ReadJSON(ctx context.Context, key string, v any) error

	// WriteJSON marshals v and writes it at key.
	WriteJSON(ctx context.Context, key string, v any) error

	// ReadBytes reads the raw object at key.
	ReadBytes(ctx context.Context, key string) ([]byte, error)

	// WriteBytes writes raw bytes at key.
	WriteBytes(ctx context.Context, key string, data []byte) error

	// Exists reports whether an object is present at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// New constructs the configured store backend.
func New(cfg types.StorageConfig, log *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case types.BackendFS, "":
		return NewFS(cfg.Root)
	case types.BackendS3:
		return NewS3(cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

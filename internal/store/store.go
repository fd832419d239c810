package store

import (
	"context"

	"macrofact/internal/frame"
)

// Store persists built fact tables. Implementations melt each frame into
// long-format rows so downstream queries never depend on a fact table's
// exact column set.
type Store interface {
	SaveFact(ctx context.Context, f *frame.Frame) error
	Close() error
}

// NopStore discards every fact. Used when no database path is configured.
type NopStore struct{}

func (s *NopStore) SaveFact(ctx context.Context, f *frame.Frame) error {
	_ = ctx
	_ = f
	return nil
}

func (s *NopStore) Close() error {
	return nil
}

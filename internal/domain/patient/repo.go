package patient

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("patient not found")
	ErrInvalidID       = errors.New("invalid patient id")
	ErrInvalidDocument = errors.New("invalid patient document")
)

// Repository persists whole patient documents.
type Repository interface {
	// Upsert stores p under p.ID, replacing any previous version. p.ID must
	// be set.
	Upsert(ctx context.Context, p *Patient) (string, error)
	// Get returns the stored document or ErrNotFound.
	Get(ctx context.Context, id string) (*Patient, error)
	// Search returns one page of stubs in iteration order.
	Search(ctx context.Context, f *Filter) ([]Stub, error)
	// NextID hands out a fresh globally unique id.
	NextID(ctx context.Context) (string, error)
	// WithinTx runs fn so that every repository call made with the context
	// it receives commits or rolls back together.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Package repository persists buyers. Capacity is only ever decremented
// through Reserve, which is atomic in every implementation.
package repository

import (
	"context"

	"lead_broker_backend/internal/buyers/domain"
	"lead_broker_backend/internal/geo"
)

// Repository is the buyer store.
type Repository interface {
	List(ctx context.Context, filter domain.Filter) ([]domain.Buyer, error)
	// Snapshot returns every buyer that can currently take leads. Any record
	// that fails validation aborts the call with an error wrapping
	// domain.ErrCorruptBuyer.
	Snapshot(ctx context.Context) ([]domain.Buyer, error)
	Get(ctx context.Context, id string) (domain.Buyer, error)
	// InsertIfAbsent stores buyer unless its ID exists and reports whether it
	// was inserted.
	InsertIfAbsent(ctx context.Context, buyer domain.Buyer) (bool, error)
	// Reserve takes one unit of capacity, deactivating the buyer when it hits
	// zero. It returns domain.ErrCapacityExhausted when nothing is left.
	Reserve(ctx context.Context, id string) (domain.Buyer, error)
	// Release gives back one unit taken by Reserve.
	Release(ctx context.Context, id string) error
	ListMissingCenter(ctx context.Context, limit int) ([]domain.Buyer, error)
	SetCenter(ctx context.Context, id string, center geo.Point) error
}

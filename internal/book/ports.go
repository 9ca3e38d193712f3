package book

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=book

// Repository defines the contract for book document storage.
type Repository interface {
	// Find returns the books matching f within the page bounds b.
	Find(ctx context.Context, f Filter, b Bounds) ([]Book, error)
	// Count returns the number of books matching f, ignoring pagination.
	Count(ctx context.Context, f Filter) (int, error)
	// FindByID returns ErrNotFound when no book has id and ErrInvalidID when
	// id is not a well-formed identifier for the store.
	FindByID(ctx context.Context, id string) (Book, error)
	// Save inserts b when b.ID is empty, assigning ID, version and timestamps.
	// Otherwise it replaces the stored book if its version still equals
	// b.Version, and returns ErrVersionConflict if it does not.
	Save(ctx context.Context, b *Book) error
	// Remove deletes b. It returns ErrNotFound if b is already gone.
	Remove(ctx context.Context, b Book) error
}

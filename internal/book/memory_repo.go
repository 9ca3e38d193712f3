package book

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MemoryRepo keeps books in process memory, in insertion order.
type MemoryRepo struct {
	mu    sync.RWMutex
	books map[string]Book
	order []string
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		books: make(map[string]Book),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepo) Find(ctx context.Context, f Filter, b Bounds) ([]Book, error) {
	match, err := f.Matcher()
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := lo.Filter(r.ordered(), func(bk Book, _ int) bool { return match(bk) })
	page := lo.Slice(matched, b.Skip, b.Skip+b.Limit)
	return lo.Map(page, func(bk Book, _ int) Book { return clone(bk) }), nil
}

func (r *MemoryRepo) Count(ctx context.Context, f Filter) (int, error) {
	match, err := f.Matcher()
	if err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.CountBy(r.ordered(), match), nil
}

func (r *MemoryRepo) FindByID(ctx context.Context, id string) (Book, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Book{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.books[id]
	if !ok {
		return Book{}, ErrNotFound
	}
	return clone(b), nil
}

func (r *MemoryRepo) Save(ctx context.Context, b *Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if b.ID == "" {
		b.ID = uuid.NewString()
		b.Version = 1
		b.CreatedAt = now
		b.UpdatedAt = now
		r.books[b.ID] = clone(*b)
		r.order = append(r.order, b.ID)
		return nil
	}

	stored, ok := r.books[b.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != b.Version {
		return ErrVersionConflict
	}
	b.Version++
	b.CreatedAt = stored.CreatedAt
	b.UpdatedAt = now
	r.books[b.ID] = clone(*b)
	return nil
}

func (r *MemoryRepo) Remove(ctx context.Context, b Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.books[b.ID]; !ok {
		return ErrNotFound
	}
	delete(r.books, b.ID)
	r.order = lo.Without(r.order, b.ID)
	return nil
}

// Ping always succeeds.
func (r *MemoryRepo) Ping(ctx context.Context) error { return nil }

func (r *MemoryRepo) ordered() []Book {
	return lo.Map(r.order, func(id string, _ int) Book { return r.books[id] })
}

func clone(b Book) Book {
	if b.PublishedYear != nil {
		year := *b.PublishedYear
		b.PublishedYear = &year
	}
	return b
}

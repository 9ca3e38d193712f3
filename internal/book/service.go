package book

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
)

// Service provides the book CRUD operations on top of a Repository.
type Service struct {
	repo       Repository
	filterOpts FilterOptions
	validate   *validator.Validate
}

// Option configures a Service.
type Option func(*Service)

// WithFilterOptions sets how list filters are turned into patterns.
func WithFilterOptions(opts FilterOptions) Option {
	return func(s *Service) { s.filterOpts = opts }
}

// NewService creates a new book service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, validate: newValidator()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns one page of books matching the author and genre filters of q.
// The page count comes from a separate count over the same filter.
func (s *Service) List(ctx context.Context, q ListQuery) (Page, error) {
	const op = "book.List"
	q = q.withDefaults()

	filter, err := BuildFilter(q, s.filterOpts)
	if err != nil {
		return Page{}, clientInput(op, err)
	}

	books, err := s.repo.Find(ctx, filter, Paginate(q))
	if err != nil {
		return Page{}, listFault(op, err)
	}
	count, err := s.repo.Count(ctx, filter)
	if err != nil {
		return Page{}, listFault(op, err)
	}

	if books == nil {
		books = []Book{}
	}
	return Page{
		Books:       books,
		TotalPages:  TotalPages(count, q.Limit),
		CurrentPage: q.Page,
	}, nil
}

// Get returns the book with the given id.
func (s *Service) Get(ctx context.Context, id string) (Book, error) {
	const op = "book.Get"
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Book{}, notFound(op)
		}
		return Book{}, serverFault(op, err)
	}
	return b, nil
}

// Create stores a new book and returns it with its assigned id.
func (s *Service) Create(ctx context.Context, in NewBook) (Book, error) {
	const op = "book.Create"
	b := in.toBook()
	if err := validateBook(s.validate, b); err != nil {
		return Book{}, clientInput(op, err)
	}
	if err := s.repo.Save(ctx, &b); err != nil {
		if errors.Is(err, ErrInvalidDocument) {
			return Book{}, clientInput(op, err)
		}
		return Book{}, serverFault(op, err)
	}
	return b, nil
}

// Update applies p to the book with the given id. A malformed id is client
// input here, unlike Get and Delete. The write is rejected with a conflict when
// another writer saved the book after it was read here.
func (s *Service) Update(ctx context.Context, id string, p Patch) (Book, error) {
	const op = "book.Update"
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return Book{}, notFound(op)
		case errors.Is(err, ErrInvalidID):
			return Book{}, clientInput(op, err)
		}
		return Book{}, serverFault(op, err)
	}

	p.Apply(&b)
	if err := validateBook(s.validate, b); err != nil {
		return Book{}, clientInput(op, err)
	}

	if err := s.repo.Save(ctx, &b); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return Book{}, notFound(op)
		case errors.Is(err, ErrVersionConflict):
			return Book{}, conflict(op, err)
		case errors.Is(err, ErrInvalidDocument):
			return Book{}, clientInput(op, err)
		}
		return Book{}, serverFault(op, err)
	}
	return b, nil
}

// Delete removes the book with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "book.Delete"
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound(op)
		}
		return serverFault(op, err)
	}
	if err := s.repo.Remove(ctx, b); err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound(op)
		}
		return serverFault(op, err)
	}
	return nil
}

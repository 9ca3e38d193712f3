package book

import (
	"time"
)

const (
	DefaultPage     = 1
	DefaultLimit    = 10
	DefaultMaxLimit = 100
)

// Book represents a book entity.
type Book struct {
	ID            string    `json:"id"`
	Title         string    `json:"title" validate:"required"`
	Author        string    `json:"author" validate:"required"`
	Genre         string    `json:"genre,omitempty"`
	PublishedYear *int      `json:"publishedYear,omitempty"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewBook is the payload accepted when creating a book.
type NewBook struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	Genre         string `json:"genre"`
	PublishedYear *int   `json:"publishedYear"`
}

func (n NewBook) toBook() Book {
	return Book{
		Title:         n.Title,
		Author:        n.Author,
		Genre:         n.Genre,
		PublishedYear: n.PublishedYear,
	}
}

// Patch carries a partial update. Nil fields, whether absent from the request
// or sent as null, keep their stored value.
type Patch struct {
	Title         *string `json:"title"`
	Author        *string `json:"author"`
	Genre         *string `json:"genre"`
	PublishedYear *int    `json:"publishedYear"`
}

// Apply overwrites the fields of b that are set on p.
func (p Patch) Apply(b *Book) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Genre != nil {
		b.Genre = *p.Genre
	}
	if p.PublishedYear != nil {
		year := *p.PublishedYear
		b.PublishedYear = &year
	}
}

// ListQuery defines filters and pagination for listing books.
type ListQuery struct {
	Author string
	Genre  string
	Page   int
	Limit  int
}

func (q ListQuery) withDefaults() ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	return q
}

// Page is one page of a listing.
type Page struct {
	Books       []Book `json:"books"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
}

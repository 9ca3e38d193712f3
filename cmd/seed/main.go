package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"bookcollection/internal/book"
	"bookcollection/internal/config"
	"bookcollection/internal/platform/openlibrary"
	"bookcollection/internal/store"

	"github.com/samber/lo"
)

var (
	genres  = []string{"Fiction", "Science Fiction", "History", "Science", "Technology", "Romance", "Mystery", "Biography", "Philosophy", "Art"}
	authors = []string{"Agatha Smith", "Frank Herbert", "Ursula Le Guin", "John Smithson", "Mary Jones", "Isaac Asimov", "Octavia Butler", "Jorge Borges"}
	words   = []string{"Algorithm", "Database", "Network", "System", "Dune", "Foundation", "Garden", "River", "Empire", "Shadow"}
)

const openLibraryPageSize = 100

func main() {
	count := flag.Int("count", 1000, "Number of books to insert")
	source := flag.String("source", "generated", "Book source: generated or openlibrary")
	subject := flag.String("subject", "science_fiction", "Open Library subject to import")
	rps := flag.Int("rps", 2, "Open Library requests per second")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	var in []book.NewBook
	switch *source {
	case "generated":
		in = generate(*count, rand.New(rand.NewSource(1)))
	case "openlibrary":
		client := openlibrary.NewClient("bookcollection-seed/1.0", *rps, 3)
		in, err = importSubject(ctx, client, *subject, *count)
		if err != nil {
			log.Fatalf("Failed to import from Open Library: %v", err)
		}
	default:
		log.Fatalf("Unknown source %q", *source)
	}

	books, err := store.OpenBooks(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer books.Close()

	service := book.NewService(books.Repository)

	log.Printf("Inserting %d books into %s store...", len(in), cfg.StoreDriver)
	for i, b := range in {
		if _, err := service.Create(ctx, b); err != nil {
			log.Fatalf("Failed to insert book %d: %v", i+1, err)
		}
		if (i+1)%100 == 0 {
			log.Printf("Inserted %d/%d books", i+1, len(in))
		}
	}

	total, err := books.Repository.Count(ctx, book.Filter{})
	if err != nil {
		log.Fatalf("Failed to count books: %v", err)
	}
	log.Printf("Store now holds %d books", total)
}

func generate(n int, rng *rand.Rand) []book.NewBook {
	return lo.Times(n, func(i int) book.NewBook {
		year := 1950 + rng.Intn(75)
		return book.NewBook{
			Title:         fmt.Sprintf("%s %s %d", words[rng.Intn(len(words))], words[rng.Intn(len(words))], i+1),
			Author:        authors[rng.Intn(len(authors))],
			Genre:         genres[rng.Intn(len(genres))],
			PublishedYear: &year,
		}
	})
}

type subjectSearcher interface {
	SearchSubject(ctx context.Context, subject string, limit, page int) (*openlibrary.SearchResponse, error)
}

// importSubject pages through the subject until n usable works are collected
// or the results run out.
func importSubject(ctx context.Context, client subjectSearcher, subject string, n int) ([]book.NewBook, error) {
	genre := strings.ReplaceAll(subject, "_", " ")
	var out []book.NewBook
	for page := 1; len(out) < n; page++ {
		res, err := client.SearchSubject(ctx, subject, openLibraryPageSize, page)
		if err != nil {
			return nil, err
		}
		out = append(out, fromDocs(res.Docs, genre)...)
		log.Printf("Fetched page %d of %q (%d usable so far)", page, subject, len(out))
		if len(res.Docs) < openLibraryPageSize {
			break
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func fromDocs(docs []openlibrary.Doc, genre string) []book.NewBook {
	return lo.FilterMap(docs, func(d openlibrary.Doc, _ int) (book.NewBook, bool) {
		title := strings.TrimSpace(d.Title)
		if title == "" || len(d.AuthorNames) == 0 || strings.TrimSpace(d.AuthorNames[0]) == "" {
			return book.NewBook{}, false
		}
		b := book.NewBook{Title: title, Author: strings.TrimSpace(d.AuthorNames[0]), Genre: genre}
		if d.FirstPublishYear > 0 {
			year := d.FirstPublishYear
			b.PublishedYear = &year
		}
		return b, true
	})
}

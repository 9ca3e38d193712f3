package book

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/squirrel"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FilterOptions controls how list filters are turned into patterns.
type FilterOptions struct {
	// RawPatterns passes author and genre through as regular expressions
	// instead of matching them literally.
	RawPatterns bool
}

// Filter is a case-insensitive "contains" predicate over author and genre.
// Author and Genre hold regular expression sources; empty means unconstrained.
type Filter struct {
	Author string
	Genre  string
}

// BuildFilter turns the list filters of q into a Filter.
func BuildFilter(q ListQuery, opts FilterOptions) (Filter, error) {
	author, err := containsPattern("author", q.Author, opts)
	if err != nil {
		return Filter{}, err
	}
	genre, err := containsPattern("genre", q.Genre, opts)
	if err != nil {
		return Filter{}, err
	}
	return Filter{Author: author, Genre: genre}, nil
}

func containsPattern(field, value string, opts FilterOptions) (string, error) {
	if value == "" {
		return "", nil
	}
	if !opts.RawPatterns {
		return regexp.QuoteMeta(value), nil
	}
	if _, err := regexp.Compile(value); err != nil {
		return "", invalidField(field, fmt.Sprintf("%s is not a valid pattern", field))
	}
	return value, nil
}

// IsEmpty reports whether f matches every book.
func (f Filter) IsEmpty() bool {
	return f.Author == "" && f.Genre == ""
}

// BSON renders f as a MongoDB query document.
func (f Filter) BSON() bson.M {
	q := bson.M{}
	if f.Author != "" {
		q["author"] = primitive.Regex{Pattern: f.Author, Options: "i"}
	}
	if f.Genre != "" {
		q["genre"] = primitive.Regex{Pattern: f.Genre, Options: "i"}
	}
	return q
}

// SQL renders f as a Postgres predicate using the case-insensitive regex operator.
func (f Filter) SQL() squirrel.And {
	conds := squirrel.And{}
	if f.Author != "" {
		conds = append(conds, squirrel.Expr("author ~* ?", f.Author))
	}
	if f.Genre != "" {
		conds = append(conds, squirrel.Expr("genre ~* ?", f.Genre))
	}
	return conds
}

// Matcher compiles f for in-process evaluation.
func (f Filter) Matcher() (func(Book) bool, error) {
	author, err := compileContains(f.Author)
	if err != nil {
		return nil, err
	}
	genre, err := compileContains(f.Genre)
	if err != nil {
		return nil, err
	}
	return func(b Book) bool {
		if author != nil && !author.MatchString(b.Author) {
			return false
		}
		if genre != nil && !genre.MatchString(b.Genre) {
			return false
		}
		return true
	}, nil
}

func compileContains(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile("(?i)" + pattern)
}

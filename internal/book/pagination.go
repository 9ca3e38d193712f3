package book

import (
	"math"
	"net/url"
	"strconv"
)

// Bounds are the skip/limit cursor bounds for one page.
type Bounds struct {
	Skip  int
	Limit int
}

// Paginate computes the bounds for q. q must carry a page and limit of at least 1.
// A skip that would overflow saturates at math.MaxInt-Limit, which is past the
// end of any store, so Skip+Limit never overflows either.
func Paginate(q ListQuery) Bounds {
	maxSkip := math.MaxInt - q.Limit
	skip := maxSkip
	if q.Page-1 <= maxSkip/q.Limit {
		skip = (q.Page - 1) * q.Limit
	}
	return Bounds{
		Skip:  skip,
		Limit: q.Limit,
	}
}

// TotalPages is ceil(count/limit).
func TotalPages(count, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (count + limit - 1) / limit
}

// ParseListQuery reads author, genre, page and limit from request query values.
// Missing page and limit fall back to the defaults, a non-numeric or non-positive
// value is a validation error, and a limit above maxLimit is clamped.
func ParseListQuery(values url.Values, maxLimit int) (ListQuery, error) {
	q := ListQuery{
		Author: values.Get("author"),
		Genre:  values.Get("genre"),
		Page:   DefaultPage,
		Limit:  DefaultLimit,
	}

	var fields []FieldError
	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			fields = append(fields, FieldError{Field: "page", Message: "page must be a positive integer"})
		} else {
			q.Page = page
		}
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			fields = append(fields, FieldError{Field: "limit", Message: "limit must be a positive integer"})
		} else {
			q.Limit = limit
		}
	}
	if len(fields) > 0 {
		return ListQuery{}, &ValidationError{Fields: fields}
	}

	if maxLimit > 0 && q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return q, nil
}

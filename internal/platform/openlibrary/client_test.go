package openlibrary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{
  "numFound": 2,
  "docs": [
    {"key": "/works/OL893415W", "title": "Dune", "author_name": ["Frank Herbert"], "first_publish_year": 1965},
    {"key": "/works/OL46125W", "title": "The Left Hand of Darkness", "author_name": ["Ursula K. Le Guin"]}
  ]
}`

func newTestClient(url string, maxRetries int) *Client {
	return NewClient("bookcollection-test", 0, maxRetries, WithBaseURL(url), WithBackoff(time.Millisecond))
}

func TestSearchSubject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "subject:science_fiction", r.URL.Query().Get("q"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "bookcollection-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL, 0).SearchSubject(context.Background(), "science_fiction", 20, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, res.NumFound)
	require.Len(t, res.Docs, 2)
	assert.Equal(t, "Dune", res.Docs[0].Title)
	assert.Equal(t, []string{"Frank Herbert"}, res.Docs[0].AuthorNames)
	assert.Equal(t, 1965, res.Docs[0].FirstPublishYear)
	assert.Zero(t, res.Docs[1].FirstPublishYear)
}

func TestSearchSubject_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL, 3).SearchSubject(context.Background(), "history", 10, 1)
	require.NoError(t, err)
	assert.Len(t, res.Docs, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSearchSubject_GivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).SearchSubject(context.Background(), "history", 10, 1)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSearchSubject_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).SearchSubject(context.Background(), "history", 10, 1)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	_ "bookcollection/docs"
	"bookcollection/internal/book"
	"bookcollection/internal/config"
	"bookcollection/internal/httpx"
	"bookcollection/internal/store"

	httpSwagger "github.com/swaggo/http-swagger"
)

func newRouter(cfg config.Config, books *store.Books, logger *slog.Logger) http.Handler {
	service := book.NewService(books.Repository,
		book.WithFilterOptions(book.FilterOptions{RawPatterns: cfg.RawFilterPatterns}),
	)
	bookHandler := book.NewHTTPHandler(service,
		book.WithLogger(logger),
		book.WithMaxLimit(cfg.MaxLimit),
		book.WithErrorDetail(book.ErrorDetailPolicy(cfg.ErrorDetail)),
	)

	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := books.Ping(ctx); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	bookHandler.Register(router, cfg.Mount)

	// The swagger UI relies on inline scripts, so it stays outside the security headers.
	root := http.NewServeMux()
	root.Handle("GET /swagger/", httpSwagger.WrapHandler)
	root.Handle("/", httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(logger),
		httpx.RecoveryMiddleware(logger),
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.CORSMiddleware(cfg.CORSAllowedOrigins),
		httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
	))
	return root
}

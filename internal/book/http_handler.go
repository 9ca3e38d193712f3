package book

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"bookcollection/internal/httpx"
)

// ErrorDetailPolicy decides how much of a server fault reaches API callers.
type ErrorDetailPolicy string

const (
	// DetailRedacted replaces server fault messages with a generic one.
	DetailRedacted ErrorDetailPolicy = "redacted"
	// DetailFull passes the underlying store error text through.
	DetailFull ErrorDetailPolicy = "full"
)

const (
	msgNotFound = "Book not found"
	msgDeleted  = "Book deleted"
	msgConflict = "Book was modified concurrently"
	msgInternal = "Internal server error"
)

type HTTPHandler struct {
	service  *Service
	logger   *slog.Logger
	maxLimit int
	detail   ErrorDetailPolicy
}

// HandlerOption configures an HTTPHandler.
type HandlerOption func(*HTTPHandler)

func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *HTTPHandler) { h.logger = logger }
}

func WithMaxLimit(maxLimit int) HandlerOption {
	return func(h *HTTPHandler) { h.maxLimit = maxLimit }
}

func WithErrorDetail(policy ErrorDetailPolicy) HandlerOption {
	return func(h *HTTPHandler) { h.detail = policy }
}

func NewHTTPHandler(service *Service, opts ...HandlerOption) *HTTPHandler {
	h := &HTTPHandler{
		service:  service,
		logger:   slog.Default(),
		maxLimit: DefaultMaxLimit,
		detail:   DetailRedacted,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the book routes under mount, e.g. "/books". A mount of "/"
// serves the collection at the root and each book at "/{id}".
func (h *HTTPHandler) Register(mux *http.ServeMux, mount string) {
	mount = strings.Trim(mount, "/")
	bases := []string{"/{$}"}
	if mount != "" {
		mount = "/" + mount
		bases = []string{mount, mount + "/{$}"}
	}
	for _, base := range bases {
		mux.HandleFunc("GET "+base, h.List)
		mux.HandleFunc("POST "+base, h.Create)
	}
	mux.HandleFunc("GET "+mount+"/{id}", h.Get)
	mux.HandleFunc("PUT "+mount+"/{id}", h.Update)
	mux.HandleFunc("DELETE "+mount+"/{id}", h.Delete)
}

// @Summary List books
// @Description Page through books, optionally filtered by author and genre (case-insensitive contains)
// @Tags books
// @Produce json
// @Param author query string false "Author contains"
// @Param genre query string false "Genre contains"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(10)
// @Success 200 {object} book.Page
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := ParseListQuery(r.URL.Query(), h.maxLimit)
	if err != nil {
		h.writeError(w, r, clientInput("book.List", err))
		return
	}

	page, err := h.service.List(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, page)
}

// @Summary Get book
// @Tags books
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} book.Book
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /books/{id} [get]
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, b)
}

// @Summary Create book
// @Tags books
// @Accept json
// @Produce json
// @Param book body book.NewBook true "Book"
// @Success 201 {object} book.Book
// @Failure 400 {object} httpx.ErrorResponse
// @Router /books [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in NewBook
	if err := decodeBody(r, &in); err != nil {
		h.writeBodyError(w, r, "book.Create", err)
		return
	}

	b, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, b)
}

// @Summary Update book
// @Description Overwrite the fields present and non-null in the body
// @Tags books
// @Accept json
// @Produce json
// @Param id path string true "Book ID"
// @Param book body book.Patch true "Fields to change"
// @Success 200 {object} book.Book
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /books/{id} [put]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p Patch
	if err := decodeBody(r, &p); err != nil {
		h.writeBodyError(w, r, "book.Update", err)
		return
	}

	b, err := h.service.Update(r.Context(), r.PathValue("id"), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, b)
}

// @Summary Delete book
// @Tags books
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /books/{id} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONMessage(w, http.StatusOK, msgDeleted)
}

// decodeBody treats an empty body as an empty object.
func decodeBody(r *http.Request, v interface{}) error {
	if err := httpx.DecodeJSON(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (h *HTTPHandler) writeBodyError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		httpx.JSONError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
		return
	}
	h.writeError(w, r, clientInput(op, &ValidationError{Fields: []FieldError{{
		Field:   "body",
		Message: "invalid JSON body: " + err.Error(),
	}}}))
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var detail error = err
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		detail = e.Err
	}

	switch KindOf(err) {
	case KindNotFound:
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", msgNotFound, nil)
	case KindClientInput:
		var details []httpx.ErrorDetail
		var verr *ValidationError
		if errors.As(err, &verr) {
			for _, f := range verr.Fields {
				details = append(details, httpx.ErrorDetail{Field: f.Field, Message: f.Message})
			}
		}
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", detail.Error(), details)
	case KindConflict:
		httpx.JSONError(w, r, http.StatusConflict, "CONFLICT", msgConflict, nil)
	default:
		h.logger.ErrorContext(r.Context(), "book request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", httpx.RequestIDFrom(r)),
			slog.Any("error", err),
		)
		message := msgInternal
		if h.detail == DetailFull {
			message = detail.Error()
		}
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", message, nil)
	}
}

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kimkjin/BannerComposer/internal/archive"
	"github.com/kimkjin/BannerComposer/internal/catalog"
	"github.com/kimkjin/BannerComposer/internal/composer"
	"github.com/kimkjin/BannerComposer/internal/formats"
	"github.com/kimkjin/BannerComposer/internal/images"
	"github.com/kimkjin/BannerComposer/internal/render"
	"github.com/kimkjin/BannerComposer/internal/storage"
)

type Handler struct {
	sessionStore *storage.SessionStore
	formats      *formats.Catalog
	renderer     render.Renderer
	assets       *catalog.Service
	fetcher      *images.Fetcher
	publisher    archive.Publisher
	concurrency  int
	logger       *slog.Logger
}

// Options wires the collaborators of the HTTP surface. Publisher may be nil.
type Options struct {
	Formats     *formats.Catalog
	Renderer    render.Renderer
	Assets      *catalog.Service
	Publisher   archive.Publisher
	Concurrency int
	Logger      *slog.Logger
}

func New(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Formats == nil {
		opts.Formats = formats.Default()
	}
	if opts.Assets == nil {
		opts.Assets = catalog.New("", "", opts.Logger)
	}
	return &Handler{
		sessionStore: storage.New(),
		formats:      opts.Formats,
		renderer:     opts.Renderer,
		assets:       opts.Assets,
		fetcher:      images.NewFetcher(),
		publisher:    opts.Publisher,
		concurrency:  opts.Concurrency,
		logger:       opts.Logger,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		h.logger.Error(message)
	} else {
		h.logger.Warn(message, "status", code)
	}
	http.Error(w, message, code)
}

// writeDomainError maps composer errors onto HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, composer.ErrPreconditionNotMet),
		errors.Is(err, composer.ErrMissingSource),
		errors.Is(err, composer.ErrInvalidOverride),
		errors.Is(err, composer.ErrInvalidSource):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, composer.ErrUnknownSlot),
		errors.Is(err, catalog.ErrLogoNotFound):
		h.writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, composer.ErrCompositeSlot):
		h.writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, archive.ErrEmpty):
		h.writeError(w, err.Error(), http.StatusConflict)
	default:
		h.writeError(w, "Internal server error: "+err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*storage.Session, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func (h *Handler) newComposer() *composer.Orchestrator {
	return composer.New(h.formats, h.renderer, composer.Options{
		Concurrency: h.concurrency,
		Logger:      h.logger,
	})
}

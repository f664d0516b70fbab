package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kimkjin/BannerComposer/internal/models"
)

func (h *Handler) HandleFormats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]any{"formats": h.formats.Formats()})
}

func (h *Handler) HandleLogoFolders(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]any{"folders": h.assets.ListFolders(r.URL.Query().Get("query"))})
}

type logoResponse struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
}

func (h *Handler) HandleFolderLogos(w http.ResponseWriter, r *http.Request) {
	entries := h.assets.ListLogos(chi.URLParam(r, "folder"))
	logos := make([]logoResponse, 0, len(entries))
	for _, e := range entries {
		logos = append(logos, logoResponse{Filename: e.Filename, Data: e.DataURL()})
	}
	h.writeJSON(w, map[string]any{"logos": logos})
}

func (h *Handler) HandleFonts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]any{"fonts": h.assets.ListFonts(r.URL.Query().Get("query"))})
}

// HandleClientLog records errors reported by the browser.
func (h *Handler) HandleClientLog(w http.ResponseWriter, r *http.Request) {
	var entry struct {
		Message string         `json:"message"`
		Stack   string         `json:"stack"`
		Context map[string]any `json:"context"`
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if err != nil {
		h.writeError(w, "Failed to read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := json.Unmarshal(body, &entry); err != nil {
		h.logger.Error("Client error", "raw", string(body))
	} else {
		h.logger.Error("Client error", "message", entry.Message, "stack", entry.Stack, "context", entry.Context)
	}
	h.writeJSON(w, map[string]string{"status": "log received"})
}

func (h *Handler) HandleAddLogo(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var request struct {
		Folder   string `json:"folder"`
		Filename string `json:"filename"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}

	logo, err := h.assets.Logo(request.Folder, request.Filename)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if !session.Composer.AddLogo(logo) {
		h.writeError(w, "Logo already selected", http.StatusConflict)
		return
	}
	h.writeJSON(w, map[string]any{"logos": session.Composer.State().Logos()})
}

func (h *Handler) HandleRemoveLogo(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if !session.Composer.RemoveLogo(chi.URLParam(r, "folder"), chi.URLParam(r, "filename")) {
		h.writeError(w, "Logo not selected", http.StatusNotFound)
		return
	}
	h.writeJSON(w, map[string]any{"logos": session.Composer.State().Logos()})
}

func (h *Handler) HandleSetTagline(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	tagline := models.DefaultTagline()
	if !h.decodeJSON(w, r, &tagline) {
		return
	}
	if tagline.FontSize < 0 {
		h.writeError(w, "font_size must not be negative", http.StatusBadRequest)
		return
	}
	session.Composer.SetTagline(tagline)
	h.writeJSON(w, tagline)
}

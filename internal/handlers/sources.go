package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kimkjin/BannerComposer/internal/images"
	"github.com/kimkjin/BannerComposer/internal/models"
)

// HandleUploadSource stores imageA or imageB from a multipart file or, for a
// JSON body, from an image URL.
func (h *Handler) HandleUploadSource(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	id := models.SourceID(chi.URLParam(r, "source"))
	if !id.Valid() {
		h.writeError(w, "Invalid source. Must be 'imageA' or 'imageB'", http.StatusBadRequest)
		return
	}

	var (
		data     []byte
		filename string
		err      error
	)
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		data, filename, ok = h.readURLSource(w, r)
	} else {
		data, filename, ok = h.readFileSource(w, r)
	}
	if !ok {
		return
	}

	img := models.SourceImage{ID: id, Filename: filename, Data: data}
	img.Width, img.Height, err = images.Dimensions(data)
	if err != nil {
		h.logger.Warn("Failed to get image dimensions", "source", id, "err", err)
	}

	if err := session.Composer.SetSource(img); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.logger.Info("Source image uploaded", "session_id", session.ID, "source", id, "filename", filename, "bytes", len(data))
	h.writeJSON(w, img)
}

func (h *Handler) readURLSource(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	var request struct {
		ImageURL string `json:"image_url"`
	}
	if !h.decodeJSON(w, r, &request) {
		return nil, "", false
	}
	if request.ImageURL == "" {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return nil, "", false
	}

	data, filename, err := h.fetcher.Fetch(r.Context(), request.ImageURL)
	if err != nil {
		h.writeError(w, "Failed to process image URL: "+err.Error(), http.StatusBadRequest)
		return nil, "", false
	}
	return data, filename, true
}

func (h *Handler) readFileSource(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, images.MaxImageSize+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return nil, "", false
	}
	if len(data) > images.MaxImageSize {
		h.writeError(w, "File too large (max 10MB)", http.StatusBadRequest)
		return nil, "", false
	}
	if len(data) == 0 {
		h.writeError(w, "File is empty", http.StatusBadRequest)
		return nil, "", false
	}
	return data, header.Filename, true
}

func (h *Handler) HandleAssignAll(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var request struct {
		Source models.SourceID `json:"source"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}
	if err := session.Composer.AssignAllTo(request.Source); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, session.Composer.Snapshot())
}

func (h *Handler) HandleSetAssignment(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var request struct {
		Source models.SourceID `json:"source"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}
	slot := chi.URLParam(r, "slot")
	if err := session.Composer.SetAssignment(slot, request.Source); err != nil {
		h.writeDomainError(w, err)
		return
	}
	status, err := session.Composer.Status(slot)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, status)
}

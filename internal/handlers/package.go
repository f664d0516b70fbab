package handlers

import (
	"net/http"
	"strconv"

	"github.com/kimkjin/BannerComposer/internal/archive"
	"github.com/kimkjin/BannerComposer/internal/storage"
)

func (h *Handler) buildArchive(w http.ResponseWriter, session *storage.Session) ([]byte, bool) {
	entries, err := archive.Collect(session.Composer)
	if err != nil {
		h.writeDomainError(w, err)
		return nil, false
	}
	data, err := archive.Package(entries)
	if err != nil {
		h.writeDomainError(w, err)
		return nil, false
	}
	return data, true
}

// HandlePackage downloads every cached preview as images_<session>.zip.
func (h *Handler) HandlePackage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	data, ok := h.buildArchive(w, session)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+archive.Filename(session.ID)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Unable to write archive", "session_id", session.ID, "err", err)
	}
}

// HandlePublish uploads the archive to object storage.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if h.publisher == nil {
		h.writeError(w, "Publishing is not configured", http.StatusServiceUnavailable)
		return
	}
	data, ok := h.buildArchive(w, session)
	if !ok {
		return
	}

	name := archive.Filename(session.ID)
	url, err := h.publisher.Publish(r.Context(), name, data)
	if err != nil {
		h.writeError(w, "Failed to publish archive: "+err.Error(), http.StatusBadGateway)
		return
	}
	h.logger.Info("Archive published", "session_id", session.ID, "url", url, "bytes", len(data))
	h.writeJSON(w, map[string]string{"filename": name, "url": url})
}

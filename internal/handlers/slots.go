package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kimkjin/BannerComposer/internal/composer"
	"github.com/kimkjin/BannerComposer/internal/editor"
	"github.com/kimkjin/BannerComposer/internal/models"
)

func (h *Handler) HandleGenerateAll(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	report, err := session.Composer.GenerateAll(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, report)
}

// HandleSaveOverride builds an override from the editor payload and
// regenerates the slot and its mirror.
func (h *Handler) HandleSaveOverride(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var edit editor.Edit
	if !h.decodeJSON(w, r, &edit) {
		return
	}

	var report *composer.Report
	save := func(ctx context.Context, slot string, o *models.Override) error {
		var err error
		report, err = session.Composer.GenerateSingle(ctx, slot, o)
		return err
	}

	slot := chi.URLParam(r, "slot")
	logos := session.Composer.State().Logos()
	if _, err := editor.New(slot, logos, save).Apply(edit).Save(r.Context()); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, report)
}

func (h *Handler) HandleToggleLock(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	slot := chi.URLParam(r, "slot")
	locked, err := session.Composer.ToggleLock(slot)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, map[string]any{"slot": slot, "locked": locked})
}

func (h *Handler) HandleSlotDetail(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	status, err := session.Composer.Status(chi.URLParam(r, "slot"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, status)
}

// HandlePreview serves the cached artifact bytes of a slot.
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	status, err := session.Composer.Status(chi.URLParam(r, "slot"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	preview, ok := session.Composer.State().Preview(status.Slot)
	if !ok {
		h.writeError(w, "No preview rendered for "+status.Slot, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(preview.Artifact.Data)))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(preview.Artifact.Data); err != nil {
		h.logger.Error("Unable to write preview", "slot", status.Slot, "err", err)
	}
}

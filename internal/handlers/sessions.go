package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/kimkjin/BannerComposer/internal/composer"
	"github.com/kimkjin/BannerComposer/internal/storage"
)

type sessionResponse struct {
	*storage.Session
	composer.Snapshot
}

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.sessionStore.List())
}

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Name string `json:"name"`
	}
	if r.ContentLength != 0 {
		if err := decodeOptional(r, &request); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	session := h.sessionStore.Create(request.Name, h.newComposer())
	h.logger.Info("Session created", "session_id", session.ID, "name", session.Name)

	h.writeJSONStatus(w, http.StatusCreated, sessionResponse{Session: session, Snapshot: session.Composer.Snapshot()})
}

func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, sessionResponse{Session: session, Snapshot: session.Composer.Snapshot()})
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.sessionStore.Delete(session.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleResetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	session.Composer.Reset()
	h.logger.Info("Session reset", "session_id", session.ID)
	h.writeJSON(w, sessionResponse{Session: session, Snapshot: session.Composer.Snapshot()})
}

// decodeOptional treats an empty body as an empty request.
func decodeOptional(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

package handlers

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
)

// Routes returns the HTTP API.
func (h *Handler) Routes(corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(cors(corsOrigins))

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			h.logger.Error("Unable to write healthcheck", "err", err)
		}
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/formats", h.HandleFormats)
		api.Get("/logo-folders", h.HandleLogoFolders)
		api.Get("/logo-folders/{folder}/logos", h.HandleFolderLogos)
		api.Get("/fonts", h.HandleFonts)
		api.Post("/client-log", h.HandleClientLog)

		api.Get("/sessions", h.HandleListSessions)
		api.Post("/sessions", h.HandleCreateSession)

		api.Route("/sessions/{sessionID}", func(s chi.Router) {
			s.Get("/", h.HandleSessionDetail)
			s.Delete("/", h.HandleDeleteSession)
			s.Post("/reset", h.HandleResetSession)

			s.Put("/sources/{source}", h.HandleUploadSource)
			s.Post("/assignments", h.HandleAssignAll)
			s.Put("/assignments/{slot}", h.HandleSetAssignment)

			s.Post("/logos", h.HandleAddLogo)
			s.Delete("/logos/{folder}/{filename}", h.HandleRemoveLogo)
			s.Put("/tagline", h.HandleSetTagline)

			s.Post("/generate", h.HandleGenerateAll)
			s.Get("/slots/{slot}", h.HandleSlotDetail)
			s.Put("/slots/{slot}/override", h.HandleSaveOverride)
			s.Post("/slots/{slot}/lock", h.HandleToggleLock)
			s.Get("/slots/{slot}/preview", h.HandlePreview)

			s.Get("/package", h.HandlePackage)
			s.Post("/publish", h.HandlePublish)
		})
	})

	return r
}

// cors allows the configured browser origins to call the API.
func cors(origins []string) func(http.Handler) http.Handler {
	allowAll := slices.Contains(origins, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || slices.Contains(origins, origin)) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

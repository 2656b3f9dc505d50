package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all routes. health may be nil.
func SetupRoutes(h *Handlers, health *HealthChecker, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if health != nil {
		r.Get("/healthz", health.HandleHealth)
		r.Get("/healthz/live", health.HandleLiveness)
	} else {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	}

	r.Route("/api", func(r chi.Router) {
		// Entry intake
		r.Post("/forms/{formID}/entries", h.SubmitEntry)
		r.Get("/entries/{entryID}/notes", h.ListEntryNotes)

		// Settings
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.SaveSettings)
		r.Post("/settings/test", h.TestSettings)
		r.Post("/settings/feedback", h.SettingsFeedback)
		r.Get("/settings/status", h.SettingsStatus)
		r.Get("/custom-fields", h.ListCustomFields)

		// Feeds
		r.Get("/forms/{formID}/feeds", h.ListFeeds)
		r.Post("/forms/{formID}/feeds", h.CreateFeed)
		r.Route("/feeds/{feedID}", func(r chi.Router) {
			r.Get("/", h.GetFeed)
			r.Put("/", h.UpdateFeed)
			r.Delete("/", h.DeleteFeed)
			r.Put("/active", h.SetFeedActive)
			r.Post("/duplicate", h.DuplicateFeed)
			r.Get("/errors", h.ListFeedErrors)
		})
	})

	return r
}

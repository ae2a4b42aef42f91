package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpmiddleware "github.com/stepform/stepform/internal/http/middleware"
	"github.com/stepform/stepform/internal/submission"
	"github.com/stepform/stepform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	FormHandler    *submission.Handler
	MetricsHandler http.Handler

	AdminJWTSecret string

	SubmitRatePerSecond float64
	SubmitBurst         int

	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Route("/api/v1/forms", func(forms chi.Router) {
			forms.Get("/schema", cfg.FormHandler.GetPublicSchema)

			rate := cfg.SubmitRatePerSecond
			if rate <= 0 {
				rate = 1
			}
			burst := cfg.SubmitBurst
			if burst <= 0 {
				burst = 5
			}
			forms.With(httpmiddleware.RateLimit(rate, burst)).Post("/submit", cfg.FormHandler.SubmitForm)
		})
	})

	// Admin routes (protected by JWT)
	if cfg.AdminJWTSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret))

			admin.Get("/schema", cfg.FormHandler.GetSchema)
			admin.Put("/schema", cfg.FormHandler.PutSchema)
			admin.Get("/settings", cfg.FormHandler.GetSettings)
			admin.Put("/settings", cfg.FormHandler.PutSettings)

			admin.Route("/submissions", func(subs chi.Router) {
				subs.Get("/", cfg.FormHandler.ListSubmissions)
				subs.Delete("/", cfg.FormHandler.BulkDeleteSubmissions)
				subs.Get("/daily-counts", cfg.FormHandler.DailyCounts)
				subs.Route("/{id}", func(one chi.Router) {
					one.Get("/", cfg.FormHandler.GetSubmission)
					one.Put("/status", cfg.FormHandler.UpdateSubmissionStatus)
					one.Delete("/", cfg.FormHandler.DeleteSubmission)
				})
			})

			admin.Post("/notifications/test", cfg.FormHandler.SendTestNotification)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

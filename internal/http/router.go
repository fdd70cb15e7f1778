package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/amadvs/internal/core"
	"example.com/amadvs/internal/http/api"
	"example.com/amadvs/internal/http/middleware"
)

func Build(svc *api.Service, jwtv middleware.Validator, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/photos/{id}", svc.PhotoHandler)
	r.Get("/ws/sessions/{sid}", svc.WatchSessionHandler)

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/refresh", svc.RefreshHandler)
		r.Post("/sessions", svc.CreateSessionHandler)
		r.Route("/sessions/{sid}", func(r chi.Router) {
			r.Get("/", svc.GetSessionHandler)
			r.Delete("/", svc.DeleteSessionHandler)
			r.Post("/login", svc.LoginHandler)
			r.Post("/logout", svc.LogoutHandler)

			r.Post("/registration", svc.StartRegistrationHandler)
			r.Get("/registration", svc.GetRegistrationHandler)
			r.Patch("/registration", svc.PatchRegistrationHandler)
			r.Post("/registration/photo", svc.UploadPhotoHandler)
			r.Post("/registration/next", svc.NextStepHandler)
			r.Post("/registration/back", svc.PrevStepHandler)
			r.Post("/registration/submit", svc.SubmitRegistrationHandler)
		})

		// Protected endpoints
		r.Group(func(auth chi.Router) {
			auth.Use(middleware.AuthN(jwtv))
			auth.Get("/me", svc.MeHandler)

			// Director-only endpoints; directors cannot self-register
			auth.Group(func(admin chi.Router) {
				admin.Use(middleware.AuthZRoles(string(core.RoleDirector)))
				admin.Get("/admin/pending", svc.PendingHandler)
				admin.Post("/admin/users/{id}/approve", svc.ApproveHandler)
			})
		})
	})

	return r
}

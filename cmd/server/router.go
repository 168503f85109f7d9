package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/dibs-api/internal/api"
	"github.com/phrazzld/dibs-api/internal/api/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TraceMiddleware)
	r.Use(app.usage.Middleware)

	authHandler := api.NewAuthHandler(app.loginService, app.logger)
	authMiddleware := middleware.NewAuthMiddleware(app.jwtService)
	loanHandler := api.NewLoanHandler(app.loanService, app.logger)
	adminHandler := api.NewAdminHandler(app.adminService, app.loanService, app.usage, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.With(app.loginLimiter.Limit).Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Patron loan endpoints
			r.Get("/items/{barcode}/status", loanHandler.Status)
			r.Post("/items/{barcode}/loan", loanHandler.Grant)
			r.Post("/items/{barcode}/return", loanHandler.Return)

			// Staff endpoints
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireStaff)

				r.Get("/items", adminHandler.ListItems)
				r.Post("/items", adminHandler.AddItem)
				r.Put("/items/{barcode}", adminHandler.EditItem)
				r.Delete("/items/{barcode}", adminHandler.RemoveItem)
				r.Post("/items/{barcode}/ready", adminHandler.SetReady)
				r.Post("/items/{barcode}/close", adminHandler.CloseLoans)
				r.Get("/stats", adminHandler.Stats)
				r.Get("/usage", adminHandler.Usage)
			})
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := app.db.PingContext(r.Context()); err != nil {
			app.logger.Error("Health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

	return r
}

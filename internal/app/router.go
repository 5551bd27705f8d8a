package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"repolens/internal/response"
)

// initializeRouter configures all routes for the application
func (a *App) initializeRouter(router *mux.Router) {
	// Set custom error handlers for 404 and 405 responses
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "Route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Apply common middleware
	router.Use(a.loggingMiddleware)
	router.Use(a.recoveryMiddleware)

	// Liveness endpoints
	router.HandleFunc("/", a.healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/health", a.healthCheck).Methods(http.MethodGet)

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/analyze", a.analyze).Methods(http.MethodPost)
	api.HandleFunc("/analyze", a.analyzeHealth).Methods(http.MethodGet)

	api.HandleFunc("/analyses/recent", a.recentAnalyses).Methods(http.MethodGet)
	api.HandleFunc("/analyses/{owner}/{repo}", a.removeAnalysis).Methods(http.MethodDelete)

	api.HandleFunc("/share", a.createShareLink).Methods(http.MethodPost)
	api.HandleFunc("/share", a.resolveShareLink).Methods(http.MethodGet)
}

// loggingMiddleware logs information about each request
func (a *App) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Msg("Incoming request")

		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware recovers from panics and returns a 500 error
func (a *App) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				a.log.Error().
					Interface("error", err).
					Str("path", r.URL.Path).
					Msg("Panic recovered in request handler")

				response.Error(w, http.StatusInternalServerError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

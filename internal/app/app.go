package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"repolens/internal/config"
	"repolens/internal/ratelimit"
	"repolens/internal/service"
)

// App wires the HTTP surface to the analysis service
type App struct {
	cfg     *config.Config
	log     zerolog.Logger
	service *service.Service
	limiter *ratelimit.Limiter
	server  *http.Server
}

func New(cfg *config.Config, log zerolog.Logger, svc *service.Service, limiter *ratelimit.Limiter) (*App, error) {
	app := &App{
		cfg:     cfg,
		log:     log,
		service: svc,
		limiter: limiter,
	}

	router := mux.NewRouter()
	app.initializeRouter(router)

	app.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// WriteTimeout must cover the whole SSE relay, which the
		// service already bounds with its own stream deadline.
		WriteTimeout: cfg.Server.StreamTimeout + 30*time.Second,
	}

	return app, nil
}

func (a *App) Run(ctx context.Context) error {
	go a.limiter.Start(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.log.Error().Err(err).Msg("Failed to shutdown server gracefully")
		}
	}()

	a.log.Info().Msgf("Starting server on port %d", a.cfg.Server.Port)
	if err := a.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

func (a *App) Close() error {
	return a.service.Close()
}

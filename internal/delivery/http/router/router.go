package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/nextdoor-crawler/internal/delivery/http/handler"
	"github.com/user/nextdoor-crawler/internal/delivery/http/middleware"
	"github.com/user/nextdoor-crawler/pkg/metrics"
)

func New(h *handler.Handler, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(m))
	r.Use(chimw.Timeout(30 * time.Second))

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/api/health", h.HandleHealthCheck)

	r.Route("/api/posts", func(r chi.Router) {
		r.Get("/status", h.HandleGetPostStatus)
		r.Get("/unprocessed", h.HandleListUnprocessed)
	})

	return r
}

// Serve runs the ops server on addr until ctx is done, then shuts it down.
func Serve(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting ops server", zap.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	logger.Info("shutting down ops server")
	return server.Shutdown(shutdownCtx)
}

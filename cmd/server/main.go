package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"mokjang/internal/platform/config"
	"mokjang/internal/platform/httpserver"
	"mokjang/internal/platform/logger"
	"mokjang/internal/platform/metrics"
	"mokjang/internal/server/handler"
	"mokjang/internal/server/hub"
	"mokjang/internal/server/store"
)

// main wires the reference attendance backend: in-memory roster store,
// REST handlers, and the push fan-out hub. Business logic lives in the
// internal packages.
func main() {
	cfg := config.ServerFromEnv()
	log := logger.New()
	m := metrics.New(nil)

	st := store.NewInMemory()
	store.SeedSampleRoster(st)

	h := hub.New(log, m)
	api := handler.New(st, h, log, m)

	router := chi.NewRouter()
	api.Register(router)
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting attendance backend", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		h.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("backend exited", "error", err.Error())
		os.Exit(1)
	}
	log.Info("backend stopped")
}

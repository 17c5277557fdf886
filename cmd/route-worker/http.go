package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/FreshTrack/internal/metrics"
	"github.com/BearBump/FreshTrack/internal/services/routes"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
)

type workerHTTPOpts struct {
	swaggerPath string

	worker   *routes.Worker
	settings workerSettings
	provider string
	metrics  *metrics.Metrics
}

func runWorkerHTTPServer(ctx context.Context, lis net.Listener, opts workerHTTPOpts) error {
	srv := &http.Server{Handler: newWorkerRouter(opts), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func newWorkerRouter(opts workerHTTPOpts) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.worker == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"not ready"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.worker == nil {
			_, _ = w.Write([]byte(`{"error":"worker not wired"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(opts.worker.Stats())
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// ключи геокодера не отдаём
		s := opts.settings
		out := map[string]any{
			"geocoderProvider":         opts.provider,
			"requestsTopic":            s.requestsTopic,
			"derivedTopic":             s.derivedTopic,
			"consumerGroup":            s.consumerGroup,
			"sampleStride":             s.stride,
			"requestDelayMs":           s.delay.Milliseconds(),
			"derivationTimeoutSeconds": int64(s.derivationTimeout / time.Second),
			"geocoderTimeoutSeconds":   int64(s.geocoderTimeout / time.Second),
			"geocoderMaxAttempts":      s.geocoderMaxAttempts,
			"geocoderRatePerMinute":    s.geocoderRatePerMin,
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	if opts.metrics != nil {
		r.Handle("/metrics", opts.metrics.Handler())
	}

	if opts.swaggerPath != "" {
		r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			http.ServeFile(w, r, opts.swaggerPath)
		})
		swaggerURL := "/swagger.json"
		if fi, err := os.Stat(opts.swaggerPath); err == nil {
			swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
		}
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))
	}

	return r
}

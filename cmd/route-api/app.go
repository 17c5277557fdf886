package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/FreshTrack/internal/api/worksapi"
	"github.com/BearBump/FreshTrack/internal/broker/messages"
	"github.com/BearBump/FreshTrack/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

const consumerRestartDelay = 2 * time.Second

type routeAPIOpts struct {
	httpAddr    string
	swaggerPath string

	topic         string
	consumerGroup string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

type derivedApplier interface {
	ApplyDerived(ctx context.Context, msg messages.WorkRouteDerived) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type routeAPIDeps struct {
	api      *worksapi.WorksAPI
	derived  derivedApplier
	consumer kafkaConsumer
	metrics  *metrics.Metrics
	pingers  []pinger
}

func runRouteAPI(ctx context.Context, opts routeAPIOpts, deps routeAPIDeps) error {
	if opts.swaggerPath == "" {
		return fmt.Errorf("swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runHTTPServer(ctx, lis, newRouter(opts.swaggerPath, deps))
	}()

	if deps.consumer != nil && deps.derived != nil {
		go consumeDerived(ctx, opts, deps)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	}
}

// consumeDerived применяет готовые маршруты из route-worker. Если консьюмер упал
// на ошибке хранилища, чтение возобновляется после паузы.
func consumeDerived(ctx context.Context, opts routeAPIOpts, deps routeAPIDeps) {
	slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
	for {
		err := deps.consumer.Consume(ctx, func(_key, value []byte) error {
			var m messages.WorkRouteDerived
			if err := json.Unmarshal(value, &m); err != nil {
				slog.Warn("skip malformed derived route", "err", err)
				return nil
			}
			return deps.derived.ApplyDerived(ctx, m)
		})
		if ctx.Err() != nil {
			return
		}
		slog.Error("kafka consumer stopped, restarting", "topic", opts.topic, "err", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(consumerRestartDelay):
		}
	}
}

func newRouter(swaggerPath string, deps routeAPIDeps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, p := range deps.pingers {
			if err := p.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "degraded", "error": err.Error()})
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if deps.metrics != nil {
		r.Handle("/metrics", deps.metrics.Handler())
	}

	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, swaggerPath)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger.json"),
	))

	if deps.api != nil {
		r.Mount("/api", deps.api.Routes())
	}
	return r
}

func runHTTPServer(ctx context.Context, lis net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

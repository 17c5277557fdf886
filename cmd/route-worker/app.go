package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/BearBump/FreshTrack/config"
	"github.com/BearBump/FreshTrack/internal/broker/kafka"
	"github.com/BearBump/FreshTrack/internal/cache/rediscache"
	"github.com/BearBump/FreshTrack/internal/integrations/geocoder"
	"github.com/BearBump/FreshTrack/internal/integrations/geocoder/provider"
	"github.com/BearBump/FreshTrack/internal/metrics"
	"github.com/BearBump/FreshTrack/internal/services/geocoding"
	"github.com/BearBump/FreshTrack/internal/services/routes"
	"github.com/redis/go-redis/v9"
)

type workerFactories struct {
	newConsumer       func(cfg *config.Config, topic, group string) (c routes.Consumer, closeFn func())
	newProducer       func(cfg *config.Config) (p routes.Producer, closeFn func())
	newRedis          func(cfg *config.Config) *redis.Client
	newGeocoderClient func(cfg *config.Config) (geocoder.Client, string)
}

func brokersOf(cfg *config.Config) []string {
	return []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newConsumer: func(cfg *config.Config, topic, group string) (routes.Consumer, func()) {
			c := kafka.NewConsumer(brokersOf(cfg), topic, group)
			return c, func() { _ = c.Close() }
		},
		newProducer: func(cfg *config.Config) (routes.Producer, func()) {
			p := kafka.NewProducer(brokersOf(cfg))
			return p, func() { _ = p.Close() }
		},
		newRedis: func(cfg *config.Config) *redis.Client {
			if cfg.Redis.Host == "" {
				return nil
			}
			return rediscache.NewClient(fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port), cfg.Redis.Password, cfg.Redis.DB)
		},
		newGeocoderClient: func(cfg *config.Config) (geocoder.Client, string) {
			ft := cfg.FreshTrack
			return provider.New(ft.GeocoderProvider, ft.GeocoderBaseURL, ft.GeocoderUserAgent, ft.GeocoderAPIKeys)
		},
	}
}

type workerSettings struct {
	httpAddr      string
	consumerGroup string
	requestsTopic string
	derivedTopic  string

	stride            int
	delay             time.Duration
	derivationTimeout time.Duration

	geocoderTimeout     time.Duration
	geocoderMaxAttempts int
	geocoderCacheTTL    time.Duration
	geocoderRatePerMin  int64
}

func workerSettingsFromConfig(cfg *config.Config) workerSettings {
	ft := cfg.FreshTrack
	s := workerSettings{
		httpAddr:            ft.WorkerHTTPAddr,
		consumerGroup:       ft.WorkerKafkaConsumerGroup,
		requestsTopic:       cfg.Kafka.DerivationRequestsTopicName,
		derivedTopic:        cfg.Kafka.DerivedRoutesTopicName,
		stride:              ft.RouteSampleStride,
		delay:               time.Duration(ft.RouteRequestDelayMs) * time.Millisecond,
		derivationTimeout:   time.Duration(ft.RouteDerivationTimeoutSeconds) * time.Second,
		geocoderTimeout:     time.Duration(ft.GeocoderTimeoutSeconds) * time.Second,
		geocoderMaxAttempts: ft.GeocoderMaxAttempts,
		geocoderCacheTTL:    time.Duration(ft.GeocoderCacheTTLSeconds) * time.Second,
		geocoderRatePerMin:  int64(ft.GeocoderRateLimitPerMinute),
	}
	if s.httpAddr == "" {
		s.httpAddr = ":8082"
	}
	if s.consumerGroup == "" {
		s.consumerGroup = "route-worker"
	}
	if s.requestsTopic == "" {
		s.requestsTopic = "route.derivation.requested"
	}
	if s.derivedTopic == "" {
		s.derivedTopic = "work.route.derived"
	}
	if s.stride <= 0 {
		s.stride = routes.DefaultStride
	}
	if s.delay <= 0 {
		s.delay = routes.DefaultDelay
	}
	if s.derivationTimeout <= 0 {
		s.derivationTimeout = 10 * time.Minute
	}
	if s.geocoderTimeout <= 0 {
		s.geocoderTimeout = 10 * time.Second
	}
	if s.geocoderMaxAttempts <= 0 {
		s.geocoderMaxAttempts = 3
	}
	if s.geocoderCacheTTL <= 0 {
		s.geocoderCacheTTL = 24 * time.Hour
	}
	if s.geocoderRatePerMin <= 0 {
		s.geocoderRatePerMin = 60
	}
	return s
}

type workerRunOpts struct {
	swaggerPath string
	onListen    func(httpAddr string)
}

// RunRouteWorker поднимает вывод маршрутов из Kafka и служебный HTTP рядом с ним.
func RunRouteWorker(ctx context.Context, cfg *config.Config, f workerFactories, opts workerRunOpts) error {
	s := workerSettingsFromConfig(cfg)
	m := metrics.New()

	geoClient, geoProvider := f.newGeocoderClient(cfg)
	adapter := geocoding.New(geoClient, geoProvider).
		WithSettings(s.geocoderTimeout, s.geocoderMaxAttempts, 0).
		WithMetrics(m)
	if rc := f.newRedis(cfg); rc != nil {
		defer func() { _ = rc.Close() }()
		adapter = adapter.
			WithCache(rediscache.New(rc, "freshtrack:geo"), s.geocoderCacheTTL).
			WithRateLimiter(rediscache.NewRateLimiter(rc), s.geocoderRatePerMin)
	}

	consumer, closeConsumer := f.newConsumer(cfg, s.requestsTopic, s.consumerGroup)
	if closeConsumer != nil {
		defer closeConsumer()
	}
	producer, closeProducer := f.newProducer(cfg)
	if closeProducer != nil {
		defer closeProducer()
	}

	w := routes.NewWorker(consumer, producer, routes.NewSampler(adapter), s.derivedTopic).
		WithSettings(s.stride, s.delay, s.derivationTimeout).
		WithMetrics(m)

	lis, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runWorkerHTTPServer(ctx, lis, workerHTTPOpts{
			swaggerPath: opts.swaggerPath,
			worker:      w,
			settings:    s,
			provider:    geoProvider,
			metrics:     m,
		})
	}()

	slog.Info("route-worker configured", "geocoder", geoProvider, "requests_topic", s.requestsTopic)

	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	case err := <-runErr:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
}

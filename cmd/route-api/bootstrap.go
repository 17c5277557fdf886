package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/FreshTrack/config"
	"github.com/BearBump/FreshTrack/internal/api/worksapi"
	"github.com/BearBump/FreshTrack/internal/broker/kafka"
	"github.com/BearBump/FreshTrack/internal/cache/rediscache"
	"github.com/BearBump/FreshTrack/internal/integrations/geocoder"
	"github.com/BearBump/FreshTrack/internal/integrations/geocoder/provider"
	"github.com/BearBump/FreshTrack/internal/metrics"
	"github.com/BearBump/FreshTrack/internal/services/geocoding"
	"github.com/BearBump/FreshTrack/internal/services/routes"
	"github.com/BearBump/FreshTrack/internal/services/telemetry"
	"github.com/BearBump/FreshTrack/internal/services/works"
	"github.com/BearBump/FreshTrack/internal/storage/mongowork"
	"github.com/BearBump/FreshTrack/internal/storage/pgwork"
	"github.com/redis/go-redis/v9"
)

// workStore: то, что умеют обе реализации хранилища.
type workStore interface {
	works.Repository
	Ping(ctx context.Context) error
	Close()
}

type apiSettings struct {
	httpAddr      string
	consumerGroup string

	requestsTopic string
	derivedTopic  string
	eventsTopic   string

	geocoderTimeout     time.Duration
	geocoderMaxAttempts int
	geocoderCacheTTL    time.Duration
	geocoderRatePerMin  int64

	stride            int
	delay             time.Duration
	derivationTimeout time.Duration

	telemetryInterval time.Duration
	elapsedInterval   time.Duration
	fetchTimeout      time.Duration
}

func apiSettingsFromConfig(cfg *config.Config) apiSettings {
	ft := cfg.FreshTrack
	s := apiSettings{
		httpAddr:            ft.HTTPAddr,
		consumerGroup:       ft.KafkaConsumerGroup,
		requestsTopic:       cfg.Kafka.DerivationRequestsTopicName,
		derivedTopic:        cfg.Kafka.DerivedRoutesTopicName,
		eventsTopic:         cfg.Kafka.WorkEventsTopicName,
		geocoderTimeout:     time.Duration(ft.GeocoderTimeoutSeconds) * time.Second,
		geocoderMaxAttempts: ft.GeocoderMaxAttempts,
		geocoderCacheTTL:    time.Duration(ft.GeocoderCacheTTLSeconds) * time.Second,
		geocoderRatePerMin:  int64(ft.GeocoderRateLimitPerMinute),
		stride:              ft.RouteSampleStride,
		delay:               time.Duration(ft.RouteRequestDelayMs) * time.Millisecond,
		derivationTimeout:   time.Duration(ft.RouteDerivationTimeoutSeconds) * time.Second,
		telemetryInterval:   time.Duration(ft.TelemetryPollIntervalMs) * time.Millisecond,
		elapsedInterval:     time.Duration(ft.ElapsedTickIntervalMs) * time.Millisecond,
		fetchTimeout:        time.Duration(ft.TelemetryFetchTimeoutMs) * time.Millisecond,
	}

	if s.httpAddr == "" {
		s.httpAddr = ":8080"
	}
	if s.consumerGroup == "" {
		s.consumerGroup = "route-api"
	}
	if s.requestsTopic == "" {
		s.requestsTopic = "route.derivation.requested"
	}
	if s.derivedTopic == "" {
		s.derivedTopic = "work.route.derived"
	}
	if s.eventsTopic == "" {
		s.eventsTopic = "work.events"
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
		// публичный Nominatim разрешает 1 запрос в секунду
		s.geocoderRatePerMin = 60
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
	if s.telemetryInterval <= 0 {
		s.telemetryInterval = telemetry.DefaultTelemetryInterval
	}
	if s.elapsedInterval <= 0 {
		s.elapsedInterval = telemetry.DefaultElapsedInterval
	}
	if s.fetchTimeout <= 0 {
		s.fetchTimeout = telemetry.DefaultFetchTimeout
	}
	return s
}

func newGeocoderClient(cfg *config.Config) (geocoder.Client, string) {
	ft := cfg.FreshTrack
	return provider.New(ft.GeocoderProvider, ft.GeocoderBaseURL, ft.GeocoderUserAgent, ft.GeocoderAPIKeys)
}

func postgresConnString(cfg *config.Config) string {
	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
}

func mustOpenStore(cfg *config.Config, wait time.Duration) workStore {
	switch cfg.Storage.Driver {
	case "mongo":
		database := cfg.Mongo.Database
		if database == "" {
			database = "freshgoods"
		}
		return mustOpenMongoWithRetry(cfg.Mongo.URI, database, wait)
	default:
		return mustOpenPostgresWithRetry(postgresConnString(cfg), wait)
	}
}

type routeAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc

	opts     routeAPIOpts
	deps     routeAPIDeps
	tracker  *telemetry.Tracker
	consumer *kafka.Consumer
	producer *kafka.Producer
	redis    *redis.Client
	store    workStore
}

func mustBootstrapRouteAPI() *routeAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}
	s := apiSettingsFromConfig(cfg)

	st := mustOpenStore(cfg, 60*time.Second)
	m := metrics.New()

	rc := rediscache.NewClient(fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port), cfg.Redis.Password, cfg.Redis.DB)
	districtCache := rediscache.New(rc, "freshtrack:geo")
	rl := rediscache.NewRateLimiter(rc)

	geoClient, geoProvider := newGeocoderClient(cfg)
	adapter := geocoding.New(geoClient, geoProvider).
		WithSettings(s.geocoderTimeout, s.geocoderMaxAttempts, 0).
		WithCache(districtCache, s.geocoderCacheTTL).
		WithRateLimiter(rl, s.geocoderRatePerMin).
		WithMetrics(m)
	sampler := routes.NewSampler(adapter)

	poller := telemetry.New(st).WithFetchTimeout(s.fetchTimeout)
	tracker := telemetry.NewTracker(poller).
		WithIntervals(s.telemetryInterval, s.elapsedInterval).
		WithMetrics(m)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)
	consumer := kafka.NewConsumer(brokers, s.derivedTopic, s.consumerGroup)

	worksSvc := works.New(st).
		WithEvents(producer, s.eventsTopic).
		WithTracker(tracker).
		WithMetrics(m)
	routesSvc := routes.New(sampler, worksSvc).
		WithSettings(s.stride, s.delay, s.derivationTimeout).
		WithProducer(producer, s.requestsTopic).
		WithMetrics(m)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// доставки, которые уже в пути, продолжают отслеживаться после рестарта
	if err := tracker.Rehydrate(ctx, worksSvc); err != nil {
		slog.Warn("rehydrate delivery tracking", "err", err)
	}

	slog.Info("route-api configured",
		"storage", cfg.Storage.Driver, "geocoder", geoProvider,
		"stride", s.stride, "delay", s.delay.String())

	return &routeAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: routeAPIOpts{
			httpAddr:      s.httpAddr,
			swaggerPath:   swaggerPath,
			topic:         s.derivedTopic,
			consumerGroup: s.consumerGroup,
		},
		deps: routeAPIDeps{
			api:      worksapi.New(worksSvc, routesSvc, tracker),
			derived:  routesSvc,
			consumer: consumer,
			metrics:  m,
			pingers:  []pinger{st, districtCache},
		},
		tracker:  tracker,
		consumer: consumer,
		producer: producer,
		redis:    rc,
		store:    st,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgwork.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgwork.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func mustOpenMongoWithRetry(uri, database string, wait time.Duration) *mongowork.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		st, err := mongowork.New(ctx, uri, database)
		cancel()
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("mongo is not ready after %s: %v", wait, lastErr))
}

func (a *routeAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.tracker != nil {
		a.tracker.Close()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.producer != nil {
		_ = a.producer.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

func (a *routeAPIApp) Run() error {
	return runRouteAPI(a.ctx, a.opts, a.deps)
}

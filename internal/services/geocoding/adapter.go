package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/FreshTrack/internal/cache"
	"github.com/BearBump/FreshTrack/internal/integrations/geocoder"
	"github.com/BearBump/FreshTrack/internal/metrics"
	"github.com/BearBump/FreshTrack/internal/models"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
	MinuteKey(scope string) string
}

// Adapter превращает любой сбой провайдера в "района нет": наружу ошибки не уходят.
type Adapter struct {
	client   geocoder.Client
	provider string

	cache    cache.BytesCache
	cacheTTL time.Duration

	rl                 RateLimiter
	rateLimitPerMinute int64

	metrics *metrics.Metrics

	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration

	sf    singleflight.Group
	sleep func(ctx context.Context, d time.Duration) error
}

func New(client geocoder.Client, provider string) *Adapter {
	return &Adapter{
		client:      client,
		provider:    provider,
		timeout:     10 * time.Second,
		maxAttempts: 3,
		backoff:     500 * time.Millisecond,
		sleep:       sleepCtx,
	}
}

func (a *Adapter) WithSettings(timeout time.Duration, maxAttempts int, backoff time.Duration) *Adapter {
	if timeout > 0 {
		a.timeout = timeout
	}
	if maxAttempts > 0 {
		a.maxAttempts = maxAttempts
	}
	if backoff > 0 {
		a.backoff = backoff
	}
	return a
}

func (a *Adapter) WithCache(c cache.BytesCache, ttl time.Duration) *Adapter {
	a.cache = c
	a.cacheTTL = ttl
	return a
}

func (a *Adapter) WithRateLimiter(rl RateLimiter, perMinute int64) *Adapter {
	a.rl = rl
	a.rateLimitPerMinute = perMinute
	return a
}

func (a *Adapter) WithMetrics(m *metrics.Metrics) *Adapter {
	a.metrics = m
	return a
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("district:%.4f:%.4f", lat, lon)
}

// ResolveDistrict возвращает район для точки или ok=false.
func (a *Adapter) ResolveDistrict(ctx context.Context, lat, lon float64) (string, bool) {
	if !(models.Coordinate{Latitude: lat, Longitude: lon}).Valid() {
		a.metrics.GeocodeOutcome(metrics.OutcomeNone)
		return "", false
	}

	key := cacheKey(lat, lon)
	if a.cache != nil && a.cacheTTL > 0 {
		b, ok, err := a.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("district cache get", "key", key, "error", err.Error())
		} else if ok && len(b) > 0 {
			a.metrics.GeocodeOutcome(metrics.OutcomeCached)
			return string(b), true
		}
	}

	// общий запрос не зависит от отмены того, кто его начал: остальные ждут того же ответа
	shared := context.WithoutCancel(ctx)
	ch := a.sf.DoChan(key, func() (interface{}, error) {
		return a.lookup(shared, key, lat, lon), nil
	})
	select {
	case <-ctx.Done():
		return "", false
	case r := <-ch:
		d, _ := r.Val.(string)
		return d, d != ""
	}
}

func (a *Adapter) lookup(ctx context.Context, key string, lat, lon float64) string {
	if a.rl != nil && a.rateLimitPerMinute > 0 {
		allowed, n, err := a.rl.Allow(ctx, a.rl.MinuteKey("geocoder:"+a.provider), a.rateLimitPerMinute, 70*time.Second)
		if err != nil {
			// лимитер недоступен: не блокируем геокодирование
			slog.Warn("geocoder rate limiter", "error", err.Error())
		} else if !allowed {
			slog.Warn("geocoder rate limit exceeded", "provider", a.provider, "count", n)
			a.metrics.GeocodeOutcome(metrics.OutcomeRateLimited)
			return ""
		}
	}

	d, err := a.doWithRetry(ctx, lat, lon)
	switch {
	case err == nil:
		a.metrics.GeocodeOutcome(metrics.OutcomeResolved)
	case errors.Is(err, geocoder.ErrNoDistrict):
		a.metrics.GeocodeOutcome(metrics.OutcomeNone)
		return ""
	default:
		slog.Warn("reverse geocoding failed", "provider", a.provider, "lat", lat, "lon", lon, "error", err.Error())
		a.metrics.GeocodeOutcome(metrics.OutcomeError)
		return ""
	}

	if a.cache != nil && a.cacheTTL > 0 {
		if err := a.cache.Set(ctx, key, []byte(d), a.cacheTTL); err != nil {
			slog.Warn("district cache set", "key", key, "error", err.Error())
		}
	}
	return d
}

func (a *Adapter) doWithRetry(ctx context.Context, lat, lon float64) (string, error) {
	var lastErr error
	delay := a.backoff
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		d, err := a.reverseOnce(ctx, lat, lon)
		if err == nil {
			return d, nil
		}
		lastErr = err
		if !errors.Is(err, geocoder.ErrRetryable) || attempt == a.maxAttempts {
			break
		}
		if err := a.sleep(ctx, delay); err != nil {
			return "", errors.Wrap(err, "retry wait")
		}
		delay *= 2
	}
	return "", lastErr
}

func (a *Adapter) reverseOnce(ctx context.Context, lat, lon float64) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.client.ReverseDistrict(callCtx, lat, lon)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

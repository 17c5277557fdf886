package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/BearBump/FreshTrack/internal/models"
	"github.com/pkg/errors"
)

const (
	DefaultTelemetryInterval = 5 * time.Second
	DefaultElapsedInterval   = time.Second
	DefaultFetchTimeout      = 4 * time.Second
)

type SampleSource interface {
	LatestSample(ctx context.Context, deviceID string) (*models.SensorSample, error)
}

type Poller struct {
	source       SampleSource
	fetchTimeout time.Duration
	now          func() time.Time
}

func New(source SampleSource) *Poller {
	return &Poller{
		source:       source,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
	}
}

func (p *Poller) WithFetchTimeout(d time.Duration) *Poller {
	if d > 0 {
		p.fetchTimeout = d
	}
	return p
}

// SubscribeTelemetry опрашивает последний замер устройства сразу и затем раз в interval.
// Ошибка чтения не останавливает подписку: она уходит в onWarning, следующий тик пробует снова.
func (p *Poller) SubscribeTelemetry(
	deviceID string,
	interval time.Duration,
	onSample func(models.SensorSample),
	onWarning func(error),
) *Subscription {
	if interval <= 0 {
		interval = DefaultTelemetryInterval
	}
	sub := newSubscription()

	go func() {
		defer close(sub.done)
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			// тик мог быть выбран уже после Cancel
			if sub.ctx.Err() != nil {
				return
			}
			p.fetchOnce(sub, deviceID, onSample, onWarning)
			select {
			case <-sub.ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
	return sub
}

func (p *Poller) fetchOnce(sub *Subscription, deviceID string, onSample func(models.SensorSample), onWarning func(error)) {
	if sub.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(sub.ctx, p.fetchTimeout)
	defer cancel()

	smp, err := p.source.LatestSample(ctx, deviceID)
	if sub.ctx.Err() != nil {
		return
	}
	if err != nil {
		var w error
		if errors.Is(err, models.ErrNotFound) {
			w = errors.Wrapf(models.ErrNotFound, "no sensor data for device %s", deviceID)
		} else {
			w = errors.Wrapf(models.ErrUpstreamUnavailable, "fetch sensor data: %v", err)
		}
		if onWarning != nil {
			sub.deliver(func() { onWarning(w) })
		}
		return
	}
	if onSample != nil && smp != nil {
		sub.deliver(func() { onSample(*smp) })
	}
}

// SubscribeElapsed публикует прошедшие секунды от startTime сразу и затем раз в interval.
func (p *Poller) SubscribeElapsed(startTime time.Time, interval time.Duration, onTick func(int64)) *Subscription {
	if interval <= 0 {
		interval = DefaultElapsedInterval
	}
	sub := newSubscription()

	go func() {
		defer close(sub.done)
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			if sub.ctx.Err() != nil {
				return
			}
			secs := ElapsedSeconds(startTime, p.now())
			if onTick != nil {
				sub.deliver(func() { onTick(secs) })
			}
			select {
			case <-sub.ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
	return sub
}

// ElapsedSeconds: целые секунды от start до now, не меньше нуля.
func ElapsedSeconds(start, now time.Time) int64 {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// FormatElapsed: 3661 -> "1h 1m 1s".
func FormatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

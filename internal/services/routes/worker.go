package routes

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/FreshTrack/internal/broker/messages"
	"github.com/BearBump/FreshTrack/internal/metrics"
	"github.com/pkg/errors"
)

type Consumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

// Worker: сторона route-worker: читает запросы на вывод маршрута, геокодирует и публикует результат.
// Сообщения обрабатываются по одному, поэтому пауза между запросами к геокодеру соблюдается.
type Worker struct {
	consumer Consumer
	producer Producer
	sampler  *Sampler

	derivedTopic string

	stride  int
	delay   time.Duration
	timeout time.Duration

	publishAttempts int
	metrics         *metrics.Metrics

	startedAtUnixNano int64
	lastDoneUnixNano  atomic.Int64
	totalReceived     atomic.Int64
	totalDerived      atomic.Int64
	totalEmpty        atomic.Int64
	totalErrors       atomic.Int64
	inFlight          atomic.Int64
	lastErrorMu       sync.Mutex
	lastError         string
}

func NewWorker(consumer Consumer, producer Producer, sampler *Sampler, derivedTopic string) *Worker {
	return &Worker{
		consumer:          consumer,
		producer:          producer,
		sampler:           sampler,
		derivedTopic:      derivedTopic,
		stride:            DefaultStride,
		delay:             DefaultDelay,
		timeout:           10 * time.Minute,
		publishAttempts:   10,
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (w *Worker) WithSettings(stride int, delay, timeout time.Duration) *Worker {
	if stride > 0 {
		w.stride = stride
	}
	if delay >= 0 {
		w.delay = delay
	}
	if timeout > 0 {
		w.timeout = timeout
	}
	return w
}

func (w *Worker) WithMetrics(m *metrics.Metrics) *Worker {
	w.metrics = m
	return w
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastDoneAt    *time.Time `json:"lastDoneAt,omitempty"`
	TotalReceived int64      `json:"totalReceived"`
	TotalDerived  int64      `json:"totalDerived"`
	TotalEmpty    int64      `json:"totalEmpty"`
	TotalErrors   int64      `json:"totalErrors"`
	InFlight      int64      `json:"inFlight"`
	LastError     string     `json:"lastError,omitempty"`
}

func (w *Worker) Stats() Stats {
	st := Stats{
		StartedAt:     time.Unix(0, w.startedAtUnixNano).UTC(),
		TotalReceived: w.totalReceived.Load(),
		TotalDerived:  w.totalDerived.Load(),
		TotalEmpty:    w.totalEmpty.Load(),
		TotalErrors:   w.totalErrors.Load(),
		InFlight:      w.inFlight.Load(),
	}
	if n := w.lastDoneUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastDoneAt = &t
	}
	w.lastErrorMu.Lock()
	st.LastError = w.lastError
	w.lastErrorMu.Unlock()
	return st
}

func (w *Worker) setError(err error) {
	w.totalErrors.Add(1)
	w.lastErrorMu.Lock()
	w.lastError = err.Error()
	w.lastErrorMu.Unlock()
}

func (w *Worker) Run(ctx context.Context) error {
	slog.Info("route worker started", "derived_topic", w.derivedTopic, "stride", w.stride, "delay", w.delay.String())
	return w.consumer.Consume(ctx, func(_, value []byte) error {
		return w.Handle(ctx, value)
	})
}

// Handle обрабатывает одно сообщение RouteDerivationRequested.
// Битое сообщение пропускается; ошибка публикации возвращается, чтобы сообщение не закоммитилось.
func (w *Worker) Handle(ctx context.Context, value []byte) error {
	w.totalReceived.Add(1)
	w.inFlight.Add(1)
	defer w.inFlight.Add(-1)

	var req messages.RouteDerivationRequested
	if err := json.Unmarshal(value, &req); err != nil {
		w.setError(err)
		slog.Error("bad derivation request", "error", err.Error())
		return nil
	}

	out := messages.WorkRouteDerived{
		RequestID:     req.RequestID,
		WorkID:        req.WorkID,
		SampledPoints: SampleCount(len(req.Polyline), w.stride),
	}
	if req.WorkID == "" || len(req.Polyline) == 0 {
		e := "work_id and a non-empty polyline are required"
		out.Error = &e
		out.Districts = []string{}
	} else {
		started := time.Now()
		dctx, cancel := context.WithTimeout(ctx, w.timeout)
		out.Districts = w.sampler.DeriveDistricts(dctx, req.Polyline, w.stride, w.delay)
		derr := dctx.Err()
		cancel()
		w.metrics.ObserveDerivation(time.Since(started))
		if ctx.Err() == nil && derr != nil {
			e := "route derivation timed out after " + w.timeout.String()
			out.Error = &e
			out.Districts = []string{}
			w.setError(errors.New(e))
			slog.Warn("route derivation timed out", "work_id", req.WorkID, "request_id", req.RequestID)
		}
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "derivation interrupted")
	}
	out.DerivedAt = time.Now().UTC()

	if out.Error == nil && len(out.Districts) == 0 {
		w.totalEmpty.Add(1)
	}

	b, err := json.Marshal(out)
	if err != nil {
		w.setError(err)
		return errors.Wrap(err, "marshal derived route")
	}
	if err := w.publish(ctx, []byte(req.WorkID), b); err != nil {
		w.setError(err)
		slog.Error("publish derived route", "work_id", req.WorkID, "request_id", req.RequestID, "error", err.Error())
		return err
	}

	w.totalDerived.Add(1)
	w.lastDoneUnixNano.Store(time.Now().UTC().UnixNano())
	slog.Info("route derived", "work_id", req.WorkID, "request_id", req.RequestID, "districts", out.Districts)
	return nil
}

// Kafka может быть не готова сразу после старта docker compose, поэтому небольшой retry.
func (w *Worker) publish(ctx context.Context, key, value []byte) error {
	var pubErr error
	for i := 0; i < w.publishAttempts; i++ {
		if pubErr = w.producer.Publish(ctx, w.derivedTopic, key, value); pubErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "publish derived route")
		case <-time.After(time.Duration(150*(i+1)) * time.Millisecond):
		}
	}
	return pubErr
}

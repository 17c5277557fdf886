package routes

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BearBump/FreshTrack/internal/broker/messages"
	"github.com/BearBump/FreshTrack/internal/metrics"
	"github.com/BearBump/FreshTrack/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type WorkStore interface {
	GetWork(ctx context.Context, id string) (*models.Work, error)
	OverwriteRoute(ctx context.Context, id string, districts []string) (*models.Work, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RouteRequest struct {
	WorkID      string
	Source      *models.Coordinate
	Destination *models.Coordinate
	Polyline    []models.Coordinate
}

// RouteResult: Empty=true значит, что ни одного района не нашлось и маршрут не записывался.
type RouteResult struct {
	Districts []string
	Work      *models.Work
	Empty     bool
}

type Service struct {
	sampler *Sampler
	works   WorkStore

	producer      Producer
	requestsTopic string

	stride  int
	delay   time.Duration
	timeout time.Duration

	metrics *metrics.Metrics
	now     func() time.Time
}

func New(sampler *Sampler, works WorkStore) *Service {
	return &Service{
		sampler: sampler,
		works:   works,
		stride:  DefaultStride,
		delay:   DefaultDelay,
		timeout: 10 * time.Minute,
		now:     time.Now,
	}
}

func (s *Service) WithSettings(stride int, delay, timeout time.Duration) *Service {
	if stride > 0 {
		s.stride = stride
	}
	if delay >= 0 {
		s.delay = delay
	}
	if timeout > 0 {
		s.timeout = timeout
	}
	return s
}

func (s *Service) WithProducer(p Producer, requestsTopic string) *Service {
	s.producer = p
	s.requestsTopic = requestsTopic
	return s
}

func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

func (s *Service) validate(ctx context.Context, req RouteRequest) error {
	if len(req.Polyline) == 0 {
		return errors.Wrap(models.ErrInvalidInput, "route must be a non-empty list of points")
	}
	// работа должна существовать до того, как тратить минуты на геокодирование
	_, err := s.works.GetWork(ctx, req.WorkID)
	return err
}

// SubmitRoute выводит районы из полилинии и записывает их маршрутом работы.
func (s *Service) SubmitRoute(ctx context.Context, req RouteRequest) (*RouteResult, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	slog.Info("route received, deriving districts",
		"work_id", req.WorkID, "points", len(req.Polyline), "samples", SampleCount(len(req.Polyline), s.stride))

	started := s.now()
	dctx, cancel := context.WithTimeout(ctx, s.timeout)
	districts := s.sampler.DeriveDistricts(dctx, req.Polyline, s.stride, s.delay)
	derr := dctx.Err()
	cancel()
	s.metrics.ObserveDerivation(s.now().Sub(started))

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "route derivation aborted")
	}
	// обрезанный по дедлайну маршрут не записываем
	if derr != nil {
		slog.Warn("route derivation timed out", "work_id", req.WorkID, "timeout", s.timeout.String(), "partial", districts)
		return nil, errors.Wrapf(models.ErrUpstreamUnavailable, "route derivation timed out after %s", s.timeout)
	}
	if len(districts) == 0 {
		slog.Warn("no districts derived", "work_id", req.WorkID)
		return &RouteResult{Districts: districts, Empty: true}, nil
	}

	w, err := s.works.OverwriteRoute(ctx, req.WorkID, districts)
	if err != nil {
		return nil, err
	}
	slog.Info("work route updated", "work_id", req.WorkID, "districts", districts)
	return &RouteResult{Districts: w.WorkRoute, Work: w}, nil
}

// RequestDerivation ставит вывод маршрута в очередь route-worker и возвращает id запроса.
func (s *Service) RequestDerivation(ctx context.Context, req RouteRequest) (string, error) {
	if s.producer == nil || s.requestsTopic == "" {
		return "", errors.Wrap(models.ErrUpstreamUnavailable, "async derivation is not configured")
	}
	if err := s.validate(ctx, req); err != nil {
		return "", err
	}

	msg := messages.RouteDerivationRequested{
		RequestID:   uuid.NewString(),
		WorkID:      req.WorkID,
		Source:      req.Source,
		Destination: req.Destination,
		Polyline:    req.Polyline,
		RequestedAt: s.now().UTC(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return "", errors.Wrap(err, "marshal derivation request")
	}
	if err := s.producer.Publish(ctx, s.requestsTopic, []byte(req.WorkID), b); err != nil {
		return "", errors.Wrapf(models.ErrUpstreamUnavailable, "enqueue derivation: %v", err)
	}
	slog.Info("route derivation enqueued", "work_id", req.WorkID, "request_id", msg.RequestID)
	return msg.RequestID, nil
}

// ApplyDerived записывает результат route-worker. Пустой или ошибочный результат маршрут не трогает.
// Ошибки, которые не исправятся повтором (нет работы), не возвращаются, чтобы не блокировать consumer.
func (s *Service) ApplyDerived(ctx context.Context, msg messages.WorkRouteDerived) error {
	if msg.Error != nil {
		slog.Warn("route derivation failed", "work_id", msg.WorkID, "request_id", msg.RequestID, "error", *msg.Error)
		return nil
	}
	if len(msg.Districts) == 0 {
		slog.Warn("no districts derived", "work_id", msg.WorkID, "request_id", msg.RequestID)
		return nil
	}

	_, err := s.works.OverwriteRoute(ctx, msg.WorkID, msg.Districts)
	switch {
	case err == nil:
		slog.Info("work route updated", "work_id", msg.WorkID, "request_id", msg.RequestID, "districts", msg.Districts)
		return nil
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrInvalidInput):
		slog.Warn("derived route dropped", "work_id", msg.WorkID, "request_id", msg.RequestID, "error", err.Error())
		return nil
	default:
		return err
	}
}

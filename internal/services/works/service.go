package works

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/FreshTrack/internal/broker/messages"
	"github.com/BearBump/FreshTrack/internal/metrics"
	"github.com/BearBump/FreshTrack/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Repository interface {
	CreateWork(ctx context.Context, in models.WorkCreateInput) (*models.Work, error)
	GetWork(ctx context.Context, id string) (*models.Work, error)
	ListWorks(ctx context.Context, f models.WorkFilter) ([]*models.Work, error)
	ListWorkRoutes(ctx context.Context) ([][]string, error)
	OverwriteRoute(ctx context.Context, id string, route []string) (*models.Work, error)
	SetDestination(ctx context.Context, id string, c models.Coordinate) (*models.Work, error)
	TransitionStatus(ctx context.Context, id string, tr models.StatusTransition) (*models.Work, error)
	LatestSample(ctx context.Context, deviceID string) (*models.SensorSample, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Tracker получает сигналы о начале и конце доставки.
type Tracker interface {
	Begin(w *models.Work)
	End(workID string)
}

type Service struct {
	repo Repository

	producer    Producer
	eventsTopic string

	tracker Tracker
	metrics *metrics.Metrics

	now func() time.Time
}

func New(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) WithEvents(p Producer, topic string) *Service {
	s.producer = p
	s.eventsTopic = topic
	return s
}

func (s *Service) WithTracker(t Tracker) *Service {
	s.tracker = t
	return s
}

func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// DriverWorks: работы водителя и текущая активная (ожидает старта или в пути).
type DriverWorks struct {
	Works      []*models.Work `json:"works"`
	ActiveWork *models.Work   `json:"activeWork"`
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.Wrapf(models.ErrInvalidInput, "invalid work id %q", id)
	}
	return nil
}

func (s *Service) CreateWork(ctx context.Context, in models.WorkCreateInput) (*models.Work, error) {
	in.ExportID = strings.TrimSpace(in.ExportID)
	in.DriverID = strings.TrimSpace(in.DriverID)
	in.VendorID = strings.TrimSpace(in.VendorID)
	in.DeviceID = strings.TrimSpace(in.DeviceID)
	switch {
	case in.ExportID == "":
		return nil, errors.Wrap(models.ErrInvalidInput, "exportId is required")
	case in.DriverID == "":
		return nil, errors.Wrap(models.ErrInvalidInput, "driverId is required")
	case in.VendorID == "":
		return nil, errors.Wrap(models.ErrInvalidInput, "vendorId is required")
	case in.DeviceID == "":
		return nil, errors.Wrap(models.ErrInvalidInput, "deviceId is required")
	}
	in.WorkRoute = models.CollapseRoute(in.WorkRoute)

	w, err := s.repo.CreateWork(ctx, in)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, messages.WorkEventCreated, w)
	return w, nil
}

func (s *Service) GetWork(ctx context.Context, id string) (*models.Work, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.repo.GetWork(ctx, id)
}

func (s *Service) ListWorks(ctx context.Context, f models.WorkFilter) ([]*models.Work, error) {
	switch f.Status {
	case "", models.WorkStatusAll, models.WorkStatusRequested, models.WorkStatusOngoing, models.WorkStatusCompleted:
	default:
		return nil, errors.Wrapf(models.ErrInvalidInput, "unknown status %q", f.Status)
	}
	return s.repo.ListWorks(ctx, f)
}

func (s *Service) DriverWorks(ctx context.Context, driverID string) (*DriverWorks, error) {
	if strings.TrimSpace(driverID) == "" {
		return nil, errors.Wrap(models.ErrInvalidInput, "driverId is required")
	}
	ws, err := s.repo.ListWorks(ctx, models.WorkFilter{DriverID: driverID})
	if err != nil {
		return nil, err
	}
	if len(ws) == 0 {
		return nil, errors.Wrapf(models.ErrNotFound, "no works for driver %s", driverID)
	}
	out := &DriverWorks{Works: ws}
	for _, w := range ws {
		if w.Active() {
			out.ActiveWork = w
			break
		}
	}
	return out, nil
}

// ListDistricts: уникальные районы всех маршрутов в порядке первого появления.
func (s *Service) ListDistricts(ctx context.Context) ([]string, error) {
	routes, err := s.repo.ListWorkRoutes(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range routes {
		for _, d := range r {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out, nil
}

// OverwriteRoute целиком заменяет маршрут работы. Допустимо в любом статусе.
func (s *Service) OverwriteRoute(ctx context.Context, id string, districts []string) (*models.Work, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	route := models.CollapseRoute(districts)
	if len(route) == 0 {
		return nil, errors.Wrap(models.ErrInvalidInput, "workRoute must be a non-empty list of districts")
	}
	w, err := s.repo.OverwriteRoute(ctx, id, route)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, messages.WorkEventRouteUpdated, w)
	return w, nil
}

func (s *Service) RecordDestination(ctx context.Context, id string, c models.Coordinate) (*models.Work, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if !c.Valid() {
		return nil, errors.Wrap(models.ErrInvalidInput, "location is out of range")
	}
	w, err := s.repo.SetDestination(ctx, id, c)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, messages.WorkEventLocationSaved, w)
	return w, nil
}

// StartWork: Requested -> Ongoing. Время старта и точка назначения пишутся тем же апдейтом.
func (s *Service) StartWork(ctx context.Context, id string, destination *models.Coordinate) (*models.Work, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if destination != nil && !destination.Valid() {
		return nil, errors.Wrap(models.ErrInvalidInput, "destinationLocation is out of range")
	}
	now := s.now().UTC()
	w, err := s.repo.TransitionStatus(ctx, id, models.StatusTransition{
		From:        models.WorkStatusRequested,
		To:          models.WorkStatusOngoing,
		StartTime:   &now,
		Destination: destination,
	})
	if err != nil {
		s.metrics.Transition(models.WorkStatusOngoing, transitionResult(err))
		return nil, err
	}
	s.metrics.Transition(models.WorkStatusOngoing, "ok")
	if s.tracker != nil {
		s.tracker.Begin(w)
	}
	s.publish(ctx, messages.WorkEventStarted, w)
	return w, nil
}

// CompleteWork: Ongoing -> Completed. Хранилище гарантирует EndTime >= StartTime.
func (s *Service) CompleteWork(ctx context.Context, id string) (*models.Work, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	w, err := s.repo.TransitionStatus(ctx, id, models.StatusTransition{
		From:    models.WorkStatusOngoing,
		To:      models.WorkStatusCompleted,
		EndTime: &now,
	})
	if err != nil {
		s.metrics.Transition(models.WorkStatusCompleted, transitionResult(err))
		return nil, err
	}
	s.metrics.Transition(models.WorkStatusCompleted, "ok")
	if s.tracker != nil {
		s.tracker.End(w.ID)
	}
	s.publish(ctx, messages.WorkEventCompleted, w)
	return w, nil
}

func (s *Service) LatestSample(ctx context.Context, deviceID string) (*models.SensorSample, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, errors.Wrap(models.ErrInvalidInput, "deviceId is required")
	}
	return s.repo.LatestSample(ctx, deviceID)
}

func transitionResult(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidTransition):
		return "conflict"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// publish: best-effort после коммита: ошибка только логируется.
func (s *Service) publish(ctx context.Context, typ string, w *models.Work) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	ev := messages.WorkEvent{
		Type:       typ,
		WorkID:     w.ID,
		DriverID:   w.DriverID,
		VendorID:   w.VendorID,
		Status:     w.Status,
		WorkRoute:  w.WorkRoute,
		StartTime:  w.StartTime,
		EndTime:    w.EndTime,
		OccurredAt: s.now().UTC(),
	}
	b, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshal work event", "work_id", w.ID, "error", err.Error())
		return
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, []byte(w.ID), b); err != nil {
		slog.Error("publish work event", "work_id", w.ID, "type", typ, "error", err.Error())
	}
}

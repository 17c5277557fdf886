package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BearBump/FreshTrack/internal/metrics"
	"github.com/BearBump/FreshTrack/internal/models"
	"github.com/pkg/errors"
)

const (
	EventSample    = "sample"
	EventElapsed   = "elapsed"
	EventWarning   = "warning"
	EventCompleted = "completed"
)

// Event: то, что видит наблюдатель доставки (websocket-клиент).
type Event struct {
	Type           string               `json:"type"`
	WorkID         string               `json:"workId"`
	Sample         *models.SensorSample `json:"sample,omitempty"`
	ElapsedSeconds *int64               `json:"elapsedSeconds,omitempty"`
	Elapsed        string               `json:"elapsed,omitempty"`
	Warning        string               `json:"warning,omitempty"`
	At             time.Time            `json:"at"`
}

type OngoingLister interface {
	ListWorks(ctx context.Context, f models.WorkFilter) ([]*models.Work, error)
}

const observerBuffer = 16

type session struct {
	workID    string
	telemetry *Subscription
	elapsed   *Subscription

	mu          sync.Mutex
	observers   map[int]chan Event
	nextID      int
	lastSample  *Event
	lastElapsed *Event
	closed      bool
}

func (s *session) broadcast(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	switch ev.Type {
	case EventSample:
		s.lastSample = &ev
	case EventElapsed:
		s.lastElapsed = &ev
	}
	for _, ch := range s.observers {
		select {
		case ch <- ev:
		default:
			// медленный наблюдатель пропускает кадр
		}
	}
}

// Tracker держит по одной сессии телеметрии и таймера на каждую работу в статусе Ongoing.
type Tracker struct {
	poller            *Poller
	telemetryInterval time.Duration
	elapsedInterval   time.Duration
	metrics           *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*session
}

func NewTracker(p *Poller) *Tracker {
	return &Tracker{
		poller:            p,
		telemetryInterval: DefaultTelemetryInterval,
		elapsedInterval:   DefaultElapsedInterval,
		sessions:          make(map[string]*session),
	}
}

func (t *Tracker) WithIntervals(telemetry, elapsed time.Duration) *Tracker {
	if telemetry > 0 {
		t.telemetryInterval = telemetry
	}
	if elapsed > 0 {
		t.elapsedInterval = elapsed
	}
	return t
}

func (t *Tracker) WithMetrics(m *metrics.Metrics) *Tracker {
	t.metrics = m
	return t
}

// Begin запускает отслеживание. Повторный вызов для той же работы ничего не делает.
func (t *Tracker) Begin(w *models.Work) {
	if w == nil || w.Status != models.WorkStatusOngoing || w.StartTime == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.sessions[w.ID]; ok {
		return
	}
	s := &session{workID: w.ID, observers: make(map[int]chan Event)}

	workID := w.ID
	s.telemetry = t.poller.SubscribeTelemetry(w.DeviceID, t.telemetryInterval,
		func(smp models.SensorSample) {
			s.broadcast(Event{Type: EventSample, WorkID: workID, Sample: &smp, At: time.Now().UTC()})
		},
		func(err error) {
			slog.Warn("telemetry fetch", "work_id", workID, "error", err.Error())
			s.broadcast(Event{Type: EventWarning, WorkID: workID, Warning: err.Error(), At: time.Now().UTC()})
		},
	)
	s.elapsed = t.poller.SubscribeElapsed(*w.StartTime, t.elapsedInterval, func(secs int64) {
		s.broadcast(Event{Type: EventElapsed, WorkID: workID, ElapsedSeconds: &secs, Elapsed: FormatElapsed(secs), At: time.Now().UTC()})
	})
	t.sessions[w.ID] = s

	t.metrics.SessionStarted()
	slog.Info("delivery tracking started", "work_id", workID, "device_id", w.DeviceID)
}

// End останавливает отслеживание и закрывает наблюдателей финальным событием completed.
func (t *Tracker) End(workID string) {
	t.mu.Lock()
	s, ok := t.sessions[workID]
	delete(t.sessions, workID)
	t.mu.Unlock()
	if !ok {
		return
	}

	s.telemetry.Cancel()
	s.elapsed.Cancel()

	s.mu.Lock()
	s.closed = true
	final := Event{Type: EventCompleted, WorkID: workID, At: time.Now().UTC()}
	for id, ch := range s.observers {
		select {
		case ch <- final:
		default:
			// буфер полон: completed важнее самого старого кадра
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- final:
			default:
			}
		}
		close(ch)
		delete(s.observers, id)
	}
	s.mu.Unlock()

	t.metrics.SessionEnded()
	slog.Info("delivery tracking stopped", "work_id", workID)
}

// Watch подписывает наблюдателя на события работы. Последние известные sample и elapsed
// отдаются сразу. Возвращает ErrNotFound, если работа не отслеживается.
func (t *Tracker) Watch(workID string) (<-chan Event, func(), error) {
	t.mu.Lock()
	s, ok := t.sessions[workID]
	t.mu.Unlock()
	if !ok {
		return nil, nil, errors.Wrapf(models.ErrNotFound, "work %s is not being tracked", workID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, errors.Wrapf(models.ErrNotFound, "work %s is not being tracked", workID)
	}
	ch := make(chan Event, observerBuffer)
	id := s.nextID
	s.nextID++
	s.observers[id] = ch
	if s.lastSample != nil {
		ch <- *s.lastSample
	}
	if s.lastElapsed != nil {
		ch <- *s.lastElapsed
	}

	unwatch := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.observers[id]; ok {
			delete(s.observers, id)
			close(c)
		}
	}
	return ch, unwatch, nil
}

func (t *Tracker) Tracking(workID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sessions[workID]
	return ok
}

func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Rehydrate поднимает сессии для всех работ, которые уже в пути на момент старта процесса.
func (t *Tracker) Rehydrate(ctx context.Context, lister OngoingLister) error {
	works, err := lister.ListWorks(ctx, models.WorkFilter{Status: models.WorkStatusOngoing})
	if err != nil {
		return errors.Wrap(err, "list ongoing works")
	}
	for _, w := range works {
		t.Begin(w)
	}
	slog.Info("delivery tracking rehydrated", "works", len(works))
	return nil
}

// Close останавливает все сессии.
func (t *Tracker) Close() {
	t.mu.Lock()
	ids := make([]string, 0, len(t.sessions))
	for id := range t.sessions {
		ids = append(ids, id)
	}
	t.mu.Unlock()
	for _, id := range ids {
		t.End(id)
	}
}

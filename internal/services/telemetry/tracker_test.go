package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/FreshTrack/internal/metrics"
	"github.com/BearBump/FreshTrack/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	works []*models.Work
	got   models.WorkFilter
}

func (f *fakeLister) ListWorks(ctx context.Context, flt models.WorkFilter) ([]*models.Work, error) {
	f.got = flt
	return f.works, nil
}

func ongoingWork(id string) *models.Work {
	start := time.Now().UTC().Add(-time.Hour - time.Minute - time.Second)
	return &models.Work{ID: id, DeviceID: "dev-" + id, Status: models.WorkStatusOngoing, StartTime: &start}
}

func newTracker() *Tracker {
	src := &fakeSource{smp: &models.SensorSample{DeviceID: "dev", Temperature: 2}}
	return NewTracker(New(src)).WithIntervals(5*time.Millisecond, 5*time.Millisecond).WithMetrics(metrics.New())
}

func TestTracker_BeginWatchEnd(t *testing.T) {
	tr := newTracker()
	w := ongoingWork("w1")
	tr.Begin(w)
	tr.Begin(w)
	require.Equal(t, 1, tr.Active())
	require.True(t, tr.Tracking("w1"))

	ch, unwatch, err := tr.Watch("w1")
	require.NoError(t, err)
	defer unwatch()

	seen := map[string]bool{}
	deadline := time.After(time.Second)
	for !(seen[EventSample] && seen[EventElapsed]) {
		select {
		case ev := <-ch:
			seen[ev.Type] = true
			if ev.Type == EventElapsed {
				require.GreaterOrEqual(t, *ev.ElapsedSeconds, int64(3661))
				require.Contains(t, ev.Elapsed, "1h 1m")
			}
		case <-deadline:
			t.Fatal("no sample/elapsed events")
		}
	}

	tr.End("w1")
	require.Equal(t, 0, tr.Active())

	var last Event
	for ev := range ch {
		last = ev
	}
	require.Equal(t, EventCompleted, last.Type)

	// повторный End и unwatch после закрытия безопасны
	tr.End("w1")
	unwatch()
}

func TestTracker_IgnoresNotOngoing(t *testing.T) {
	tr := newTracker()
	tr.Begin(&models.Work{ID: "w2", Status: models.WorkStatusRequested})
	tr.Begin(nil)
	require.Equal(t, 0, tr.Active())

	_, _, err := tr.Watch("w2")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestTracker_Rehydrate(t *testing.T) {
	tr := newTracker()
	l := &fakeLister{works: []*models.Work{ongoingWork("a"), ongoingWork("b")}}

	require.NoError(t, tr.Rehydrate(context.Background(), l))
	require.Equal(t, models.WorkStatusOngoing, l.got.Status)
	require.Equal(t, 2, tr.Active())

	tr.Close()
	require.Equal(t, 0, tr.Active())
}

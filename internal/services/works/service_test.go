package works

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/BearBump/FreshTrack/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// memRepo: минимальное хранилище с условным апдейтом статуса, как в pgwork/mongowork.
type memRepo struct {
	Repository
	mu    sync.Mutex
	works map[string]*models.Work
}

func (m *memRepo) TransitionStatus(ctx context.Context, id string, tr models.StatusTransition) (*models.Work, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.works[id]
	if !ok {
		return nil, errors.Wrap(models.ErrNotFound, id)
	}
	if w.Status != tr.From {
		return nil, errors.Wrap(models.ErrInvalidTransition, w.Status)
	}
	cp := *w
	cp.Status = tr.To
	if tr.StartTime != nil {
		cp.StartTime = tr.StartTime
	}
	if tr.EndTime != nil {
		end := *tr.EndTime
		if cp.StartTime != nil && end.Before(*cp.StartTime) {
			end = *cp.StartTime
		}
		cp.EndTime = &end
	}
	m.works[id] = &cp
	return &cp, nil
}

type countingTracker struct {
	begins atomic.Int64
	ends   atomic.Int64
}

func (c *countingTracker) Begin(*models.Work) { c.begins.Add(1) }
func (c *countingTracker) End(string)         { c.ends.Add(1) }

func TestStartWork_ConcurrentExactlyOneWins(t *testing.T) {
	repo := &memRepo{works: map[string]*models.Work{
		workID: {ID: workID, Status: models.WorkStatusRequested},
	}}
	tr := &countingTracker{}
	svc := New(repo).WithTracker(tr)

	const n = 16
	var wg sync.WaitGroup
	var ok, conflict atomic.Int64
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.StartWork(context.Background(), workID, nil)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, models.ErrInvalidTransition):
				conflict.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), ok.Load())
	require.Equal(t, int64(n-1), conflict.Load())
	require.Equal(t, int64(1), tr.begins.Load())
}

func TestCompleteWork_BeforeStartLeavesStartTimeNil(t *testing.T) {
	repo := &memRepo{works: map[string]*models.Work{
		workID: {ID: workID, Status: models.WorkStatusRequested},
	}}
	svc := New(repo)

	_, err := svc.CompleteWork(context.Background(), workID)
	require.ErrorIs(t, err, models.ErrInvalidTransition)
	require.Nil(t, repo.works[workID].StartTime)
	require.Equal(t, models.WorkStatusRequested, repo.works[workID].Status)
}

func TestLifecycle_StartThenComplete(t *testing.T) {
	repo := &memRepo{works: map[string]*models.Work{
		workID: {ID: workID, Status: models.WorkStatusRequested},
	}}
	tr := &countingTracker{}
	svc := New(repo).WithTracker(tr)

	w, err := svc.StartWork(context.Background(), workID, nil)
	require.NoError(t, err)
	require.NotNil(t, w.StartTime)

	w, err = svc.CompleteWork(context.Background(), workID)
	require.NoError(t, err)
	require.NotNil(t, w.EndTime)
	require.False(t, w.EndTime.Before(*w.StartTime))
	require.Equal(t, int64(1), tr.ends.Load())

	_, err = svc.CompleteWork(context.Background(), workID)
	require.ErrorIs(t, err, models.ErrInvalidTransition)
}

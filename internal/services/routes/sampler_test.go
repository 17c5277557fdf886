package routes

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/FreshTrack/internal/models"
	"github.com/stretchr/testify/require"
)

// scriptedResolver отвечает по индексу точки: широта точки i равна i.
type scriptedResolver struct {
	mu      sync.Mutex
	answers map[int]string
	calls   []int
	onCall  func(n int)
}

func (r *scriptedResolver) ResolveDistrict(ctx context.Context, lat, lon float64) (string, bool) {
	r.mu.Lock()
	idx := int(lat)
	r.calls = append(r.calls, idx)
	n := len(r.calls)
	d, ok := r.answers[idx]
	r.mu.Unlock()
	if r.onCall != nil {
		r.onCall(n)
	}
	return d, ok
}

func polyline(n int) []models.Coordinate {
	out := make([]models.Coordinate, n)
	for i := range out {
		out[i] = models.Coordinate{Latitude: float64(i), Longitude: 0}
	}
	return out
}

type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.calls = append(s.calls, d)
	s.mu.Unlock()
	return ctx.Err()
}

func newTestSampler(r Resolver) (*Sampler, *sleepRecorder) {
	rec := &sleepRecorder{}
	s := NewSampler(r)
	s.sleep = rec.sleep
	return s, rec
}

func TestDeriveDistricts_SixHundredPointsStride250(t *testing.T) {
	r := &scriptedResolver{answers: map[int]string{0: "A", 250: "A", 500: "B"}}
	s, rec := newTestSampler(r)

	out := s.DeriveDistricts(context.Background(), polyline(600), 250, time.Second)
	require.Equal(t, []string{"A", "B"}, out)
	require.Equal(t, []int{0, 250, 500}, r.calls)
	// пауза только между соседними запросами
	require.Equal(t, []time.Duration{time.Second, time.Second}, rec.calls)
}

func TestDeriveDistricts_UniformDistrictSingleEntry(t *testing.T) {
	r := &scriptedResolver{answers: map[int]string{0: "Salem", 2: "Salem", 4: "Salem", 6: "Salem"}}
	s, _ := newTestSampler(r)
	require.Equal(t, []string{"Salem"}, s.DeriveDistricts(context.Background(), polyline(7), 2, 0))
}

func TestDeriveDistricts_NoneGapsDoNotResetCursor(t *testing.T) {
	// A, none, A, B, none, B, A
	r := &scriptedResolver{answers: map[int]string{0: "A", 2: "A", 3: "B", 5: "B", 6: "A"}}
	s, _ := newTestSampler(r)
	require.Equal(t, []string{"A", "B", "A"}, s.DeriveDistricts(context.Background(), polyline(7), 1, 0))
}

func TestDeriveDistricts_NoConsecutiveDuplicates(t *testing.T) {
	r := &scriptedResolver{answers: map[int]string{0: "A", 1: "B", 2: "B", 3: "A", 4: "A", 5: "C"}}
	s, _ := newTestSampler(r)
	out := s.DeriveDistricts(context.Background(), polyline(6), 1, 0)
	require.Equal(t, []string{"A", "B", "A", "C"}, out)
	for i := 1; i < len(out); i++ {
		require.NotEqual(t, out[i-1], out[i])
	}
}

func TestDeriveDistricts_EmptyInputs(t *testing.T) {
	r := &scriptedResolver{answers: map[int]string{}}
	s, rec := newTestSampler(r)

	require.Empty(t, s.DeriveDistricts(context.Background(), nil, 250, time.Second))
	require.Empty(t, s.DeriveDistricts(context.Background(), polyline(300), 250, time.Second))
	require.Len(t, rec.calls, 1)
}

func TestDeriveDistricts_DefaultStride(t *testing.T) {
	r := &scriptedResolver{answers: map[int]string{0: "A", 250: "B"}}
	s, _ := newTestSampler(r)
	require.Equal(t, []string{"A", "B"}, s.DeriveDistricts(context.Background(), polyline(251), 0, 0))
	require.Equal(t, []int{0, 250}, r.calls)
}

func TestDeriveDistricts_CancelReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &scriptedResolver{
		answers: map[int]string{0: "A", 1: "B", 2: "C"},
		onCall: func(n int) {
			if n == 2 {
				cancel()
			}
		},
	}
	s, _ := newTestSampler(r)
	out := s.DeriveDistricts(ctx, polyline(3), 1, time.Millisecond)
	require.Equal(t, []string{"A", "B"}, out)
	require.Len(t, r.calls, 2)
}

func TestSampleCount(t *testing.T) {
	require.Equal(t, 3, SampleCount(600, 250))
	require.Equal(t, 1, SampleCount(1, 250))
	require.Equal(t, 0, SampleCount(0, 250))
	require.Equal(t, 2, SampleCount(251, 0))
}

func TestSleepCtx(t *testing.T) {
	require.NoError(t, sleepCtx(context.Background(), time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}

package routes

import (
	"context"
	"time"

	"github.com/BearBump/FreshTrack/internal/models"
)

const (
	DefaultStride = 250
	DefaultDelay  = time.Second
)

type Resolver interface {
	ResolveDistrict(ctx context.Context, lat, lon float64) (string, bool)
}

// Sampler проходит полилинию с шагом stride и собирает районы без подряд идущих повторов.
type Sampler struct {
	resolver Resolver
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewSampler(r Resolver) *Sampler {
	return &Sampler{resolver: r, sleep: sleepCtx}
}

// SampleCount: сколько точек будет опрошено при данном шаге.
func SampleCount(n, stride int) int {
	if stride <= 0 {
		stride = DefaultStride
	}
	if n <= 0 {
		return 0
	}
	return (n + stride - 1) / stride
}

// DeriveDistricts опрашивает точки 0, stride, 2*stride, ... и между соседними запросами ждёт delay.
// Пустой ответ геокодера не сдвигает и не сбрасывает курсор: A, none, A даёт [A].
// При отмене ctx возвращается то, что успели собрать.
func (s *Sampler) DeriveDistricts(ctx context.Context, polyline []models.Coordinate, stride int, delay time.Duration) []string {
	if stride <= 0 {
		stride = DefaultStride
	}
	if delay < 0 {
		delay = 0
	}

	districts := make([]string, 0)
	last := ""
	for i := 0; i < len(polyline); i += stride {
		if i > 0 && delay > 0 {
			if err := s.sleep(ctx, delay); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
		p := polyline[i]
		d, ok := s.resolver.ResolveDistrict(ctx, p.Latitude, p.Longitude)
		if !ok || d == last {
			continue
		}
		districts = append(districts, d)
		last = d
	}
	return districts
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package fake

import (
	"context"
	"fmt"
	"math"

	"github.com/BearBump/FreshTrack/internal/integrations/geocoder"
)

// FakeClient: локальная заглушка геокодера для dev-окружения и демо.
// Район детерминированно определяется ячейкой сетки 0.5°x0.5°.
type FakeClient struct{}

func New() *FakeClient { return &FakeClient{} }

func (f *FakeClient) ReverseDistrict(ctx context.Context, lat, lon float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// открытое море в заглушке: всё южнее экватора
	if lat < 0 {
		return "", geocoder.ErrNoDistrict
	}
	row := int(math.Floor(lat * 2))
	col := int(math.Floor(lon * 2))
	return fmt.Sprintf("District %d-%d", row, col), nil
}

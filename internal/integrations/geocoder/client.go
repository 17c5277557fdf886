package geocoder

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrNoDistrict: провайдер ответил, но района для точки нет (море, пустой адрес).
	ErrNoDistrict = errors.New("no district for location")
	// ErrRetryable помечает временные отказы провайдера: 429, 5xx, сетевые ошибки.
	ErrRetryable = errors.New("geocoder temporarily unavailable")
)

// Client делает один обратный запрос геокодирования (lat, lon) -> название района.
type Client interface {
	ReverseDistrict(ctx context.Context, lat, lon float64) (string, error)
}

// Address: поля адреса, из которых выбирается район. Набор общий для Nominatim и OpenCage.
type Address struct {
	County        string `json:"county"`
	StateDistrict string `json:"state_district"`
	CityDistrict  string `json:"city_district"`
	State         string `json:"state"`
}

// District выбирает самый подходящий административный уровень.
func (a Address) District() string {
	for _, v := range []string{a.County, a.StateDistrict, a.CityDistrict, a.State} {
		if v != "" {
			return v
		}
	}
	return ""
}

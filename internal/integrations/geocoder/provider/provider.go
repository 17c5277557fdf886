package provider

import (
	"github.com/BearBump/FreshTrack/internal/integrations/geocoder"
	"github.com/BearBump/FreshTrack/internal/integrations/geocoder/fake"
	"github.com/BearBump/FreshTrack/internal/integrations/geocoder/nominatim"
	"github.com/BearBump/FreshTrack/internal/integrations/geocoder/opencage"
)

const (
	Nominatim = "nominatim"
	OpenCage  = "opencage"
	Fake      = "fake"
)

// New выбирает клиента обратного геокодирования по имени провайдера и возвращает фактическое имя.
// Без baseURL nominatim/opencage ходят на публичные адреса. Неизвестное имя даёт локальный fake.
func New(name, baseURL, userAgent string, apiKeys []string) (geocoder.Client, string) {
	switch name {
	case Nominatim:
		return nominatim.New(baseURL, userAgent), Nominatim
	case OpenCage:
		return opencage.New(baseURL, apiKeys), OpenCage
	default:
		return fake.New(), Fake
	}
}

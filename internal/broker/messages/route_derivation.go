package messages

import (
	"time"

	"github.com/BearBump/FreshTrack/internal/models"
)

// RouteDerivationRequested публикует route-api, читает route-worker.
type RouteDerivationRequested struct {
	RequestID   string              `json:"request_id"`
	WorkID      string              `json:"work_id"`
	Source      *models.Coordinate  `json:"source,omitempty"`
	Destination *models.Coordinate  `json:"destination,omitempty"`
	Polyline    []models.Coordinate `json:"polyline"`
	RequestedAt time.Time           `json:"requested_at"`
}

// WorkRouteDerived: ответ route-worker. Пустой Districts означает, что районов не нашлось.
type WorkRouteDerived struct {
	RequestID     string    `json:"request_id"`
	WorkID        string    `json:"work_id"`
	Districts     []string  `json:"districts"`
	SampledPoints int       `json:"sampled_points"`
	DerivedAt     time.Time `json:"derived_at"`

	Error *string `json:"error,omitempty"`
}

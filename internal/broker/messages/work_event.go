package messages

import "time"

const (
	WorkEventStarted       = "work.started"
	WorkEventCompleted     = "work.completed"
	WorkEventRouteUpdated  = "work.route_updated"
	WorkEventCreated       = "work.created"
	WorkEventLocationSaved = "work.location_saved"
)

type WorkEvent struct {
	Type       string     `json:"type"`
	WorkID     string     `json:"work_id"`
	DriverID   string     `json:"driver_id"`
	VendorID   string     `json:"vendor_id"`
	Status     string     `json:"status"`
	WorkRoute  []string   `json:"work_route,omitempty"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

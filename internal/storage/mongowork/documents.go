package mongowork

import (
	"time"

	"github.com/BearBump/FreshTrack/internal/models"
)

// workDoc повторяет имена полей коллекции works мобильного бэкенда, но _id и внешние id
// хранятся строками UUID, а не ObjectId: документы старого бэкенда этим хранилищем не читаются.
type workDoc struct {
	ID                  string             `bson:"_id"`
	ExportID            string             `bson:"exportId"`
	DriverID            string             `bson:"driverId"`
	VendorID            string             `bson:"vendorId"`
	Status              string             `bson:"status"`
	WorkRoute           []string           `bson:"workRoute"`
	DeviceID            string             `bson:"deviceId"`
	StartTime           *time.Time         `bson:"startTime,omitempty"`
	EndTime             *time.Time         `bson:"endTime,omitempty"`
	DestinationLocation *models.Coordinate `bson:"destinationLocation,omitempty"`
	CreatedAt           time.Time          `bson:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt"`
}

func (d *workDoc) toModel() *models.Work {
	route := d.WorkRoute
	if route == nil {
		route = []string{}
	}
	w := &models.Work{
		ID:                  d.ID,
		ExportID:            d.ExportID,
		DriverID:            d.DriverID,
		VendorID:            d.VendorID,
		Status:              d.Status,
		WorkRoute:           route,
		DeviceID:            d.DeviceID,
		DestinationLocation: d.DestinationLocation,
		CreatedAt:           d.CreatedAt.UTC(),
		UpdatedAt:           d.UpdatedAt.UTC(),
	}
	if d.StartTime != nil {
		t := d.StartTime.UTC()
		w.StartTime = &t
	}
	if d.EndTime != nil {
		t := d.EndTime.UTC()
		w.EndTime = &t
	}
	return w
}

type sampleDoc struct {
	DeviceID    string    `bson:"device_id"`
	Temperature float64   `bson:"temperature"`
	Humidity    float64   `bson:"humidity"`
	GasLevel    float64   `bson:"gasLevel"`
	RecordedAt  time.Time `bson:"recorded_at"`
}

func (d *sampleDoc) toModel() *models.SensorSample {
	return &models.SensorSample{
		DeviceID:    d.DeviceID,
		Temperature: d.Temperature,
		Humidity:    d.Humidity,
		GasLevel:    d.GasLevel,
		RecordedAt:  d.RecordedAt.UTC(),
	}
}

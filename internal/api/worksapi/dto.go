package worksapi

import (
	"github.com/BearBump/FreshTrack/internal/models"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type createWorkRequest struct {
	ExportID  string   `json:"exportId"`
	DriverID  string   `json:"driverId" validate:"required"`
	VendorID  string   `json:"vendorId" validate:"required"`
	DeviceID  string   `json:"deviceId"`
	WorkRoute []string `json:"workRoute" validate:"omitempty,dive,required"`
}

func (r createWorkRequest) toInput() models.WorkCreateInput {
	return models.WorkCreateInput{
		ExportID:  r.ExportID,
		DriverID:  r.DriverID,
		VendorID:  r.VendorID,
		DeviceID:  r.DeviceID,
		WorkRoute: r.WorkRoute,
	}
}

type coordinateDTO struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

func (c *coordinateDTO) toModel() *models.Coordinate {
	if c == nil {
		return nil
	}
	return &models.Coordinate{Latitude: *c.Latitude, Longitude: *c.Longitude}
}

type startWorkRequest struct {
	DestinationLocation *coordinateDTO `json:"destinationLocation"`
}

type updateRoutesRequest struct {
	WorkRoute []string `json:"workRoute" validate:"required,min=1,dive,required"`
}

type updateLocationRequest struct {
	Location *coordinateDTO `json:"location" validate:"required"`
}

// storeRouteRequest повторяет то, что шлёт мобильное приложение: точки как пары [lat, lon].
type storeRouteRequest struct {
	Source      *coordinateDTO `json:"source"`
	Destination *coordinateDTO `json:"destination"`
	Route       [][2]float64   `json:"route" validate:"required,min=1"`
	WorkID      string         `json:"workId" validate:"required"`
}

func (r storeRouteRequest) polyline() []models.Coordinate {
	out := make([]models.Coordinate, 0, len(r.Route))
	for _, p := range r.Route {
		out = append(out, models.Coordinate{Latitude: p[0], Longitude: p[1]})
	}
	return out
}

type messageResponse struct {
	Message string `json:"message"`
}

type worksResponse struct {
	Works []*models.Work `json:"works"`
}

type updatedWorkResponse struct {
	Message string       `json:"message"`
	Data    *models.Work `json:"data"`
}

type storeRouteResponse struct {
	Message     string       `json:"message"`
	Districts   []string     `json:"districts"`
	UpdatedWork *models.Work `json:"updatedWork,omitempty"`
}

type asyncRouteResponse struct {
	RequestID string `json:"requestId"`
}

type districtsResponse struct {
	Districts []string `json:"districts"`
}

type elapsedResponse struct {
	WorkID         string `json:"workId"`
	Status         string `json:"status"`
	ElapsedSeconds int64  `json:"elapsedSeconds"`
	Elapsed        string `json:"elapsed"`
}

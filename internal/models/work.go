package models

import (
	"strings"
	"time"
)

// Статусы жизненного цикла работы. Значения совпадают с тем, что уже лежит в базе
// и что ожидает мобильное приложение.
const (
	WorkStatusRequested = "Requested to start"
	WorkStatusOngoing   = "Ongoing"
	WorkStatusCompleted = "Completed"
)

// WorkStatusAll в фильтре означает "без фильтра по статусу".
const WorkStatusAll = "All"

type Coordinate struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// Valid сообщает, лежит ли точка в допустимых географических границах.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

type Work struct {
	ID                  string      `json:"_id"`
	ExportID            string      `json:"exportId"`
	DriverID            string      `json:"driverId"`
	VendorID            string      `json:"vendorId"`
	Status              string      `json:"status"`
	WorkRoute           []string    `json:"workRoute"`
	DeviceID            string      `json:"deviceId"`
	StartTime           *time.Time  `json:"startTime"`
	EndTime             *time.Time  `json:"endTime"`
	DestinationLocation *Coordinate `json:"destinationLocation,omitempty"`
	CreatedAt           time.Time   `json:"createdAt"`
	UpdatedAt           time.Time   `json:"updatedAt"`
}

// Active: работа ещё не завершена (ожидает старта или в пути).
func (w *Work) Active() bool {
	return w.Status == WorkStatusRequested || w.Status == WorkStatusOngoing
}

type WorkCreateInput struct {
	ExportID  string
	DriverID  string
	VendorID  string
	DeviceID  string
	WorkRoute []string
}

type WorkFilter struct {
	DriverID string
	VendorID string
	District string
	Status   string
}

// StatusTransition описывает условное обновление статуса: запись применяется только
// если текущий статус равен From. Поля побочных эффектов пишутся в том же апдейте.
type StatusTransition struct {
	From        string
	To          string
	StartTime   *time.Time
	EndTime     *time.Time
	Destination *Coordinate
}

type SensorSample struct {
	DeviceID    string    `json:"deviceId"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	GasLevel    float64   `json:"gasLevel"`
	RecordedAt  time.Time `json:"recordedAt"`
}

// CollapseRoute убирает подряд идущие одинаковые районы и пустые строки.
// Повторное появление района не подряд сохраняется.
func CollapseRoute(districts []string) []string {
	out := make([]string, 0, len(districts))
	last := ""
	for _, d := range districts {
		d = strings.TrimSpace(d)
		if d == "" || d == last {
			continue
		}
		out = append(out, d)
		last = d
	}
	return out
}

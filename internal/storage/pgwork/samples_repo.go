package pgwork

import (
	"context"

	"github.com/BearBump/FreshTrack/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func (s *Storage) InsertSample(ctx context.Context, smp models.SensorSample) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO sensor_samples (device_id, temperature, humidity, gas_level, recorded_at)
VALUES ($1,$2,$3,$4,$5)
`, smp.DeviceID, smp.Temperature, smp.Humidity, smp.GasLevel, smp.RecordedAt.UTC())
	if err != nil {
		return serverErr(err, "insert sensor sample")
	}
	return nil
}

func (s *Storage) LatestSample(ctx context.Context, deviceID string) (*models.SensorSample, error) {
	var smp models.SensorSample
	err := s.db.QueryRow(ctx, `
SELECT device_id, temperature, humidity, gas_level, recorded_at
FROM sensor_samples
WHERE device_id = $1
ORDER BY recorded_at DESC
LIMIT 1
`, deviceID).Scan(&smp.DeviceID, &smp.Temperature, &smp.Humidity, &smp.GasLevel, &smp.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(models.ErrNotFound, "no sensor data for device %s", deviceID)
	}
	if err != nil {
		return nil, serverErr(err, "select sensor sample")
	}
	return &smp, nil
}

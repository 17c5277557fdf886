package pgwork

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS works (
  id TEXT PRIMARY KEY,
  export_id TEXT NOT NULL,
  driver_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  status TEXT NOT NULL,
  work_route TEXT[] NOT NULL DEFAULT '{}',
  device_id TEXT NOT NULL,
  start_time TIMESTAMPTZ NULL,
  end_time TIMESTAMPTZ NULL,
  dest_lat DOUBLE PRECISION NULL,
  dest_lon DOUBLE PRECISION NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  CHECK (end_time IS NULL OR start_time IS NULL OR start_time <= end_time)
)`,
		`CREATE INDEX IF NOT EXISTS idx_works_driver_id ON works(driver_id)`,
		`CREATE INDEX IF NOT EXISTS idx_works_vendor_id_status ON works(vendor_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_works_work_route ON works USING GIN (work_route)`,
		`
CREATE TABLE IF NOT EXISTS sensor_samples (
  id BIGSERIAL PRIMARY KEY,
  device_id TEXT NOT NULL,
  temperature DOUBLE PRECISION NOT NULL,
  humidity DOUBLE PRECISION NOT NULL,
  gas_level DOUBLE PRECISION NOT NULL,
  recorded_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_sensor_samples_device_recorded ON sensor_samples(device_id, recorded_at DESC)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}

package pgwork

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BearBump/FreshTrack/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const workColumns = `
  id, export_id, driver_id, vendor_id,
  status, work_route, device_id,
  start_time, end_time, dest_lat, dest_lon,
  created_at, updated_at`

func scanWork(row pgx.Row) (*models.Work, error) {
	var w models.Work
	var lat, lon *float64
	if err := row.Scan(
		&w.ID, &w.ExportID, &w.DriverID, &w.VendorID,
		&w.Status, &w.WorkRoute, &w.DeviceID,
		&w.StartTime, &w.EndTime, &lat, &lon,
		&w.CreatedAt, &w.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lat != nil && lon != nil {
		w.DestinationLocation = &models.Coordinate{Latitude: *lat, Longitude: *lon}
	}
	if w.WorkRoute == nil {
		w.WorkRoute = []string{}
	}
	return &w, nil
}

func serverErr(err error, op string) error {
	return errors.Wrapf(models.ErrServer, "%s: %v", op, err)
}

func (s *Storage) CreateWork(ctx context.Context, in models.WorkCreateInput) (*models.Work, error) {
	now := time.Now().UTC()
	route := in.WorkRoute
	if route == nil {
		route = []string{}
	}

	row := s.db.QueryRow(ctx, `
INSERT INTO works (
  id, export_id, driver_id, vendor_id, status, work_route, device_id, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
RETURNING`+workColumns,
		uuid.NewString(), in.ExportID, in.DriverID, in.VendorID, models.WorkStatusRequested, route, in.DeviceID, now)
	w, err := scanWork(row)
	if err != nil {
		return nil, serverErr(err, "insert work")
	}
	return w, nil
}

func (s *Storage) GetWork(ctx context.Context, id string) (*models.Work, error) {
	w, err := scanWork(s.db.QueryRow(ctx, `SELECT`+workColumns+` FROM works WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(models.ErrNotFound, "work %s", id)
	}
	if err != nil {
		return nil, serverErr(err, "select work")
	}
	return w, nil
}

func (s *Storage) ListWorks(ctx context.Context, f models.WorkFilter) ([]*models.Work, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.DriverID != "" {
		add("driver_id = $%d", f.DriverID)
	}
	if f.VendorID != "" {
		add("vendor_id = $%d", f.VendorID)
	}
	if f.District != "" {
		add("$%d = ANY(work_route)", f.District)
	}
	if f.Status != "" && f.Status != models.WorkStatusAll {
		add("status = $%d", f.Status)
	}

	q := `SELECT` + workColumns + ` FROM works`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id`

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, serverErr(err, "select works")
	}
	defer rows.Close()

	out := make([]*models.Work, 0)
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, serverErr(err, "scan work")
		}
		out = append(out, w)
	}
	if rows.Err() != nil {
		return nil, serverErr(rows.Err(), "rows")
	}
	return out, nil
}

// ListWorkRoutes отдаёт маршруты всех работ в порядке создания.
func (s *Storage) ListWorkRoutes(ctx context.Context) ([][]string, error) {
	rows, err := s.db.Query(ctx, `SELECT work_route FROM works ORDER BY created_at ASC, id`)
	if err != nil {
		return nil, serverErr(err, "select work routes")
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var r []string
		if err := rows.Scan(&r); err != nil {
			return nil, serverErr(err, "scan work route")
		}
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, serverErr(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) OverwriteRoute(ctx context.Context, id string, route []string) (*models.Work, error) {
	w, err := scanWork(s.db.QueryRow(ctx, `
UPDATE works SET work_route = $2, updated_at = $3
WHERE id = $1
RETURNING`+workColumns, id, route, time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(models.ErrNotFound, "work %s", id)
	}
	if err != nil {
		return nil, serverErr(err, "update work route")
	}
	return w, nil
}

func (s *Storage) SetDestination(ctx context.Context, id string, c models.Coordinate) (*models.Work, error) {
	w, err := scanWork(s.db.QueryRow(ctx, `
UPDATE works SET dest_lat = $2, dest_lon = $3, updated_at = $4
WHERE id = $1
RETURNING`+workColumns, id, c.Latitude, c.Longitude, time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(models.ErrNotFound, "work %s", id)
	}
	if err != nil {
		return nil, serverErr(err, "update destination")
	}
	return w, nil
}

// TransitionStatus: условный апдейт: строка меняется только при status = tr.From.
// end_time не может оказаться раньше start_time.
func (s *Storage) TransitionStatus(ctx context.Context, id string, tr models.StatusTransition) (*models.Work, error) {
	var lat, lon *float64
	if tr.Destination != nil {
		lat, lon = &tr.Destination.Latitude, &tr.Destination.Longitude
	}

	w, err := scanWork(s.db.QueryRow(ctx, `
UPDATE works SET
  status = $3,
  start_time = COALESCE($4, start_time),
  end_time = CASE WHEN $5::timestamptz IS NULL THEN end_time ELSE GREATEST($5::timestamptz, start_time) END,
  dest_lat = COALESCE($6, dest_lat),
  dest_lon = COALESCE($7, dest_lon),
  updated_at = $8
WHERE id = $1 AND status = $2
RETURNING`+workColumns,
		id, tr.From, tr.To, tr.StartTime, tr.EndTime, lat, lon, time.Now().UTC()))
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, serverErr(err, "transition work")
	}

	var status string
	err = s.db.QueryRow(ctx, `SELECT status FROM works WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(models.ErrNotFound, "work %s", id)
	}
	if err != nil {
		return nil, serverErr(err, "probe work status")
	}
	return nil, errors.Wrapf(models.ErrInvalidTransition, "work %s is %q, want %q", id, status, tr.From)
}

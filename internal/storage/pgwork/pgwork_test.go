package pgwork

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/FreshTrack/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPG(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("testcontainers: skipped in -short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "freshtrack_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/freshtrack_test?sslmode=disable"
	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestPGWork_RepoFlow(t *testing.T) {
	st := startPG(t)
	ctx := context.Background()
	require.NoError(t, st.Ping(ctx))

	w, err := st.CreateWork(ctx, models.WorkCreateInput{
		ExportID: "exp-1", DriverID: "drv-1", VendorID: "ven-1", DeviceID: "dev-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, w.ID)
	require.Equal(t, models.WorkStatusRequested, w.Status)
	require.Empty(t, w.WorkRoute)
	require.Nil(t, w.StartTime)

	// маршрут: полная замена, повтор идемпотентен
	w, err = st.OverwriteRoute(ctx, w.ID, []string{"Salem", "Namakkal"})
	require.NoError(t, err)
	require.Equal(t, []string{"Salem", "Namakkal"}, w.WorkRoute)
	w, err = st.OverwriteRoute(ctx, w.ID, []string{"Salem", "Namakkal"})
	require.NoError(t, err)
	require.Equal(t, []string{"Salem", "Namakkal"}, w.WorkRoute)

	byDistrict, err := st.ListWorks(ctx, models.WorkFilter{District: "Namakkal"})
	require.NoError(t, err)
	require.Len(t, byDistrict, 1)

	// завершить до старта нельзя
	now := time.Now().UTC()
	_, err = st.TransitionStatus(ctx, w.ID, models.StatusTransition{
		From: models.WorkStatusOngoing, To: models.WorkStatusCompleted, EndTime: &now,
	})
	require.ErrorIs(t, err, models.ErrInvalidTransition)

	dest := &models.Coordinate{Latitude: 11.1, Longitude: 77.3}
	w, err = st.TransitionStatus(ctx, w.ID, models.StatusTransition{
		From: models.WorkStatusRequested, To: models.WorkStatusOngoing, StartTime: &now, Destination: dest,
	})
	require.NoError(t, err)
	require.Equal(t, models.WorkStatusOngoing, w.Status)
	require.NotNil(t, w.StartTime)
	require.Equal(t, dest, w.DestinationLocation)

	// end_time раньше start_time поднимается до start_time
	earlier := now.Add(-time.Hour)
	w, err = st.TransitionStatus(ctx, w.ID, models.StatusTransition{
		From: models.WorkStatusOngoing, To: models.WorkStatusCompleted, EndTime: &earlier,
	})
	require.NoError(t, err)
	require.Equal(t, models.WorkStatusCompleted, w.Status)
	require.False(t, w.EndTime.Before(*w.StartTime))

	_, err = st.TransitionStatus(ctx, "missing", models.StatusTransition{
		From: models.WorkStatusRequested, To: models.WorkStatusOngoing, StartTime: &now,
	})
	require.ErrorIs(t, err, models.ErrNotFound)

	routes, err := st.ListWorkRoutes(ctx)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"Salem", "Namakkal"}}, routes)
}

func TestPGWork_ConcurrentStartExactlyOne(t *testing.T) {
	st := startPG(t)
	ctx := context.Background()

	w, err := st.CreateWork(ctx, models.WorkCreateInput{
		ExportID: "exp-2", DriverID: "drv-2", VendorID: "ven-2", DeviceID: "dev-2",
	})
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			now := time.Now().UTC()
			_, errs[i] = st.TransitionStatus(ctx, w.ID, models.StatusTransition{
				From: models.WorkStatusRequested, To: models.WorkStatusOngoing, StartTime: &now,
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, models.ErrInvalidTransition)
	}
	require.Equal(t, 1, ok)
}

func TestPGWork_LatestSample(t *testing.T) {
	st := startPG(t)
	ctx := context.Background()

	_, err := st.LatestSample(ctx, "dev-9")
	require.ErrorIs(t, err, models.ErrNotFound)

	base := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, st.InsertSample(ctx, models.SensorSample{DeviceID: "dev-9", Temperature: 4, RecordedAt: base}))
	require.NoError(t, st.InsertSample(ctx, models.SensorSample{DeviceID: "dev-9", Temperature: 6, RecordedAt: base.Add(time.Minute)}))

	smp, err := st.LatestSample(ctx, "dev-9")
	require.NoError(t, err)
	require.Equal(t, 6.0, smp.Temperature)
}

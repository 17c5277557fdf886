package mongowork

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

func startMongo(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("testcontainers: skipped in -short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)

	st, err := New(ctx, "mongodb://"+host+":"+port.Port(), "freshtrack_test")
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestMongoWork_RepoFlow(t *testing.T) {
	st := startMongo(t)
	ctx := context.Background()
	require.NoError(t, st.Ping(ctx))

	w, err := st.CreateWork(ctx, models.WorkCreateInput{
		ExportID: "exp-1", DriverID: "drv-1", VendorID: "ven-1", DeviceID: "dev-1",
	})
	require.NoError(t, err)
	require.Equal(t, models.WorkStatusRequested, w.Status)

	got, err := st.GetWork(ctx, w.ID)
	require.NoError(t, err)
	require.Equal(t, w.ID, got.ID)

	_, err = st.GetWork(ctx, "missing")
	require.ErrorIs(t, err, models.ErrNotFound)

	w, err = st.OverwriteRoute(ctx, w.ID, []string{"Salem", "Erode"})
	require.NoError(t, err)
	require.Equal(t, []string{"Salem", "Erode"}, w.WorkRoute)

	list, err := st.ListWorks(ctx, models.WorkFilter{VendorID: "ven-1", Status: models.WorkStatusAll})
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = st.ListWorks(ctx, models.WorkFilter{District: "Erode"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = st.ListWorks(ctx, models.WorkFilter{VendorID: "ven-1", Status: models.WorkStatusCompleted})
	require.NoError(t, err)
	require.Empty(t, list)

	now := time.Now().UTC()
	_, err = st.TransitionStatus(ctx, w.ID, models.StatusTransition{
		From: models.WorkStatusOngoing, To: models.WorkStatusCompleted, EndTime: &now,
	})
	require.ErrorIs(t, err, models.ErrInvalidTransition)

	w, err = st.TransitionStatus(ctx, w.ID, models.StatusTransition{
		From: models.WorkStatusRequested, To: models.WorkStatusOngoing, StartTime: &now,
		Destination: &models.Coordinate{Latitude: 11, Longitude: 77},
	})
	require.NoError(t, err)
	require.Equal(t, models.WorkStatusOngoing, w.Status)
	require.NotNil(t, w.StartTime)
	require.NotNil(t, w.DestinationLocation)

	earlier := now.Add(-time.Hour)
	w, err = st.TransitionStatus(ctx, w.ID, models.StatusTransition{
		From: models.WorkStatusOngoing, To: models.WorkStatusCompleted, EndTime: &earlier,
	})
	require.NoError(t, err)
	require.Equal(t, models.WorkStatusCompleted, w.Status)
	require.False(t, w.EndTime.Before(*w.StartTime))

	w, err = st.SetDestination(ctx, w.ID, models.Coordinate{Latitude: 12, Longitude: 78})
	require.NoError(t, err)
	require.Equal(t, 12.0, w.DestinationLocation.Latitude)

	routes, err := st.ListWorkRoutes(ctx)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"Salem", "Erode"}}, routes)
}

func TestMongoWork_ConcurrentStartExactlyOne(t *testing.T) {
	st := startMongo(t)
	ctx := context.Background()

	w, err := st.CreateWork(ctx, models.WorkCreateInput{ExportID: "e", DriverID: "d", VendorID: "v", DeviceID: "x"})
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

func TestMongoWork_LatestSample(t *testing.T) {
	st := startMongo(t)
	ctx := context.Background()

	_, err := st.LatestSample(ctx, "dev-1")
	require.ErrorIs(t, err, models.ErrNotFound)

	base := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, st.InsertSample(ctx, models.SensorSample{DeviceID: "dev-1", Humidity: 40, RecordedAt: base.Add(time.Minute)}))
	require.NoError(t, st.InsertSample(ctx, models.SensorSample{DeviceID: "dev-1", Humidity: 30, RecordedAt: base}))

	smp, err := st.LatestSample(ctx, "dev-1")
	require.NoError(t, err)
	require.Equal(t, 40.0, smp.Humidity)
	require.Equal(t, base.Add(time.Minute), smp.RecordedAt)
}

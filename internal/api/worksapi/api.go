package worksapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/BearBump/FreshTrack/internal/models"
	"github.com/BearBump/FreshTrack/internal/services/routes"
	"github.com/BearBump/FreshTrack/internal/services/telemetry"
	"github.com/BearBump/FreshTrack/internal/services/works"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

type WorksService interface {
	CreateWork(ctx context.Context, in models.WorkCreateInput) (*models.Work, error)
	GetWork(ctx context.Context, id string) (*models.Work, error)
	ListWorks(ctx context.Context, f models.WorkFilter) ([]*models.Work, error)
	DriverWorks(ctx context.Context, driverID string) (*works.DriverWorks, error)
	ListDistricts(ctx context.Context) ([]string, error)
	OverwriteRoute(ctx context.Context, id string, districts []string) (*models.Work, error)
	RecordDestination(ctx context.Context, id string, c models.Coordinate) (*models.Work, error)
	StartWork(ctx context.Context, id string, destination *models.Coordinate) (*models.Work, error)
	CompleteWork(ctx context.Context, id string) (*models.Work, error)
	LatestSample(ctx context.Context, deviceID string) (*models.SensorSample, error)
}

type RoutesService interface {
	SubmitRoute(ctx context.Context, req routes.RouteRequest) (*routes.RouteResult, error)
	RequestDerivation(ctx context.Context, req routes.RouteRequest) (string, error)
}

// LiveTracker отдаёт поток событий доставки для websocket-наблюдателей.
type LiveTracker interface {
	Watch(workID string) (<-chan telemetry.Event, func(), error)
}

type WorksAPI struct {
	works   WorksService
	routes  RoutesService
	tracker LiveTracker

	now func() time.Time
}

func New(ws WorksService, rs RoutesService, tracker LiveTracker) *WorksAPI {
	return &WorksAPI{works: ws, routes: rs, tracker: tracker, now: time.Now}
}

// Routes собирает роутер, который монтируется под /api.
func (a *WorksAPI) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/works", a.createWork)
	r.Get("/work/{workId}", a.getWork)
	r.Get("/works/driver/{driverId}", a.driverWorks)
	r.Get("/works/vendor/{vendorId}", a.vendorWorks)
	r.Get("/works/district/{district}", a.districtWorks)
	r.Put("/works/start/{workId}", a.startWork)
	r.Put("/works/complete/{workId}", a.completeWork)
	r.Put("/works/update-routes/{workId}", a.updateRoutes)
	r.Put("/works/update-location/{workId}", a.updateLocation)
	r.Get("/works/{workId}/elapsed", a.elapsed)
	r.Get("/works/{workId}/live", a.live)

	r.Get("/sensor-data/{deviceId}", a.sensorData)

	r.Post("/route/store", a.storeRoute)
	r.Post("/route/store/async", a.storeRouteAsync)
	r.Get("/route/districts", a.districts)

	return r
}

func (a *WorksAPI) createWork(w http.ResponseWriter, r *http.Request) {
	var req createWorkRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	work, err := a.works.CreateWork(r.Context(), req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, work)
}

func (a *WorksAPI) getWork(w http.ResponseWriter, r *http.Request) {
	work, err := a.works.GetWork(r.Context(), chi.URLParam(r, "workId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, work)
}

func (a *WorksAPI) driverWorks(w http.ResponseWriter, r *http.Request) {
	out, err := a.works.DriverWorks(r.Context(), chi.URLParam(r, "driverId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *WorksAPI) vendorWorks(w http.ResponseWriter, r *http.Request) {
	ws, err := a.works.ListWorks(r.Context(), models.WorkFilter{
		VendorID: chi.URLParam(r, "vendorId"),
		Status:   r.URL.Query().Get("status"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, worksResponse{Works: nonNil(ws)})
}

func (a *WorksAPI) districtWorks(w http.ResponseWriter, r *http.Request) {
	district := strings.TrimSpace(chi.URLParam(r, "district"))
	if district == "" {
		writeError(w, r, errors.Wrap(models.ErrInvalidInput, "district is required"))
		return
	}
	ws, err := a.works.ListWorks(r.Context(), models.WorkFilter{
		District: district,
		Status:   r.URL.Query().Get("status"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, worksResponse{Works: nonNil(ws)})
}

func (a *WorksAPI) startWork(w http.ResponseWriter, r *http.Request) {
	var req startWorkRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	work, err := a.works.StartWork(r.Context(), chi.URLParam(r, "workId"), req.DestinationLocation.toModel())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, work)
}

func (a *WorksAPI) completeWork(w http.ResponseWriter, r *http.Request) {
	work, err := a.works.CompleteWork(r.Context(), chi.URLParam(r, "workId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, work)
}

func (a *WorksAPI) updateRoutes(w http.ResponseWriter, r *http.Request) {
	var req updateRoutesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	work, err := a.works.OverwriteRoute(r.Context(), chi.URLParam(r, "workId"), req.WorkRoute)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updatedWorkResponse{Message: "Work route updated successfully", Data: work})
}

func (a *WorksAPI) updateLocation(w http.ResponseWriter, r *http.Request) {
	var req updateLocationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	work, err := a.works.RecordDestination(r.Context(), chi.URLParam(r, "workId"), *req.Location.toModel())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updatedWorkResponse{Message: "Location updated successfully", Data: work})
}

func (a *WorksAPI) elapsed(w http.ResponseWriter, r *http.Request) {
	work, err := a.works.GetWork(r.Context(), chi.URLParam(r, "workId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var secs int64
	if work.StartTime != nil {
		until := a.now()
		if work.EndTime != nil {
			until = *work.EndTime
		}
		secs = telemetry.ElapsedSeconds(*work.StartTime, until)
	}
	writeJSON(w, http.StatusOK, elapsedResponse{
		WorkID:         work.ID,
		Status:         work.Status,
		ElapsedSeconds: secs,
		Elapsed:        telemetry.FormatElapsed(secs),
	})
}

func (a *WorksAPI) sensorData(w http.ResponseWriter, r *http.Request) {
	s, err := a.works.LatestSample(r.Context(), chi.URLParam(r, "deviceId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (req storeRouteRequest) toRouteRequest() routes.RouteRequest {
	return routes.RouteRequest{
		WorkID:      req.WorkID,
		Source:      req.Source.toModel(),
		Destination: req.Destination.toModel(),
		Polyline:    req.polyline(),
	}
}

func (a *WorksAPI) storeRoute(w http.ResponseWriter, r *http.Request) {
	var req storeRouteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := a.routes.SubmitRoute(r.Context(), req.toRouteRequest())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Empty {
		writeJSON(w, http.StatusOK, storeRouteResponse{Message: "no districts found", Districts: []string{}})
		return
	}
	writeJSON(w, http.StatusOK, storeRouteResponse{
		Message:     "Districts extracted and work updated successfully",
		Districts:   res.Districts,
		UpdatedWork: res.Work,
	})
}

func (a *WorksAPI) storeRouteAsync(w http.ResponseWriter, r *http.Request) {
	var req storeRouteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := a.routes.RequestDerivation(r.Context(), req.toRouteRequest())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, asyncRouteResponse{RequestID: id})
}

func (a *WorksAPI) districts(w http.ResponseWriter, r *http.Request) {
	ds, err := a.works.ListDistricts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ds == nil {
		ds = []string{}
	}
	writeJSON(w, http.StatusOK, districtsResponse{Districts: ds})
}

func nonNil(ws []*models.Work) []*models.Work {
	if ws == nil {
		return []*models.Work{}
	}
	return ws
}

package mongowork

import (
	"context"
	"time"

	"github.com/BearBump/FreshTrack/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func serverErr(err error, op string) error {
	return errors.Wrapf(models.ErrServer, "%s: %v", op, err)
}

func (s *Storage) CreateWork(ctx context.Context, in models.WorkCreateInput) (*models.Work, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	route := in.WorkRoute
	if route == nil {
		route = []string{}
	}
	d := workDoc{
		ID:        uuid.NewString(),
		ExportID:  in.ExportID,
		DriverID:  in.DriverID,
		VendorID:  in.VendorID,
		Status:    models.WorkStatusRequested,
		WorkRoute: route,
		DeviceID:  in.DeviceID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.works.InsertOne(ctx, d); err != nil {
		return nil, serverErr(err, "insert work")
	}
	return d.toModel(), nil
}

func (s *Storage) GetWork(ctx context.Context, id string) (*models.Work, error) {
	var d workDoc
	err := s.works.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrapf(models.ErrNotFound, "work %s", id)
	}
	if err != nil {
		return nil, serverErr(err, "find work")
	}
	return d.toModel(), nil
}

func (s *Storage) ListWorks(ctx context.Context, f models.WorkFilter) ([]*models.Work, error) {
	filter := bson.M{}
	if f.DriverID != "" {
		filter["driverId"] = f.DriverID
	}
	if f.VendorID != "" {
		filter["vendorId"] = f.VendorID
	}
	if f.District != "" {
		// для массива равенство означает "содержит элемент"
		filter["workRoute"] = f.District
	}
	if f.Status != "" && f.Status != models.WorkStatusAll {
		filter["status"] = f.Status
	}

	cur, err := s.works.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, serverErr(err, "find works")
	}
	defer cur.Close(ctx)

	out := make([]*models.Work, 0)
	for cur.Next(ctx) {
		var d workDoc
		if err := cur.Decode(&d); err != nil {
			return nil, serverErr(err, "decode work")
		}
		out = append(out, d.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, serverErr(err, "cursor")
	}
	return out, nil
}

func (s *Storage) ListWorkRoutes(ctx context.Context) ([][]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"workRoute": 1}).
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.works.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, serverErr(err, "find work routes")
	}
	defer cur.Close(ctx)

	var out [][]string
	for cur.Next(ctx) {
		var d struct {
			WorkRoute []string `bson:"workRoute"`
		}
		if err := cur.Decode(&d); err != nil {
			return nil, serverErr(err, "decode work route")
		}
		out = append(out, d.WorkRoute)
	}
	if err := cur.Err(); err != nil {
		return nil, serverErr(err, "cursor")
	}
	return out, nil
}

func (s *Storage) updateByID(ctx context.Context, id string, set bson.M, op string) (*models.Work, error) {
	var d workDoc
	err := s.works.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrapf(models.ErrNotFound, "work %s", id)
	}
	if err != nil {
		return nil, serverErr(err, op)
	}
	return d.toModel(), nil
}

func (s *Storage) OverwriteRoute(ctx context.Context, id string, route []string) (*models.Work, error) {
	return s.updateByID(ctx, id, bson.M{"workRoute": route, "updatedAt": time.Now().UTC()}, "update work route")
}

func (s *Storage) SetDestination(ctx context.Context, id string, c models.Coordinate) (*models.Work, error) {
	return s.updateByID(ctx, id, bson.M{"destinationLocation": c, "updatedAt": time.Now().UTC()}, "update destination")
}

// TransitionStatus применяет переход одним FindOneAndUpdate с фильтром по текущему статусу.
// Update задан пайплайном, чтобы endTime считался как max(endTime, startTime) на стороне базы.
func (s *Storage) TransitionStatus(ctx context.Context, id string, tr models.StatusTransition) (*models.Work, error) {
	set := bson.D{
		{Key: "status", Value: tr.To},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}
	if tr.StartTime != nil {
		set = append(set, bson.E{Key: "startTime", Value: tr.StartTime.UTC()})
	}
	if tr.EndTime != nil {
		set = append(set, bson.E{Key: "endTime", Value: bson.M{"$max": bson.A{"$startTime", tr.EndTime.UTC()}}})
	}
	if tr.Destination != nil {
		set = append(set, bson.E{Key: "destinationLocation", Value: bson.M{
			"latitude":  tr.Destination.Latitude,
			"longitude": tr.Destination.Longitude,
		}})
	}

	var d workDoc
	err := s.works.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": tr.From},
		mongo.Pipeline{{{Key: "$set", Value: set}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err == nil {
		return d.toModel(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, serverErr(err, "transition work")
	}

	var probe struct {
		Status string `bson:"status"`
	}
	err = s.works.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"status": 1})).Decode(&probe)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrapf(models.ErrNotFound, "work %s", id)
	}
	if err != nil {
		return nil, serverErr(err, "probe work status")
	}
	return nil, errors.Wrapf(models.ErrInvalidTransition, "work %s is %q, want %q", id, probe.Status, tr.From)
}

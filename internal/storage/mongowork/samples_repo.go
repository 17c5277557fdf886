package mongowork

import (
	"context"

	"github.com/BearBump/FreshTrack/internal/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Storage) InsertSample(ctx context.Context, smp models.SensorSample) error {
	_, err := s.samples.InsertOne(ctx, sampleDoc{
		DeviceID:    smp.DeviceID,
		Temperature: smp.Temperature,
		Humidity:    smp.Humidity,
		GasLevel:    smp.GasLevel,
		RecordedAt:  smp.RecordedAt.UTC(),
	})
	if err != nil {
		return serverErr(err, "insert sensor sample")
	}
	return nil
}

func (s *Storage) LatestSample(ctx context.Context, deviceID string) (*models.SensorSample, error) {
	var d sampleDoc
	err := s.samples.FindOne(ctx,
		bson.M{"device_id": deviceID},
		options.FindOne().SetSort(bson.D{{Key: "recorded_at", Value: -1}}),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrapf(models.ErrNotFound, "no sensor data for device %s", deviceID)
	}
	if err != nil {
		return nil, serverErr(err, "find sensor sample")
	}
	return d.toModel(), nil
}

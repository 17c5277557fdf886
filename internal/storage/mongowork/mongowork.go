package mongowork

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	worksCollection   = "works"
	samplesCollection = "sensor_data"
)

type Storage struct {
	client  *mongo.Client
	works   *mongo.Collection
	samples *mongo.Collection
}

func New(ctx context.Context, uri, database string) (*Storage, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping mongo")
	}

	db := client.Database(database)
	s := &Storage{
		client:  client,
		works:   db.Collection(worksCollection),
		samples: db.Collection(samplesCollection),
	}
	if err := s.initIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Storage) initIndexes(ctx context.Context) error {
	_, err := s.works.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "driverId", Value: 1}}},
		{Keys: bson.D{{Key: "vendorId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "workRoute", Value: 1}}},
	})
	if err != nil {
		return errors.Wrap(err, "create works indexes")
	}
	_, err = s.samples.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "device_id", Value: 1}, {Key: "recorded_at", Value: -1}},
	})
	return errors.Wrap(err, "create sensor_data index")
}

func (s *Storage) Ping(ctx context.Context) error {
	return errors.Wrap(s.client.Ping(ctx, nil), "mongo ping")
}

func (s *Storage) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}

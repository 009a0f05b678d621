package geofence

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/multierr"

	"github.com/boardlens/boardlens/logging"
)

const (
	// DefaultMongoDatabase is the database holding the zone directory.
	DefaultMongoDatabase = "arProjectDB"
	// DefaultMongoCollection is the collection holding the zone directory.
	DefaultMongoCollection = "assets"
)

// MongoZoneStore reads zones from a MongoDB collection whose documents carry a "coordinate" string.
// Documents that cannot be parsed are skipped.
type MongoZoneStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	ownsClient bool
	logger     logging.Logger
}

// NewMongoZoneStore returns a store over an existing client.
func NewMongoZoneStore(client *mongo.Client, database, collection string, logger logging.Logger) *MongoZoneStore {
	if database == "" {
		database = DefaultMongoDatabase
	}
	if collection == "" {
		collection = DefaultMongoCollection
	}
	return &MongoZoneStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger,
	}
}

// DialMongoZoneStore connects to uri and returns a store that disconnects on Close.
func DialMongoZoneStore(ctx context.Context, uri, database, collection string, logger logging.Logger) (*MongoZoneStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "could not connect to zone directory")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, multierr.Combine(errors.Wrap(err, "could not reach zone directory"), client.Disconnect(ctx))
	}
	store := NewMongoZoneStore(client, database, collection, logger)
	store.ownsClient = true
	return store, nil
}

// Zones lists every parsable zone in the collection.
func (s *MongoZoneStore) Zones(ctx context.Context) ([]Zone, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"coordinate": bson.M{"$exists": true}})
	if err != nil {
		return nil, errors.Wrap(err, "could not query zone directory")
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "could not read zone directory")
	}
	zones := make([]Zone, 0, len(docs))
	for _, doc := range docs {
		z, err := zoneFromDocument(doc)
		if err != nil {
			s.logger.Debugw("skipping zone document", "id", doc["_id"], "error", err)
			continue
		}
		zones = append(zones, z)
	}
	return zones, nil
}

// AddZone inserts a zone document.
func (s *MongoZoneStore) AddZone(ctx context.Context, z Zone) error {
	if z.Center == nil {
		return errors.New("zone must have a center")
	}
	doc := bson.M{
		"coordinate":   FormatCoordinate(z.Center),
		"college_name": z.Name,
	}
	if z.RadiusMeters > 0 {
		doc["radius_m"] = z.RadiusMeters
	}
	_, err := s.collection.InsertOne(ctx, doc)
	return errors.Wrap(err, "could not insert zone")
}

// Close disconnects the client if the store dialed it.
func (s *MongoZoneStore) Close(ctx context.Context) error {
	if !s.ownsClient {
		return nil
	}
	return s.client.Disconnect(ctx)
}

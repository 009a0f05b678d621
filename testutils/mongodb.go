// Package testutils holds helpers shared by package tests.
package testutils

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/multierr"
)

// MongoDBURIEnvVar names the env var pointing tests at a MongoDB deployment.
const MongoDBURIEnvVar = "TEST_MONGODB_URI"

const defaultMongoDBURI = "mongodb://127.0.0.1:27017"

var (
	cacheMu                       sync.Mutex
	cachedBackingMongoDBClient    *mongo.Client
	cachedBackingMongoDBClientErr error
)

// NewMongoDBNamespace returns a new random database and collection name to use.
func NewMongoDBNamespace() (string, string) {
	return "test_" + randomName(), randomName()
}

func randomName() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func backingMongoDBURI() string {
	if uri := os.Getenv(MongoDBURIEnvVar); uri != "" {
		return uri
	}
	return defaultMongoDBURI
}

func backingMongoDBClient() (*mongo.Client, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if cachedBackingMongoDBClient != nil {
		return cachedBackingMongoDBClient, nil
	}
	if cachedBackingMongoDBClientErr != nil {
		return nil, cachedBackingMongoDBClientErr
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(backingMongoDBURI()).
		SetServerSelectionTimeout(2*time.Second))
	if err != nil {
		cachedBackingMongoDBClientErr = err
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		cachedBackingMongoDBClientErr = multierr.Combine(err, client.Disconnect(ctx))
		return nil, cachedBackingMongoDBClientErr
	}
	cachedBackingMongoDBClient = client
	return client, nil
}

// BackingMongoDBClient returns a backing MongoDB client to use. The test is skipped when no
// deployment is reachable. Databases created through NewMongoDBNamespace should be dropped by the
// caller with DropMongoDBNamespace.
func BackingMongoDBClient(t *testing.T) *mongo.Client {
	t.Helper()
	client, err := backingMongoDBClient()
	if err != nil {
		t.Skipf("skipping test that needs MongoDB at %s: %v", backingMongoDBURI(), err)
		return nil
	}
	return client
}

// DropMongoDBNamespace drops dbName at the end of the test.
func DropMongoDBNamespace(t *testing.T, client *mongo.Client, dbName string) {
	t.Helper()
	t.Cleanup(func() {
		if err := client.Database(dbName).Drop(context.Background()); err != nil {
			t.Logf("error dropping test database %q: %v", dbName, err)
		}
	})
}

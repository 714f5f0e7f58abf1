package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"kitchenrent/pkg/client"
	"kitchenrent/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultMongoURI           = "mongodb://localhost:27017"
	DefaultDatabaseName       = "kitchenrent"
	ConnectionTimeout         = 10 * time.Second
	DefaultHealthCheckTimeout = 30 * time.Second
)

// TestEnv points the suite at a running API and its database. The suite is
// skipped unless TEST_SERVER_URL is set.
type TestEnv struct {
	ServerURL    string
	MongoURI     string
	DatabaseName string

	mongo *mongo.Client
}

func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	serverURL := os.Getenv("TEST_SERVER_URL")
	if serverURL == "" {
		t.Skip("TEST_SERVER_URL not set, skipping integration tests")
	}

	env := &TestEnv{
		ServerURL:    serverURL,
		MongoURI:     getEnv("TEST_MONGO_URI", DefaultMongoURI),
		DatabaseName: getEnv("TEST_DB_NAME", DefaultDatabaseName),
	}

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(env.MongoURI))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := mc.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}
	env.mongo = mc

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mc.Disconnect(ctx)
	})

	if err := client.NewHttpClient(serverURL).WaitForHealthy(DefaultHealthCheckTimeout); err != nil {
		t.Fatalf("service not healthy: %v", err)
	}
	return env
}

// ClientAs returns an API client that identifies as actor through the
// gateway identity headers.
func (e *TestEnv) ClientAs(actor model.Actor) *client.ReservationClient {
	return client.NewReservationClient(client.NewHttpClient(e.ServerURL).WithHeaders(map[string]string{
		"X-Actor-ID":   actor.ID,
		"X-Actor-Role": string(actor.Role),
	}))
}

// SeedEquipment inserts an equipment item and removes it, with its
// reservations, when the test ends.
func (e *TestEnv) SeedEquipment(t *testing.T, name string, dailyRate int64, status model.EquipmentStatus) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	db := e.mongo.Database(e.DatabaseName)
	id := primitive.NewObjectID()
	_, err := db.Collection("Equipment").InsertOne(ctx, bson.M{
		"_id":        id,
		"name":       name,
		"status":     status,
		"daily_rate": dailyRate,
		"currency":   "usd",
	})
	if err != nil {
		t.Fatalf("failed to seed equipment: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
		defer cancel()
		_, _ = db.Collection("Reservations").DeleteMany(ctx, bson.M{"equipment_id": id.Hex()})
		_, _ = db.Collection("Equipment").DeleteOne(ctx, bson.M{"_id": id})
	})
	return id.Hex()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

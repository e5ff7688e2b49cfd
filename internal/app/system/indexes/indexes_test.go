package indexes_test

import (
	"context"
	"testing"

	"github.com/arabeuna/aramove/internal/app/system/indexes"
	"github.com/arabeuna/aramove/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexNames(t *testing.T, ctx context.Context, db *mongo.Database, coll string) map[string]bson.M {
	t.Helper()
	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	out := make(map[string]bson.M)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			out[name] = idx
		}
	}
	return out
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// SetupTestDB already ran EnsureAll once.
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("third EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesExpectedIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	expected := map[string][]string{
		"users": {
			indexes.UsersEmail,
			indexes.UsersPlate,
			indexes.UsersCPF,
			indexes.UsersLocation,
			"idx_users_role_approved_nameci_id",
		},
		"rides": {
			indexes.RidesOrigin,
			"geo_rides_destination",
			"idx_rides_passenger_status_created",
			"idx_rides_driver_status_created",
			indexes.RidesActive,
		},
		"ratings":      {indexes.RatingsOnce},
		"messages":     {"idx_messages_ride_created", "idx_messages_receiver_read"},
		"audit_events": {"idx_audit_timestamp", "idx_audit_ride_timestamp"},
	}
	for coll, names := range expected {
		got := indexNames(t, ctx, db, coll)
		for _, name := range names {
			if _, ok := got[name]; !ok {
				t.Errorf("expected index %q on %s", name, coll)
			}
		}
	}
}

func TestEnsureAll_GeoIndexesAre2dsphere(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := indexNames(t, ctx, db, "users")
	key, _ := users[indexes.UsersLocation]["key"].(bson.M)
	if key["location"] != "2dsphere" {
		t.Errorf("users.location index key = %v, want 2dsphere", key)
	}
	rides := indexNames(t, ctx, db, "rides")
	key, _ = rides[indexes.RidesOrigin]["key"].(bson.M)
	if key["origin"] != "2dsphere" {
		t.Errorf("rides.origin index key = %v, want 2dsphere", key)
	}
}

func TestEnsureAll_PlateUniqueOnlyWhenPresent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := db.Collection("users")
	// Two passengers without vehicles must not collide on the plate index.
	if _, err := c.InsertOne(ctx, bson.M{"email": "a@example.com"}); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if _, err := c.InsertOne(ctx, bson.M{"email": "b@example.com"}); err != nil {
		t.Fatalf("insert b: %v", err)
	}

	if _, err := c.InsertOne(ctx, bson.M{"email": "c@example.com", "vehicle": bson.M{"plate": "ABC1234"}}); err != nil {
		t.Fatalf("insert c: %v", err)
	}
	_, err := c.InsertOne(ctx, bson.M{"email": "d@example.com", "vehicle": bson.M{"plate": "ABC1234"}})
	if !mongo.IsDuplicateKeyError(err) {
		t.Errorf("expected duplicate key error for repeated plate, got %v", err)
	}
}

func TestEnsureAll_RecreatesIndexWithChangedOptions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := db.Collection("ratings")
	if _, err := c.Indexes().DropOne(ctx, indexes.RatingsOnce); err != nil {
		t.Fatalf("drop: %v", err)
	}
	// Same keys, not unique, different name.
	_, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ride", Value: 1}, {Key: "from", Value: 1}},
		Options: options.Index().SetName("legacy_ride_from"),
	})
	if err != nil {
		t.Fatalf("create legacy: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	got := indexNames(t, ctx, db, "ratings")
	if _, ok := got["legacy_ride_from"]; ok {
		t.Error("legacy index should have been replaced")
	}
	idx, ok := got[indexes.RatingsOnce]
	if !ok {
		t.Fatal("unique ratings index missing")
	}
	if idx["unique"] != true {
		t.Errorf("ratings index unique = %v", idx["unique"])
	}
}

package validators_test

import (
	"testing"
	"time"

	"github.com/arabeuna/aramove/internal/app/system/validators"
	"github.com/arabeuna/aramove/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupValidated(t *testing.T) *mongo.Database {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return db
}

func point(lng, lat float64, address string) bson.M {
	return bson.M{"type": "Point", "coordinates": bson.A{lng, lat}, "address": address}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := setupValidated(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := setupValidated(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	collMap := make(map[string]bool)
	for _, name := range names {
		collMap[name] = true
	}
	for _, expected := range []string{"users", "rides", "ratings", "messages", "audit_events"} {
		if !collMap[expected] {
			t.Errorf("expected collection %q to exist", expected)
		}
	}
}

func TestUsersValidator(t *testing.T) {
	db := setupValidated(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	valid := func() bson.M {
		return bson.M{
			"name":          "Ana",
			"email":         "ana@example.com",
			"password_hash": "$2a$10$abc",
			"role":          "passenger",
			"is_approved":   true,
			"is_available":  false,
		}
	}

	if _, err := db.Collection("users").InsertOne(ctx, valid()); err != nil {
		t.Fatalf("insert valid user failed: %v", err)
	}

	badRole := valid()
	badRole["email"] = "x@example.com"
	badRole["role"] = "user"
	if _, err := db.Collection("users").InsertOne(ctx, badRole); err == nil {
		t.Error("expected validation error for legacy role stored verbatim")
	}

	missing := bson.M{"email": "y@example.com"}
	if _, err := db.Collection("users").InsertOne(ctx, missing); err == nil {
		t.Error("expected validation error when required fields are missing")
	}
}

func TestRidesValidator_DriverRequiredPastPending(t *testing.T) {
	db := setupValidated(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ride := func(status string, driver any) bson.M {
		return bson.M{
			"passenger":   primitive.NewObjectID(),
			"driver":      driver,
			"origin":      point(-46.63, -23.55, "A"),
			"destination": point(-46.64, -23.56, "B"),
			"status":      status,
			"price":       25.5,
			"created_at":  time.Now(),
		}
	}
	c := db.Collection("rides")

	for _, status := range []string{"pending", "cancelled"} {
		if _, err := c.InsertOne(ctx, ride(status, nil)); err != nil {
			t.Errorf("%s ride without driver rejected: %v", status, err)
		}
	}
	for _, status := range []string{"accepted", "in_progress", "completed"} {
		if _, err := c.InsertOne(ctx, ride(status, nil)); err == nil {
			t.Errorf("%s ride without driver accepted by validator", status)
		}
		if _, err := c.InsertOne(ctx, ride(status, primitive.NewObjectID())); err != nil {
			t.Errorf("%s ride with driver rejected: %v", status, err)
		}
	}
	if _, err := c.InsertOne(ctx, ride("teleported", nil)); err == nil {
		t.Error("unknown status accepted by validator")
	}
}

func TestRatingsValidator_StarsRange(t *testing.T) {
	db := setupValidated(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rating := func(stars int) bson.M {
		return bson.M{
			"ride":  primitive.NewObjectID(),
			"from":  primitive.NewObjectID(),
			"to":    primitive.NewObjectID(),
			"stars": stars,
		}
	}
	c := db.Collection("ratings")
	if _, err := c.InsertOne(ctx, rating(5)); err != nil {
		t.Errorf("5 stars rejected: %v", err)
	}
	for _, stars := range []int{0, 6} {
		if _, err := c.InsertOne(ctx, rating(stars)); err == nil {
			t.Errorf("%d stars accepted by validator", stars)
		}
	}
}

func TestMessagesValidator_ContentLength(t *testing.T) {
	db := setupValidated(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	msg := func(content string) bson.M {
		return bson.M{
			"sender":       primitive.NewObjectID(),
			"receiver":     primitive.NewObjectID(),
			"content":      content,
			"read":         false,
			"support_chat": true,
		}
	}
	c := db.Collection("messages")
	if _, err := c.InsertOne(ctx, msg("hello")); err != nil {
		t.Errorf("valid message rejected: %v", err)
	}
	if _, err := c.InsertOne(ctx, msg("")); err == nil {
		t.Error("empty message accepted by validator")
	}
}

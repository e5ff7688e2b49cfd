package txn_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/arabeuna/aramove/internal/app/system/txn"
	"github.com/arabeuna/aramove/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("connection reset"), false},
		{mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}, true},
		{mongo.CommandError{Code: 263}, true},
		{mongo.CommandError{Code: 51}, false},
		{mongo.CommandError{Code: 11000, Message: "E11000 duplicate key"}, false},
		{mongo.CommandError{Code: 251, Name: "NoSuchTransaction", Message: "Transaction 7 has been aborted."}, false},
		{fmt.Errorf("commit: %w", errors.New("Transaction numbers are only allowed on a replica set member or mongos")), true},
		{errors.New("(NoSuchTransaction) Transaction 7 has been aborted for session abc"), false},
		{errors.New("transaction aborted"), false},
		{errors.New("session expired during transaction"), false},
	}
	for _, tt := range tests {
		if got := txn.IsNotSupported(tt.err); got != tt.want {
			t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestRun_NilClient(t *testing.T) {
	calls := 0
	if err := txn.Run(context.Background(), nil, nil, func(context.Context) error {
		calls++
		return nil
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}

	want := errors.New("write failed")
	if err := txn.Run(context.Background(), nil, nil, func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Errorf("Run error = %v, want %v", err, want)
	}
}

// Completing a ride writes to rides and users together. On a standalone
// server Run falls back to sequential writes; either way both land.
func TestRun_CompletesBothWrites(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rideID := primitive.NewObjectID()
	driverID := primitive.NewObjectID()
	if _, err := db.Collection("rides").InsertOne(ctx, bson.M{"_id": rideID, "status": "in_progress"}); err != nil {
		t.Fatalf("insert ride: %v", err)
	}
	if _, err := db.Collection("users").InsertOne(ctx, bson.M{"_id": driverID, "is_available": false}); err != nil {
		t.Fatalf("insert driver: %v", err)
	}

	err := txn.Run(ctx, db.Client(), zap.NewNop(), func(ctx context.Context) error {
		if _, err := db.Collection("rides").UpdateByID(ctx, rideID, bson.M{"$set": bson.M{"status": "completed"}}); err != nil {
			return err
		}
		_, err := db.Collection("users").UpdateByID(ctx, driverID, bson.M{"$set": bson.M{"is_available": true}})
		return err
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var ride struct{ Status string `bson:"status"` }
	if err := db.Collection("rides").FindOne(ctx, bson.M{"_id": rideID}).Decode(&ride); err != nil || ride.Status != "completed" {
		t.Errorf("ride status = %q, err=%v", ride.Status, err)
	}
	var driver struct{ Available bool `bson:"is_available"` }
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": driverID}).Decode(&driver); err != nil || !driver.Available {
		t.Errorf("driver available = %v, err=%v", driver.Available, err)
	}
}

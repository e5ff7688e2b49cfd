package ridestore

import (
	"context"
	"errors"
	"time"

	"github.com/arabeuna/aramove/internal/app/system/paging"
	"github.com/arabeuna/aramove/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("ride not found")
	// ErrStateChanged means a conditional write matched nothing: the ride
	// moved on (or never matched the expected state/party) between the read
	// and the write.
	ErrStateChanged = errors.New("ride state changed")
	// ErrDriverBusy means the driver already holds an accepted or
	// in-progress ride.
	ErrDriverBusy = errors.New("driver already has an active ride")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("rides")}
}

// Create inserts a new pending ride with no driver.
func (s *Store) Create(ctx context.Context, r models.Ride) (models.Ride, error) {
	now := time.Now().UTC()
	r.ID = primitive.NewObjectID()
	r.Status = models.RideStatusPending
	r.Driver = nil
	r.ActiveDriver = nil
	r.AcceptedAt, r.StartTime, r.EndTime, r.CancelledAt, r.CancelledBy = nil, nil, nil, nil, nil
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.Ride{}, err
	}
	return r, nil
}

// GetByID loads a ride.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Ride, error) {
	var r models.Ride
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Ride{}, ErrNotFound
		}
		return models.Ride{}, err
	}
	return r, nil
}

// AcceptIfPending binds driver to the ride in a single find-and-modify
// conditional on the ride still being pending and unassigned. Of any number
// of concurrent callers at most one gets the ride back; the rest get
// ErrStateChanged. A driver who already holds an active ride gets
// ErrDriverBusy from the unique index on active_driver, even when two
// accepts for different rides race.
func (s *Store) AcceptIfPending(ctx context.Context, id, driver primitive.ObjectID) (models.Ride, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":    id,
		"status": models.RideStatusPending,
		"driver": nil,
	}
	update := bson.M{"$set": bson.M{
		"status":        models.RideStatusAccepted,
		"driver":        driver,
		"active_driver": driver,
		"accepted_at":   now,
		"updated_at":    now,
	}}
	r, err := s.findAndUpdate(ctx, filter, update)
	if wafflemongo.IsDup(err) {
		return models.Ride{}, ErrDriverBusy
	}
	return r, err
}

// Transition moves a ride bound to driver from one status to another,
// applying set alongside. It is conditional on the current status and
// driver so a stale caller cannot overwrite a newer state. Moving to a
// terminal status frees the driver for another ride.
func (s *Store) Transition(ctx context.Context, id, driver primitive.ObjectID, from, to models.RideStatus, set bson.M) (models.Ride, error) {
	fields := bson.M{}
	for k, v := range set {
		fields[k] = v
	}
	fields["status"] = to
	fields["updated_at"] = time.Now().UTC()

	update := bson.M{"$set": fields}
	if to == models.RideStatusCompleted || to == models.RideStatusCancelled {
		update["$unset"] = bson.M{"active_driver": ""}
	}
	filter := bson.M{"_id": id, "status": from, "driver": driver}
	return s.findAndUpdate(ctx, filter, update)
}

// Cancel cancels a pending or accepted ride on behalf of one of its parties.
func (s *Store) Cancel(ctx context.Context, id, by primitive.ObjectID) (models.Ride, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": []models.RideStatus{models.RideStatusPending, models.RideStatusAccepted}},
		"$or":    bson.A{bson.M{"passenger": by}, bson.M{"driver": by}},
	}
	update := bson.M{
		"$set": bson.M{
			"status":       models.RideStatusCancelled,
			"cancelled_at": now,
			"cancelled_by": by,
			"updated_at":   now,
		},
		"$unset": bson.M{"active_driver": ""},
	}
	return s.findAndUpdate(ctx, filter, update)
}

func (s *Store) findAndUpdate(ctx context.Context, filter, update bson.M) (models.Ride, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var r models.Ride
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Ride{}, ErrStateChanged
		}
		return models.Ride{}, err
	}
	return r, nil
}

// Current returns the user's most recent ride that is still active, as
// passenger or driver. ok is false when there is none.
func (s *Store) Current(ctx context.Context, userID primitive.ObjectID) (ride models.Ride, ok bool, err error) {
	filter := bson.M{
		"status": bson.M{"$in": models.ActiveRideStatuses},
		"$or":    bson.A{bson.M{"passenger": userID}, bson.M{"driver": userID}},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if err := s.c.FindOne(ctx, filter, opts).Decode(&ride); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Ride{}, false, nil
		}
		return models.Ride{}, false, err
	}
	return ride, true, nil
}

// ListFilter narrows History and ListAll.
type ListFilter struct {
	Status models.RideStatus
	Before primitive.ObjectID // newest-first cursor; zero means from the top
	Limit  int
}

// History returns the user's rides (as passenger or driver), newest first.
func (s *Store) History(ctx context.Context, userID primitive.ObjectID, f ListFilter) ([]models.Ride, error) {
	filter := bson.M{"$or": bson.A{bson.M{"passenger": userID}, bson.M{"driver": userID}}}
	return s.list(ctx, filter, f)
}

// ListAll returns every ride, newest first. Used by admin moderation.
func (s *Store) ListAll(ctx context.Context, f ListFilter) ([]models.Ride, error) {
	return s.list(ctx, bson.M{}, f)
}

func (s *Store) list(ctx context.Context, filter bson.M, f ListFilter) ([]models.Ride, error) {
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if !f.Before.IsZero() {
		filter["_id"] = bson.M{"$lt": f.Before}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = paging.DefaultLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Ride{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// HasActiveWith reports whether a and b share a ride that is accepted or in
// progress. Used to gate driver location lookups.
func (s *Store) HasActiveWith(ctx context.Context, a, b primitive.ObjectID) (bool, error) {
	filter := bson.M{
		"status": bson.M{"$in": []models.RideStatus{models.RideStatusAccepted, models.RideStatusInProgress}},
		"$or": bson.A{
			bson.M{"passenger": a, "driver": b},
			bson.M{"passenger": b, "driver": a},
		},
	}
	n, err := s.c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes a ride. Admin moderation only.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByStatus returns ride counts for every status, zero-filled.
func (s *Store) CountByStatus(ctx context.Context) (map[models.RideStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[models.RideStatus]int64, len(models.AllRideStatuses))
	for _, st := range models.AllRideStatuses {
		out[st] = 0
	}
	for cur.Next(ctx) {
		var row struct {
			Status models.RideStatus `bson:"_id"`
			N      int64             `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Status] = row.N
	}
	return out, cur.Err()
}

package ratingstore

import (
	"context"
	"errors"
	"time"

	"github.com/arabeuna/aramove/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateRating means the rater already rated this ride.
var ErrDuplicateRating = errors.New("ride already rated by this user")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("ratings")}
}

// Create inserts a rating. The unique {ride, from} index turns a second
// rating by the same rater into ErrDuplicateRating.
func (s *Store) Create(ctx context.Context, r models.Rating) (models.Rating, error) {
	r.ID = primitive.NewObjectID()
	r.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Rating{}, ErrDuplicateRating
		}
		return models.Rating{}, err
	}
	return r, nil
}

// AverageFor returns the mean stars received by user and how many ratings
// it is based on. Both are zero when the user has no ratings.
func (s *Store) AverageFor(ctx context.Context, user primitive.ObjectID) (float64, int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"to": user}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avg":   bson.M{"$avg": "$stars"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	defer cur.Close(ctx)

	var row struct {
		Avg   float64 `bson:"avg"`
		Count int     `bson:"count"`
	}
	if !cur.Next(ctx) {
		return 0, 0, cur.Err()
	}
	if err := cur.Decode(&row); err != nil {
		return 0, 0, err
	}
	return row.Avg, row.Count, nil
}

// Exists reports whether from already rated ride.
func (s *Store) Exists(ctx context.Context, ride, from primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"ride": ride, "from": from}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ForUser returns ratings received by user, newest first.
func (s *Store) ForUser(ctx context.Context, user primitive.ObjectID, limit int) ([]models.Rating, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.c.Find(ctx, bson.M{"to": user}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Rating{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

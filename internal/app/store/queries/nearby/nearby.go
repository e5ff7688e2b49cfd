// Package nearby implements the proximity matcher: nearest-first candidates
// around a point, bounded by distance and count.
package nearby

import (
	"context"

	"github.com/arabeuna/aramove/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Defaults observed in production use.
const (
	DefaultRideRadiusMeters   = 10000
	DefaultDriverRadiusMeters = 5000
	DefaultLimit              = 5
)

// RideCandidate is a pending ride with its distance to the query point.
type RideCandidate struct {
	models.Ride    `bson:",inline"`
	DistanceMeters float64 `bson:"distance_m" json:"distanceMeters"`
}

// DriverCandidate is the public view of an available driver near the query point.
type DriverCandidate struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Phone          string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Rating         float64            `bson:"rating" json:"rating"`
	Vehicle        *models.Vehicle    `bson:"vehicle,omitempty" json:"vehicle,omitempty"`
	Location       models.GeoPoint    `bson:"location" json:"location"`
	DistanceMeters float64            `bson:"distance_m" json:"distanceMeters"`
}

// Query is the input of a proximity search.
type Query struct {
	Point     models.GeoPoint
	MaxMeters float64
	Limit     int
}

func (q Query) normalized(defRadius float64) Query {
	if q.MaxMeters <= 0 {
		q.MaxMeters = defRadius
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	return q
}

// pipeline builds $geoNear over key filtered by match, then a stable
// distance/created_at/_id order. $geoNear alone does not order ties.
func pipeline(q Query, key string, match bson.M, project bson.M) mongo.Pipeline {
	p := mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.M{
			"near":          bson.M{"type": "Point", "coordinates": bson.A{q.Point.Lng(), q.Point.Lat()}},
			"distanceField": "distance_m",
			"maxDistance":   q.MaxMeters,
			"spherical":     true,
			"key":           key,
			"query":         match,
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "distance_m", Value: 1},
			{Key: "created_at", Value: 1},
			{Key: "_id", Value: 1},
		}}},
		{{Key: "$limit", Value: int64(q.Limit)}},
	}
	if project != nil {
		p = append(p, bson.D{{Key: "$project", Value: project}})
	}
	return p
}

// Rides returns pending, unassigned rides whose origin lies within
// q.MaxMeters of q.Point, nearest first.
func Rides(ctx context.Context, db *mongo.Database, q Query) ([]RideCandidate, error) {
	q = q.normalized(DefaultRideRadiusMeters)
	match := bson.M{"status": models.RideStatusPending, "driver": nil}

	cur, err := db.Collection("rides").Aggregate(ctx, pipeline(q, "origin", match, nil))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []RideCandidate{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Drivers returns available drivers within q.MaxMeters of q.Point, nearest
// first. When requireApproved is set only approved drivers are returned.
func Drivers(ctx context.Context, db *mongo.Database, q Query, requireApproved bool) ([]DriverCandidate, error) {
	q = q.normalized(DefaultDriverRadiusMeters)
	match := bson.M{"role": models.RoleDriver, "is_available": true}
	if requireApproved {
		match["is_approved"] = true
	}
	project := bson.M{
		"_id": 1, "name": 1, "phone": 1, "rating": 1, "vehicle": 1, "location": 1, "distance_m": 1,
	}

	cur, err := db.Collection("users").Aggregate(ctx, pipeline(q, "location", match, project))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []DriverCandidate{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

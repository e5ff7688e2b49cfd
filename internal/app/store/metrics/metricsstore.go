package metricsstore

import (
	"context"

	"github.com/arabeuna/aramove/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of totals shown on the admin dashboard.
type Counts struct {
	ActiveDrivers  int64 // approved drivers
	OnlineDrivers  int64 // approved and accepting rides
	PendingDrivers int64
	Passengers     int64
	Admins         int64
	TotalRides     int64
	RidesByStatus  map[models.RideStatus]int64
}

// FetchAdminStats returns the counts used by the admin dashboard.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchAdminStats(ctx context.Context, db *mongo.Database) Counts {
	users := db.Collection("users")
	out := Counts{RidesByStatus: make(map[models.RideStatus]int64, len(models.AllRideStatuses))}

	count := func(filter bson.M) int64 {
		n, err := users.CountDocuments(ctx, filter)
		if err != nil {
			return 0
		}
		return n
	}

	out.ActiveDrivers = count(bson.M{"role": models.RoleDriver, "is_approved": true})
	out.OnlineDrivers = count(bson.M{"role": models.RoleDriver, "is_approved": true, "is_available": true})
	out.PendingDrivers = count(bson.M{"role": models.RoleDriver, "is_approved": false})
	out.Passengers = count(bson.M{"role": models.RolePassenger})
	out.Admins = count(bson.M{"role": models.RoleAdmin})

	for _, st := range models.AllRideStatuses {
		out.RidesByStatus[st] = 0
	}
	cur, err := db.Collection("rides").Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var row struct {
			Status models.RideStatus `bson:"_id"`
			N      int64             `bson:"n"`
		}
		if cur.Decode(&row) != nil {
			continue
		}
		out.RidesByStatus[row.Status] = row.N
		out.TotalRides += row.N
	}

	return out
}

// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Index names referenced elsewhere (duplicate-key mapping, tests).
const (
	UsersEmail    = "uniq_users_email"
	UsersPlate    = "uniq_users_vehicle_plate"
	UsersCPF      = "uniq_users_documents_cpf"
	UsersLocation = "geo_users_location"
	RidesOrigin   = "geo_rides_origin"
	RidesActive   = "uniq_rides_active_driver"
	RatingsOnce   = "uniq_ratings_ride_from"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Errors are aggregated so every problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"rides", ensureRides},
		{"ratings", ensureRatings},
		{"messages", ensureMessages},
		{"audit_events", ensureAuditEvents},
	}
	for _, s := range sets {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name    string `bson:"name"`
	Key     bson.D `bson:"key"`
	Unique  *bool  `bson:"unique,omitempty"`
	Partial bson.M `bson:"partialFilterExpression,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	return (a != nil && *a) == (b != nil && *b)
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo and DocumentDB report IndexOptionsConflict when the same keys exist
// under a different name or with different options.
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		// A collection that does not exist yet has no indexes.
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

// ensureIndexSet reconciles desired indexes by key pattern. An existing
// index with the same keys and uniqueness is reused (renamed if the name
// differs); one with different options is dropped and recreated.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, desired []mongo.IndexModel) error {
	var errs []string
	existing := listIndexes(ctx, coll)

	for _, m := range desired {
		var name string
		var unique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique != nil && *unique),
		}

		if ex, ok := existing[sig]; ok {
			if sameBoolPtr(unique, ex.Unique) && (name == "" || ex.Name == name) {
				zap.L().Debug("reusing existing index", fields...)
				continue
			}
			zap.L().Info("recreating index", append(fields, zap.String("existing", ex.Name))...)
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			switch {
			case isDuplicateKeyErr(err):
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present on %s)", coll.Name(), name, sig))
			case isOptionsConflictErr(err):
				errs = append(errs, fmt.Sprintf("%s(%s): conflicts with an existing index on the same keys: %v", coll.Name(), name, err))
			default:
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			zap.L().Warn("index ensure failed", append(fields, zap.Error(err))...)
			continue
		}
		zap.L().Info("index ensured", append(fields, zap.Duration("took", time.Since(start)))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(UsersEmail),
		},
		// Plate and CPF are unique among drivers only; passengers have neither.
		{
			Keys: bson.D{{Key: "vehicle.plate", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(UsersPlate).
				SetPartialFilterExpression(bson.M{"vehicle.plate": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "documents.cpf", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(UsersCPF).
				SetPartialFilterExpression(bson.M{"documents.cpf": bson.M{"$type": "string"}}),
		},
		// Proximity matcher over drivers.
		{
			Keys:    bson.D{{Key: "location", Value: "2dsphere"}},
			Options: options.Index().SetName(UsersLocation),
		},
		// Pending-driver queue, keyset-paged by name.
		{
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "is_approved", Value: 1},
				{Key: "name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_users_role_approved_nameci_id"),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_users_role_created"),
		},
	})
}

func ensureRides(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("rides")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Proximity matcher over pending rides.
		{
			Keys:    bson.D{{Key: "origin", Value: "2dsphere"}},
			Options: options.Index().SetName(RidesOrigin),
		},
		{
			Keys:    bson.D{{Key: "destination", Value: "2dsphere"}},
			Options: options.Index().SetName("geo_rides_destination"),
		},
		// Current ride and history per party.
		{
			Keys: bson.D{
				{Key: "passenger", Value: 1},
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_rides_passenger_status_created"),
		},
		{
			Keys: bson.D{
				{Key: "driver", Value: 1},
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_rides_driver_status_created"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_rides_status_id"),
		},
		// One accepted or in-progress ride per driver.
		{
			Keys: bson.D{{Key: "active_driver", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(RidesActive).
				SetPartialFilterExpression(bson.M{"active_driver": bson.M{"$type": "objectId"}}),
		},
	})
}

func ensureRatings(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("ratings")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One rating per rater per ride.
		{
			Keys:    bson.D{{Key: "ride", Value: 1}, {Key: "from", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(RatingsOnce),
		},
		{
			Keys:    bson.D{{Key: "to", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_ratings_to_created"),
		},
	})
}

func ensureMessages(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("messages")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ride", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_messages_ride_created"),
		},
		// Unread counters.
		{
			Keys:    bson.D{{Key: "receiver", Value: 1}, {Key: "read", Value: 1}},
			Options: options.Index().SetName("idx_messages_receiver_read"),
		},
		// Support threads and the admin conversation list.
		{
			Keys: bson.D{
				{Key: "support_chat", Value: 1},
				{Key: "sender", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("idx_messages_support_sender_created"),
		},
		{
			Keys: bson.D{
				{Key: "support_chat", Value: 1},
				{Key: "receiver", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("idx_messages_support_receiver_created"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("audit_events")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_user_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "ride_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_ride_timestamp"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_type_timestamp"),
		},
	})
}

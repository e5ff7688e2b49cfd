// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/arabeuna/aramove/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("rides", ridesSchema())
	ensure("ratings", ratingsSchema())
	ensure("messages", messagesSchema())

	// Written by the audit logger only; no validator.
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func geoPointSchema(withAddress bool) bson.M {
	props := bson.M{
		"type":        bson.M{"enum": bson.A{"Point"}},
		"coordinates": bson.M{"bsonType": "array", "minItems": 2, "maxItems": 2, "items": bson.M{"bsonType": "double"}},
	}
	if withAddress {
		props["address"] = bson.M{"bsonType": "string"}
	}
	return bson.M{
		"bsonType":   "object",
		"required":   bson.A{"type", "coordinates"},
		"properties": props,
	}
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "email", "role", "password_hash", "is_approved", "is_available"},
			"properties": bson.M{
				"name":          nonBlank,
				"name_ci":       bson.M{"bsonType": "string"},
				"email":         nonBlank,
				"phone":         bson.M{"bsonType": "string"},
				"password_hash": nonBlank,
				"role":          bson.M{"enum": bson.A{models.RolePassenger, models.RoleDriver, models.RoleAdmin}},
				"is_approved":   bson.M{"bsonType": "bool"},
				"is_available":  bson.M{"bsonType": "bool"},
				"location":      geoPointSchema(false),
				"rating":        bson.M{"bsonType": bson.A{"double", "int"}, "minimum": 0, "maximum": 5},
				"rating_count":  bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
			},
		},
	}
}

// ridesSchema also enforces that a driver is bound in every state past pending.
func ridesSchema() bson.M {
	statuses := bson.A{}
	for _, s := range models.AllRideStatuses {
		statuses = append(statuses, string(s))
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"passenger", "origin", "destination", "status"},
			"properties": bson.M{
				"passenger":      bson.M{"bsonType": "objectId"},
				"driver":         bson.M{"bsonType": bson.A{"objectId", "null"}},
				"origin":         geoPointSchema(true),
				"destination":    geoPointSchema(true),
				"status":         bson.M{"enum": statuses},
				"price":          bson.M{"bsonType": bson.A{"double", "int", "long"}, "minimum": 0},
				"payment_method": bson.M{"enum": bson.A{models.PaymentCash, models.PaymentCard, models.PaymentPix}},
			},
			"anyOf": bson.A{
				bson.M{"properties": bson.M{"status": bson.M{"enum": bson.A{
					string(models.RideStatusPending), string(models.RideStatusCancelled),
				}}}},
				bson.M{
					"required":   bson.A{"driver"},
					"properties": bson.M{"driver": bson.M{"bsonType": "objectId"}},
				},
			},
		},
	}
}

func ratingsSchema() bson.M {
	tags := bson.A{}
	for _, t := range models.AllRatingTags {
		tags = append(tags, string(t))
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"ride", "from", "to", "stars"},
			"properties": bson.M{
				"ride":    bson.M{"bsonType": "objectId"},
				"from":    bson.M{"bsonType": "objectId"},
				"to":      bson.M{"bsonType": "objectId"},
				"stars":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1, "maximum": 5},
				"comment": bson.M{"bsonType": "string", "maxLength": 500},
				"tags":    bson.M{"bsonType": "array", "items": bson.M{"enum": tags}},
			},
		},
	}
}

func messagesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"sender", "receiver", "content", "read", "support_chat"},
			"properties": bson.M{
				"ride":         bson.M{"bsonType": "objectId"},
				"sender":       bson.M{"bsonType": "objectId"},
				"receiver":     bson.M{"bsonType": "objectId"},
				"content":      bson.M{"bsonType": "string", "minLength": 1, "maxLength": 1000},
				"read":         bson.M{"bsonType": "bool"},
				"support_chat": bson.M{"bsonType": "bool"},
			},
		},
	}
}

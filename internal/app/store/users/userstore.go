package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/arabeuna/aramove/internal/app/system/normalize"
	"github.com/arabeuna/aramove/internal/app/system/paging"
	"github.com/arabeuna/aramove/internal/app/system/search"
	"github.com/arabeuna/aramove/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Unique index names; the duplicate-key error text names the index, which
// is how Create tells the three uniqueness rules apart.
const (
	IndexEmail = "uniq_users_email"
	IndexPlate = "uniq_users_vehicle_plate"
	IndexCPF   = "uniq_users_documents_cpf"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	ErrDuplicatePlate = errors.New("a driver with this vehicle plate already exists")
	ErrDuplicateCPF   = errors.New("a driver with this CPF already exists")
	ErrBadRole        = errors.New(`role must be "passenger"|"driver"|"admin"`)
	ErrDriverProfile  = errors.New("drivers must provide vehicle and documents")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Collection exposes the underlying collection for queries that join users.
func (s *Store) Collection() *mongo.Collection { return s.c }

// Create normalizes u and inserts it. Passengers and admins are approved on
// creation; drivers start unapproved and unavailable.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.NameCI = text.Fold(u.Name)
	u.Email = normalize.Email(u.Email)
	u.Phone = normalize.Phone(u.Phone)
	u.Role = normalize.Role(u.Role)
	if u.Role == "" {
		u.Role = models.RolePassenger
	}

	switch u.Role {
	case models.RolePassenger, models.RoleAdmin:
		u.IsApproved = true
		u.IsAvailable = false
		u.Vehicle = nil
		u.Documents = nil
	case models.RoleDriver:
		if u.Vehicle == nil || u.Documents == nil {
			return models.User{}, ErrDriverProfile
		}
		u.IsApproved = false
		u.IsAvailable = false
		u.Vehicle.Plate = normalize.Plate(u.Vehicle.Plate)
		u.Documents.CPF = normalize.CPF(u.Documents.CPF)
	default:
		return models.User{}, ErrBadRole
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, duplicateErr(err)
		}
		return models.User{}, err
	}
	return u, nil
}

// duplicateErr maps a duplicate-key error to the field it collided on.
func duplicateErr(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, IndexPlate), strings.Contains(msg, "vehicle.plate"):
		return ErrDuplicatePlate
	case strings.Contains(msg, IndexCPF), strings.Contains(msg, "documents.cpf"):
		return ErrDuplicateCPF
	default:
		return ErrDuplicateEmail
	}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail looks up a user by normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// FirstAdmin returns the earliest-created admin, the recipient of support chat.
func (s *Store) FirstAdmin(ctx context.Context) (models.User, error) {
	var u models.User
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if err := s.c.FindOne(ctx, bson.M{"role": models.RoleAdmin}, opts).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// UpdateLocation stores the user's current position.
func (s *Store) UpdateLocation(ctx context.Context, id primitive.ObjectID, p models.GeoPoint) error {
	return s.updateOne(ctx, bson.M{"_id": id}, bson.M{"location": p})
}

// SetAvailability flips a driver's is_available flag. Returns ErrNotFound
// when id is not a driver.
func (s *Store) SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error {
	return s.updateOne(ctx, bson.M{"_id": id, "role": models.RoleDriver}, bson.M{"is_available": available})
}

// Approve marks a driver approved. Returns ErrNotFound when id is not a driver.
func (s *Store) Approve(ctx context.Context, id primitive.ObjectID) error {
	return s.updateOne(ctx, bson.M{"_id": id, "role": models.RoleDriver}, bson.M{"is_approved": true})
}

// SetRating stores a recomputed average and count.
func (s *Store) SetRating(ctx context.Context, id primitive.ObjectID, avg float64, count int) error {
	return s.updateOne(ctx, bson.M{"_id": id}, bson.M{"rating": avg, "rating_count": count})
}

func (s *Store) updateOne(ctx context.Context, filter, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePendingDriver removes a driver that has not been approved yet.
// Approved drivers and other roles are never deleted here.
func (s *Store) DeletePendingDriver(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "role": models.RoleDriver, "is_approved": false})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPendingDrivers returns up to size+1 unapproved drivers ordered by
// name_ci then _id, in the direction given by cfg. Callers trim with
// paging.TrimPage and reverse backward pages.
func (s *Store) ListPendingDrivers(ctx context.Context, cfg paging.KeysetConfig, size int) ([]models.User, error) {
	filter := bson.M{"role": models.RoleDriver, "is_approved": false}
	if win := cfg.KeysetWindow("name_ci"); win != nil {
		for k, v := range win {
			filter[k] = v
		}
	}
	find := options.Find()
	cfg.ApplyToFind(find, "name_ci", size)

	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFilter narrows List.
type ListFilter struct {
	Role   string
	Query  string // email prefix when it contains "@", otherwise name prefix
	Before primitive.ObjectID // newest-first cursor; zero means from the top
	Limit  int
}

// List returns users newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.User, error) {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = normalize.Role(f.Role)
	}
	for k, v := range search.Prefix(f.Query) {
		filter[k] = v
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
		SetLimit(int64(limit)).
		SetProjection(bson.M{"password_hash": 0})

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Summaries loads the public projection of the given users keyed by id.
func (s *Store) Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	out := make(map[primitive.ObjectID]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{
		"_id": 1, "name": 1, "phone": 1, "role": 1, "rating": 1, "vehicle": 1,
	})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u models.UserSummary
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, cur.Err()
}

// CountByRole counts users with role.
func (s *Store) CountByRole(ctx context.Context, role string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"role": role})
}

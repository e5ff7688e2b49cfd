package testutil

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/arabeuna/aramove/internal/app/system/authutil"
	"github.com/arabeuna/aramove/internal/domain/geo"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// FixturePassword is the plaintext password of every fixture user.
const FixturePassword = "s3cret-pass"

var (
	hashOnce sync.Once
	hashed   string
)

func fixtureHash(t *testing.T) string {
	hashOnce.Do(func() {
		h, err := authutil.HashPassword(FixturePassword)
		if err != nil {
			t.Fatalf("hash fixture password: %v", err)
		}
		hashed = h
	})
	return hashed
}

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insertUser(ctx context.Context, u models.User) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.NameCI = text.Fold(u.Name)
	u.PasswordHash = fixtureHash(f.t)
	u.CreatedAt = now
	u.UpdatedAt = now
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreatePassenger creates an approved passenger with no location.
func (f *Fixtures) CreatePassenger(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, models.User{
		Name:       name,
		Email:      email,
		Phone:      "11999990000",
		Role:       models.RolePassenger,
		IsApproved: true,
	})
}

// CreateAdmin creates an admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, models.User{
		Name:       name,
		Email:      email,
		Role:       models.RoleAdmin,
		IsApproved: true,
	})
}

// DriverOpts controls CreateDriver. A nil Location leaves the driver
// without a stored position.
type DriverOpts struct {
	Approved  bool
	Available bool
	Location  *models.GeoPoint
	Plate     string
	CPF       string
}

// CreateDriver creates a driver with a vehicle and documents.
func (f *Fixtures) CreateDriver(ctx context.Context, name, email string, opts DriverOpts) models.User {
	f.t.Helper()
	if opts.Plate == "" {
		opts.Plate = "T" + primitive.NewObjectID().Hex()[18:]
	}
	if opts.CPF == "" {
		opts.CPF = primitive.NewObjectID().Hex()[13:]
	}
	return f.insertUser(ctx, models.User{
		Name:        name,
		Email:       email,
		Phone:       "11988880000",
		Role:        models.RoleDriver,
		IsApproved:  opts.Approved,
		IsAvailable: opts.Available,
		Location:    opts.Location,
		Vehicle:     &models.Vehicle{Model: "Onix", Plate: opts.Plate, Year: "2022", Color: "white"},
		Documents:   &models.Documents{License: "CNH-" + opts.CPF, CPF: opts.CPF},
	})
}

// CreateOnlineDriver creates an approved, available driver at (lng, lat).
func (f *Fixtures) CreateOnlineDriver(ctx context.Context, name, email string, lng, lat float64) models.User {
	f.t.Helper()
	p := geo.Point(lng, lat)
	return f.CreateDriver(ctx, name, email, DriverOpts{Approved: true, Available: true, Location: &p})
}

// CreateRide creates a pending ride for passenger between two points.
func (f *Fixtures) CreateRide(ctx context.Context, passenger primitive.ObjectID, from, to [2]float64) models.Ride {
	f.t.Helper()
	return f.CreateRideWithStatus(ctx, passenger, nil, models.RideStatusPending, from, to)
}

// CreateRideWithStatus inserts a ride in any state. A driver must be given
// for states past pending.
func (f *Fixtures) CreateRideWithStatus(ctx context.Context, passenger primitive.ObjectID, driver *primitive.ObjectID, status models.RideStatus, from, to [2]float64) models.Ride {
	f.t.Helper()
	now := time.Now().UTC()
	ride := models.Ride{
		ID:            primitive.NewObjectID(),
		Passenger:     passenger,
		Driver:        driver,
		Origin:        models.Place{Type: "Point", Coordinates: []float64{from[0], from[1]}, Address: "Origin"},
		Destination:   models.Place{Type: "Point", Coordinates: []float64{to[0], to[1]}, Address: "Destination"},
		Status:        status,
		Price:         25.50,
		Distance:      1500,
		Duration:      600,
		PaymentMethod: models.PaymentCash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if status == models.RideStatusInProgress || status == models.RideStatusCompleted {
		ride.StartTime = &now
	}
	if _, err := f.db.Collection("rides").InsertOne(ctx, ride); err != nil {
		f.t.Fatalf("failed to create test ride: %v", err)
	}
	return ride
}

// SetAvailable flips a driver's availability directly.
func (f *Fixtures) SetAvailable(ctx context.Context, id primitive.ObjectID, available bool) {
	f.t.Helper()
	_, err := f.db.Collection("users").UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"is_available": available}})
	if err != nil {
		f.t.Fatalf("failed to set availability: %v", err)
	}
}

// Reload reads a user back from the database.
func (f *Fixtures) Reload(ctx context.Context, id primitive.ObjectID) models.User {
	f.t.Helper()
	var u models.User
	if err := f.db.Collection("users").FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		f.t.Fatalf("failed to reload user: %v", err)
	}
	return u
}

// ReloadRide reads a ride back from the database.
func (f *Fixtures) ReloadRide(ctx context.Context, id primitive.ObjectID) models.Ride {
	f.t.Helper()
	var r models.Ride
	if err := f.db.Collection("rides").FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		f.t.Fatalf("failed to reload ride: %v", err)
	}
	return r
}

// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a user can hold. Driver data lives on the user document itself;
// there is no separate drivers collection.
const (
	RolePassenger = "passenger"
	RoleDriver    = "driver"
	RoleAdmin     = "admin"
)

// User represents passengers, drivers, and admins.
//
// NOTE:
//   - IsApproved starts true for passengers and admins, false for drivers
//     until an admin approves them.
//   - IsAvailable only has meaning for drivers (accepting new rides).
//   - Location is nil until the client reports one.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string             `bson:"email" json:"email"`
	Phone        string             `bson:"phone" json:"phone"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         string             `bson:"role" json:"role"` // passenger | driver | admin

	IsApproved  bool      `bson:"is_approved" json:"isApproved"`
	IsAvailable bool      `bson:"is_available" json:"isAvailable"`
	Location    *GeoPoint `bson:"location,omitempty" json:"location,omitempty"`

	Vehicle   *Vehicle   `bson:"vehicle,omitempty" json:"vehicle,omitempty"`
	Documents *Documents `bson:"documents,omitempty" json:"documents,omitempty"`

	Rating      float64 `bson:"rating" json:"rating"`
	RatingCount int     `bson:"rating_count" json:"ratingCount"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsDriver reports whether the user holds the driver role.
func (u User) IsDriver() bool { return u.Role == RoleDriver }

// HasLocation reports whether a usable location has been stored.
func (u User) HasLocation() bool {
	return u.Location != nil && len(u.Location.Coordinates) == 2
}

// Vehicle is the car a driver registers with. Plate is unique across drivers.
type Vehicle struct {
	Model string `bson:"model" json:"model"`
	Plate string `bson:"plate" json:"plate"`
	Year  string `bson:"year" json:"year"`
	Color string `bson:"color" json:"color"`
}

// Documents holds a driver's license number and taxpayer id (CPF). CPF is unique.
type Documents struct {
	License string `bson:"license" json:"license"`
	CPF     string `bson:"cpf" json:"cpf"`
}

// UserSummary is the public projection of a user embedded in ride and
// message responses.
type UserSummary struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	Name    string             `bson:"name" json:"name"`
	Phone   string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Role    string             `bson:"role,omitempty" json:"role,omitempty"`
	Rating  float64            `bson:"rating,omitempty" json:"rating,omitempty"`
	Vehicle *Vehicle           `bson:"vehicle,omitempty" json:"vehicle,omitempty"`
}

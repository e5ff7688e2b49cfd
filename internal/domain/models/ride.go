// internal/domain/models/ride.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RideStatus is the lifecycle state of a ride.
type RideStatus string

const (
	RideStatusPending    RideStatus = "pending"
	RideStatusAccepted   RideStatus = "accepted"
	RideStatusInProgress RideStatus = "in_progress"
	RideStatusCompleted  RideStatus = "completed"
	RideStatusCancelled  RideStatus = "cancelled"
)

// AllRideStatuses lists every valid status in lifecycle order.
var AllRideStatuses = []RideStatus{
	RideStatusPending,
	RideStatusAccepted,
	RideStatusInProgress,
	RideStatusCompleted,
	RideStatusCancelled,
}

// ActiveRideStatuses are the states in which a ride still occupies its parties.
var ActiveRideStatuses = []RideStatus{
	RideStatusPending,
	RideStatusAccepted,
	RideStatusInProgress,
}

// Valid reports whether s is one of the known statuses.
func (s RideStatus) Valid() bool {
	for _, v := range AllRideStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Payment methods accepted when requesting a ride.
const (
	PaymentCash = "cash"
	PaymentCard = "card"
	PaymentPix  = "pix"
)

// Ride is a single trip request and its lifecycle.
//
// Driver is nil while the ride is pending and must be set once the ride
// reaches accepted, in_progress, or completed.
type Ride struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Passenger   primitive.ObjectID  `bson:"passenger" json:"passenger"`
	Driver      *primitive.ObjectID `bson:"driver" json:"driver"`
	Origin      Place               `bson:"origin" json:"origin"`
	Destination Place               `bson:"destination" json:"destination"`
	Status      RideStatus          `bson:"status" json:"status"`

	Price         float64 `bson:"price" json:"price"`
	Distance      float64 `bson:"distance" json:"distance"` // meters
	Duration      float64 `bson:"duration" json:"duration"` // seconds
	PaymentMethod string  `bson:"payment_method,omitempty" json:"paymentMethod,omitempty"`

	AcceptedAt  *time.Time          `bson:"accepted_at,omitempty" json:"acceptedAt,omitempty"`
	StartTime   *time.Time          `bson:"start_time,omitempty" json:"startTime,omitempty"`
	EndTime     *time.Time          `bson:"end_time,omitempty" json:"endTime,omitempty"`
	CancelledAt *time.Time          `bson:"cancelled_at,omitempty" json:"cancelledAt,omitempty"`
	CancelledBy *primitive.ObjectID `bson:"cancelled_by,omitempty" json:"cancelledBy,omitempty"`

	// ActiveDriver mirrors Driver while the ride is accepted or in progress.
	// It is unique across rides, so a driver holds at most one such ride.
	ActiveDriver *primitive.ObjectID `bson:"active_driver,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsParty reports whether userID is the ride's passenger or bound driver.
func (r Ride) IsParty(userID primitive.ObjectID) bool {
	return r.Passenger == userID || r.IsDriver(userID)
}

// IsDriver reports whether userID is the ride's bound driver.
func (r Ride) IsDriver(userID primitive.ObjectID) bool {
	return r.Driver != nil && *r.Driver == userID
}

// Counterpart returns the other party of the ride for userID, if bound.
func (r Ride) Counterpart(userID primitive.ObjectID) (primitive.ObjectID, bool) {
	if r.Passenger == userID {
		if r.Driver == nil {
			return primitive.NilObjectID, false
		}
		return *r.Driver, true
	}
	if r.IsDriver(userID) {
		return r.Passenger, true
	}
	return primitive.NilObjectID, false
}

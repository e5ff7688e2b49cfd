// internal/app/policy/ridepolicy/ridepolicy.go
package ridepolicy

import (
	"errors"

	"github.com/arabeuna/aramove/internal/app/system/normalize"
	"github.com/arabeuna/aramove/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrForbidden means the actor may not perform the action on this ride.
	ErrForbidden = errors.New("not allowed to perform this action on the ride")
	// ErrInvalidState means the ride is not in a state the action starts from.
	ErrInvalidState = errors.New("ride is not in a valid state for this action")
)

// Action is a lifecycle operation on a ride.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

// Actor is the caller attempting an action.
type Actor struct {
	ID   primitive.ObjectID
	Role string
}

type rule struct {
	from   []models.RideStatus
	to     models.RideStatus
	role   string // empty: any role
	driver bool   // actor must be the bound driver
	party  bool   // actor must be passenger or bound driver
}

var rules = map[Action]rule{
	ActionAccept: {
		from: []models.RideStatus{models.RideStatusPending},
		to:   models.RideStatusAccepted,
		role: models.RoleDriver,
	},
	ActionStart: {
		from:   []models.RideStatus{models.RideStatusAccepted},
		to:     models.RideStatusInProgress,
		role:   models.RoleDriver,
		driver: true,
	},
	ActionComplete: {
		from:   []models.RideStatus{models.RideStatusInProgress},
		to:     models.RideStatusCompleted,
		role:   models.RoleDriver,
		driver: true,
	},
	ActionCancel: {
		from:  []models.RideStatus{models.RideStatusPending, models.RideStatusAccepted},
		to:    models.RideStatusCancelled,
		party: true,
	},
}

// CanTransition reports whether the state machine has an edge from → to.
func CanTransition(from, to models.RideStatus) bool {
	for _, r := range rules {
		if r.to != to {
			continue
		}
		for _, f := range r.from {
			if f == from {
				return true
			}
		}
	}
	return false
}

// Sources returns the states an action may start from.
func Sources(a Action) []models.RideStatus {
	r, ok := rules[a]
	if !ok {
		return nil
	}
	out := make([]models.RideStatus, len(r.from))
	copy(out, r.from)
	return out
}

// Target returns the state an action moves the ride to.
func Target(a Action) (models.RideStatus, bool) {
	r, ok := rules[a]
	return r.to, ok
}

// Check validates the actor's relationship to ride first, then the ride's
// current status. It returns ErrForbidden or ErrInvalidState.
func Check(ride models.Ride, actor Actor, a Action) error {
	r, ok := rules[a]
	if !ok {
		return ErrForbidden
	}
	if r.role != "" && normalize.Role(actor.Role) != r.role {
		return ErrForbidden
	}
	if r.driver && !ride.IsDriver(actor.ID) {
		return ErrForbidden
	}
	if r.party && !ride.IsParty(actor.ID) {
		return ErrForbidden
	}
	for _, f := range r.from {
		if ride.Status == f {
			return nil
		}
	}
	return ErrInvalidState
}

// DriverRequired reports whether a ride in status must have a driver bound.
func DriverRequired(s models.RideStatus) bool {
	switch s {
	case models.RideStatusAccepted, models.RideStatusInProgress, models.RideStatusCompleted:
		return true
	}
	return false
}

// Consistent reports whether ride satisfies the status/driver invariant.
func Consistent(ride models.Ride) bool {
	if !ride.Status.Valid() {
		return false
	}
	return !DriverRequired(ride.Status) || ride.Driver != nil
}

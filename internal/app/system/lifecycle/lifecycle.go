// Package lifecycle owns ride state changes. Every transition goes through
// a Manager: it loads the ride, checks ridepolicy, performs a conditional
// write, then announces the result on the ride feed and the audit log.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/arabeuna/aramove/internal/app/policy/ridepolicy"
	ridestore "github.com/arabeuna/aramove/internal/app/store/rides"
	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/auditlog"
	"github.com/arabeuna/aramove/internal/app/system/normalize"
	"github.com/arabeuna/aramove/internal/app/system/ridefeed"
	"github.com/arabeuna/aramove/internal/app/system/txn"
	"github.com/arabeuna/aramove/internal/domain/geo"
	"github.com/arabeuna/aramove/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("ride not found")
	// ErrConflict covers a ride that is no longer in the state the action
	// needs, including losing an accept race.
	ErrConflict    = errors.New("ride is no longer in a state that allows this action")
	ErrForbidden   = errors.New("not allowed to perform this action on the ride")
	ErrNotApproved = errors.New("driver has not been approved yet")
	// ErrBusy means the caller already has an active ride.
	ErrBusy           = errors.New("user already has an active ride")
	ErrInvalidRequest = errors.New("invalid ride request")
)

// Publisher receives an event after every successful transition.
type Publisher interface {
	Publish(ridefeed.Event)
}

// Invalidator drops cached credentials for a user whose flags changed.
type Invalidator interface {
	Invalidate(userID string)
}

// Manager runs ride transitions. Feed, Audit, and Sessions are optional.
type Manager struct {
	Rides  *ridestore.Store
	Users  *userstore.Store
	Client *mongo.Client

	Feed     Publisher
	Audit    *auditlog.Logger
	Sessions Invalidator

	// RequireApproval blocks unapproved drivers from accepting rides.
	RequireApproval bool

	Log *zap.Logger
}

// Actor is the authenticated caller.
type Actor = ridepolicy.Actor

// RideRequest is what a passenger submits to ask for a ride.
type RideRequest struct {
	Origin        models.Place
	Destination   models.Place
	Price         float64
	Distance      float64
	Duration      float64
	PaymentMethod string
}

func (m *Manager) log() *zap.Logger {
	if m.Log == nil {
		return zap.NewNop()
	}
	return m.Log
}

// Request creates a pending ride for a passenger. A passenger may hold one
// active ride at a time.
func (m *Manager) Request(ctx context.Context, actor Actor, req RideRequest) (models.Ride, error) {
	if normalize.Role(actor.Role) != models.RolePassenger {
		return models.Ride{}, ErrForbidden
	}
	if !validPlace(req.Origin) || !validPlace(req.Destination) {
		return models.Ride{}, ErrInvalidRequest
	}
	if req.Price < 0 || req.Distance < 0 || req.Duration < 0 {
		return models.Ride{}, ErrInvalidRequest
	}

	if _, active, err := m.Rides.Current(ctx, actor.ID); err != nil {
		return models.Ride{}, err
	} else if active {
		return models.Ride{}, ErrBusy
	}

	if req.Distance == 0 {
		req.Distance = geo.DistanceMeters(req.Origin.Point(), req.Destination.Point())
	}
	req.Origin.Type = "Point"
	req.Destination.Type = "Point"

	ride, err := m.Rides.Create(ctx, models.Ride{
		Passenger:     actor.ID,
		Origin:        req.Origin,
		Destination:   req.Destination,
		Price:         req.Price,
		Distance:      req.Distance,
		Duration:      req.Duration,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return models.Ride{}, err
	}
	m.announce(ctx, actor.ID, ride)
	return ride, nil
}

func validPlace(p models.Place) bool {
	return len(p.Coordinates) == 2 && geo.ValidLngLat(p.Coordinates[0], p.Coordinates[1])
}

// Accept binds the calling driver to a pending ride. When several drivers
// race, exactly one wins and the rest get ErrConflict.
func (m *Manager) Accept(ctx context.Context, actor Actor, rideID primitive.ObjectID) (models.Ride, error) {
	ride, err := m.load(ctx, rideID, actor, ridepolicy.ActionAccept)
	if err != nil {
		return models.Ride{}, err
	}

	driver, err := m.Users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return models.Ride{}, ErrForbidden
		}
		return models.Ride{}, err
	}
	if m.RequireApproval && !driver.IsApproved {
		return models.Ride{}, ErrNotApproved
	}
	if _, active, err := m.Rides.Current(ctx, actor.ID); err != nil {
		return models.Ride{}, err
	} else if active {
		return models.Ride{}, ErrBusy
	}

	// Current is a fast path; the unique active_driver index settles two
	// accepts by the same driver that pass it together.
	ride, err = m.Rides.AcceptIfPending(ctx, ride.ID, actor.ID)
	if errors.Is(err, ridestore.ErrDriverBusy) {
		return models.Ride{}, ErrBusy
	}
	if err != nil {
		return models.Ride{}, m.writeErr(ctx, rideID, err)
	}

	// Separate write: losing it leaves the driver visible as available,
	// which the next availability toggle corrects.
	if err := m.Users.SetAvailability(ctx, actor.ID, false); err != nil {
		m.log().Warn("accept: clearing driver availability failed",
			zap.String("driver_id", actor.ID.Hex()),
			zap.String("ride_id", ride.ID.Hex()),
			zap.Error(err))
	} else {
		m.invalidate(actor.ID)
	}

	m.announce(ctx, actor.ID, ride)
	return ride, nil
}

// Start moves an accepted ride to in_progress. Only the bound driver may start it.
func (m *Manager) Start(ctx context.Context, actor Actor, rideID primitive.ObjectID) (models.Ride, error) {
	if _, err := m.load(ctx, rideID, actor, ridepolicy.ActionStart); err != nil {
		return models.Ride{}, err
	}
	ride, err := m.Rides.Transition(ctx, rideID, actor.ID,
		models.RideStatusAccepted, models.RideStatusInProgress,
		bson.M{"start_time": time.Now().UTC()})
	if err != nil {
		return models.Ride{}, m.writeErr(ctx, rideID, err)
	}
	m.announce(ctx, actor.ID, ride)
	return ride, nil
}

// Complete finishes an in-progress ride and makes the driver available
// again, in one transaction when the deployment supports it.
func (m *Manager) Complete(ctx context.Context, actor Actor, rideID primitive.ObjectID) (models.Ride, error) {
	if _, err := m.load(ctx, rideID, actor, ridepolicy.ActionComplete); err != nil {
		return models.Ride{}, err
	}

	var ride models.Ride
	err := txn.Run(ctx, m.Client, m.log(), func(ctx context.Context) error {
		var err error
		ride, err = m.Rides.Transition(ctx, rideID, actor.ID,
			models.RideStatusInProgress, models.RideStatusCompleted,
			bson.M{"end_time": time.Now().UTC()})
		if err != nil {
			return err
		}
		return m.releaseDriver(ctx, actor.ID)
	})
	if err != nil {
		return models.Ride{}, m.writeErr(ctx, rideID, err)
	}
	m.invalidate(actor.ID)

	m.announce(ctx, actor.ID, ride)
	return ride, nil
}

// Cancel cancels a pending or accepted ride on behalf of either party. A
// bound driver becomes available again.
func (m *Manager) Cancel(ctx context.Context, actor Actor, rideID primitive.ObjectID) (models.Ride, error) {
	if _, err := m.load(ctx, rideID, actor, ridepolicy.ActionCancel); err != nil {
		return models.Ride{}, err
	}

	var ride models.Ride
	err := txn.Run(ctx, m.Client, m.log(), func(ctx context.Context) error {
		var err error
		ride, err = m.Rides.Cancel(ctx, rideID, actor.ID)
		if err != nil {
			return err
		}
		if ride.Driver == nil {
			return nil
		}
		return m.releaseDriver(ctx, *ride.Driver)
	})
	if err != nil {
		return models.Ride{}, m.writeErr(ctx, rideID, err)
	}
	if ride.Driver != nil {
		m.invalidate(*ride.Driver)
	}

	m.announce(ctx, actor.ID, ride)
	return ride, nil
}

// releaseDriver marks a driver available. A driver removed since the ride
// was bound is not an error.
func (m *Manager) releaseDriver(ctx context.Context, driverID primitive.ObjectID) error {
	err := m.Users.SetAvailability(ctx, driverID, true)
	if errors.Is(err, userstore.ErrNotFound) {
		return nil
	}
	return err
}

// load fetches the ride and checks that actor may perform a on it.
func (m *Manager) load(ctx context.Context, rideID primitive.ObjectID, actor Actor, a ridepolicy.Action) (models.Ride, error) {
	ride, err := m.Rides.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, ridestore.ErrNotFound) {
			return models.Ride{}, ErrNotFound
		}
		return models.Ride{}, err
	}
	switch err := ridepolicy.Check(ride, actor, a); {
	case errors.Is(err, ridepolicy.ErrForbidden):
		return models.Ride{}, ErrForbidden
	case errors.Is(err, ridepolicy.ErrInvalidState):
		return models.Ride{}, ErrConflict
	case err != nil:
		return models.Ride{}, err
	}
	return ride, nil
}

// writeErr maps a failed conditional write. The ride may have been deleted
// between the read and the write, which is reported as not found.
func (m *Manager) writeErr(ctx context.Context, rideID primitive.ObjectID, err error) error {
	if !errors.Is(err, ridestore.ErrStateChanged) {
		return err
	}
	if _, gerr := m.Rides.GetByID(ctx, rideID); errors.Is(gerr, ridestore.ErrNotFound) {
		return ErrNotFound
	}
	return ErrConflict
}

func (m *Manager) invalidate(userID primitive.ObjectID) {
	if m.Sessions != nil {
		m.Sessions.Invalidate(userID.Hex())
	}
}

func (m *Manager) announce(ctx context.Context, actorID primitive.ObjectID, ride models.Ride) {
	if m.Feed != nil {
		m.Feed.Publish(ridefeed.NewEvent(ride))
	}
	m.Audit.RideTransition(ctx, actorID, ride)
	m.log().Info("ride transition",
		zap.String("ride_id", ride.ID.Hex()),
		zap.String("status", string(ride.Status)),
		zap.String("actor_id", actorID.Hex()))
}

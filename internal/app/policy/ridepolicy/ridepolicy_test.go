package ridepolicy_test

import (
	"errors"
	"testing"

	"github.com/arabeuna/aramove/internal/app/policy/ridepolicy"
	"github.com/arabeuna/aramove/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]models.RideStatus]bool{
		{models.RideStatusPending, models.RideStatusAccepted}:      true,
		{models.RideStatusAccepted, models.RideStatusInProgress}:   true,
		{models.RideStatusInProgress, models.RideStatusCompleted}:  true,
		{models.RideStatusPending, models.RideStatusCancelled}:     true,
		{models.RideStatusAccepted, models.RideStatusCancelled}:    true,
	}
	for _, from := range models.AllRideStatuses {
		for _, to := range models.AllRideStatuses {
			want := allowed[[2]models.RideStatus{from, to}]
			if got := ridepolicy.CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCheck(t *testing.T) {
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	otherDriver := primitive.NewObjectID()

	ride := func(status models.RideStatus, bound bool) models.Ride {
		r := models.Ride{ID: primitive.NewObjectID(), Passenger: passenger, Status: status}
		if bound {
			d := driver
			r.Driver = &d
		}
		return r
	}
	asDriver := ridepolicy.Actor{ID: driver, Role: models.RoleDriver}
	asOther := ridepolicy.Actor{ID: otherDriver, Role: models.RoleDriver}
	asPassenger := ridepolicy.Actor{ID: passenger, Role: models.RolePassenger}
	asAdmin := ridepolicy.Actor{ID: primitive.NewObjectID(), Role: models.RoleAdmin}

	tests := []struct {
		name   string
		ride   models.Ride
		actor  ridepolicy.Actor
		action ridepolicy.Action
		want   error
	}{
		{"driver accepts pending", ride(models.RideStatusPending, false), asOther, ridepolicy.ActionAccept, nil},
		{"passenger cannot accept", ride(models.RideStatusPending, false), asPassenger, ridepolicy.ActionAccept, ridepolicy.ErrForbidden},
		{"accept already accepted", ride(models.RideStatusAccepted, true), asOther, ridepolicy.ActionAccept, ridepolicy.ErrInvalidState},
		{"accept cancelled", ride(models.RideStatusCancelled, false), asDriver, ridepolicy.ActionAccept, ridepolicy.ErrInvalidState},

		{"bound driver starts", ride(models.RideStatusAccepted, true), asDriver, ridepolicy.ActionStart, nil},
		{"other driver cannot start", ride(models.RideStatusAccepted, true), asOther, ridepolicy.ActionStart, ridepolicy.ErrForbidden},
		{"passenger cannot start", ride(models.RideStatusAccepted, true), asPassenger, ridepolicy.ActionStart, ridepolicy.ErrForbidden},
		{"start pending without driver", ride(models.RideStatusPending, false), asDriver, ridepolicy.ActionStart, ridepolicy.ErrForbidden},
		{"start twice", ride(models.RideStatusInProgress, true), asDriver, ridepolicy.ActionStart, ridepolicy.ErrInvalidState},

		{"bound driver completes", ride(models.RideStatusInProgress, true), asDriver, ridepolicy.ActionComplete, nil},
		{"complete before start", ride(models.RideStatusAccepted, true), asDriver, ridepolicy.ActionComplete, ridepolicy.ErrInvalidState},
		{"other driver cannot complete", ride(models.RideStatusInProgress, true), asOther, ridepolicy.ActionComplete, ridepolicy.ErrForbidden},

		{"passenger cancels pending", ride(models.RideStatusPending, false), asPassenger, ridepolicy.ActionCancel, nil},
		{"driver cancels accepted", ride(models.RideStatusAccepted, true), asDriver, ridepolicy.ActionCancel, nil},
		{"passenger cancels accepted", ride(models.RideStatusAccepted, true), asPassenger, ridepolicy.ActionCancel, nil},
		{"cancel in progress", ride(models.RideStatusInProgress, true), asPassenger, ridepolicy.ActionCancel, ridepolicy.ErrInvalidState},
		{"cancel completed", ride(models.RideStatusCompleted, true), asDriver, ridepolicy.ActionCancel, ridepolicy.ErrInvalidState},
		{"stranger cannot cancel", ride(models.RideStatusPending, false), asOther, ridepolicy.ActionCancel, ridepolicy.ErrForbidden},
		{"admin is not a party", ride(models.RideStatusPending, false), asAdmin, ridepolicy.ActionCancel, ridepolicy.ErrForbidden},

		{"unknown action", ride(models.RideStatusPending, false), asDriver, ridepolicy.Action("teleport"), ridepolicy.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ridepolicy.Check(tt.ride, tt.actor, tt.action)
			if !errors.Is(err, tt.want) {
				t.Errorf("Check() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTargetAndSources(t *testing.T) {
	to, ok := ridepolicy.Target(ridepolicy.ActionComplete)
	if !ok || to != models.RideStatusCompleted {
		t.Errorf("Target(complete) = %s, %v", to, ok)
	}
	if _, ok := ridepolicy.Target("nope"); ok {
		t.Error("unknown action has a target")
	}
	src := ridepolicy.Sources(ridepolicy.ActionCancel)
	if len(src) != 2 {
		t.Fatalf("Sources(cancel) = %v", src)
	}
	src[0] = models.RideStatusCompleted
	if ridepolicy.Sources(ridepolicy.ActionCancel)[0] != models.RideStatusPending {
		t.Error("Sources must return a copy")
	}
}

func TestDriverRequiredAndConsistent(t *testing.T) {
	d := primitive.NewObjectID()
	for _, s := range models.AllRideStatuses {
		withDriver := models.Ride{Status: s, Driver: &d}
		if !ridepolicy.Consistent(withDriver) {
			t.Errorf("%s with driver should be consistent", s)
		}
		without := models.Ride{Status: s}
		if got, want := ridepolicy.Consistent(without), !ridepolicy.DriverRequired(s); got != want {
			t.Errorf("%s without driver: Consistent = %v, want %v", s, got, want)
		}
	}
	if ridepolicy.Consistent(models.Ride{Status: "lost"}) {
		t.Error("unknown status must not be consistent")
	}
}

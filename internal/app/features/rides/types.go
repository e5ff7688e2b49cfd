// internal/app/features/rides/types.go
package rides

import (
	"context"

	"github.com/arabeuna/aramove/internal/app/store/queries/nearby"
	"github.com/arabeuna/aramove/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type placeInput struct {
	Coordinates []float64 `json:"coordinates" validate:"required,lnglat" label:"Coordinates"`
	Address     string    `json:"address" validate:"max=200" label:"Address"`
}

func (p placeInput) place() models.Place {
	return models.Place{Type: "Point", Coordinates: p.Coordinates, Address: p.Address}
}

type requestInput struct {
	Origin        placeInput `json:"origin" validate:"required" label:"Origin"`
	Destination   placeInput `json:"destination" validate:"required" label:"Destination"`
	Price         float64    `json:"price" validate:"gte=0" label:"Price"`
	Distance      float64    `json:"distance" validate:"gte=0" label:"Distance"`
	Duration      float64    `json:"duration" validate:"gte=0" label:"Duration"`
	PaymentMethod string     `json:"paymentMethod" validate:"payment" label:"Payment method"`
}

type acceptInput struct {
	DriverID string `json:"driverId" validate:"omitempty,objectid" label:"Driver"`
}

// RideView is a ride with its parties' public profiles attached.
type RideView struct {
	models.Ride
	PassengerInfo *models.UserSummary `json:"passengerInfo,omitempty"`
	DriverInfo    *models.UserSummary `json:"driverInfo,omitempty"`
}

// AvailableRide is a nearby pending ride as shown to drivers.
type AvailableRide struct {
	nearby.RideCandidate
	PassengerInfo *models.UserSummary `json:"passengerInfo,omitempty"`
}

// views attaches party summaries to rides with one users query.
func (h *Handler) views(ctx context.Context, rides []models.Ride) ([]RideView, error) {
	ids := make([]primitive.ObjectID, 0, len(rides)*2)
	for _, r := range rides {
		ids = append(ids, r.Passenger)
		if r.Driver != nil {
			ids = append(ids, *r.Driver)
		}
	}
	sums, err := h.Users.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]RideView, 0, len(rides))
	for _, r := range rides {
		v := RideView{Ride: r}
		if s, ok := sums[r.Passenger]; ok {
			v.PassengerInfo = &s
		}
		if r.Driver != nil {
			if s, ok := sums[*r.Driver]; ok {
				v.DriverInfo = &s
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func (h *Handler) view(ctx context.Context, ride models.Ride) (RideView, error) {
	vs, err := h.views(ctx, []models.Ride{ride})
	if err != nil {
		return RideView{}, err
	}
	return vs[0], nil
}

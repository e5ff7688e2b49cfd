package metricsstore_test

import (
	"testing"

	metricsstore "github.com/arabeuna/aramove/internal/app/store/metrics"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/arabeuna/aramove/internal/testutil"
)

func TestFetchAdminStats_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	counts := metricsstore.FetchAdminStats(ctx, db)

	if counts.ActiveDrivers != 0 {
		t.Errorf("ActiveDrivers: got %d, want 0", counts.ActiveDrivers)
	}
	if counts.PendingDrivers != 0 {
		t.Errorf("PendingDrivers: got %d, want 0", counts.PendingDrivers)
	}
	if counts.Passengers != 0 {
		t.Errorf("Passengers: got %d, want 0", counts.Passengers)
	}
	if counts.TotalRides != 0 {
		t.Errorf("TotalRides: got %d, want 0", counts.TotalRides)
	}
	for _, st := range models.AllRideStatuses {
		if n, ok := counts.RidesByStatus[st]; !ok || n != 0 {
			t.Errorf("RidesByStatus[%s]: got %d (present=%v), want 0", st, n, ok)
		}
	}
}

func TestFetchAdminStats_WithData(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Passengers (3)
	ana := fixtures.CreatePassenger(ctx, "Ana", "ana@example.com")
	fixtures.CreatePassenger(ctx, "Bia", "bia@example.com")
	fixtures.CreatePassenger(ctx, "Caio", "caio@example.com")

	// Drivers: two approved (one online), one pending
	joao := fixtures.CreateOnlineDriver(ctx, "João", "joao@example.com", -46.6333, -23.5505)
	fixtures.CreateDriver(ctx, "Maria", "maria@example.com", testutil.DriverOpts{Approved: true})
	fixtures.CreateDriver(ctx, "Pedro", "pedro@example.com", testutil.DriverOpts{})

	fixtures.CreateAdmin(ctx, "Admin", "admin@example.com")

	from := [2]float64{-46.6333, -23.5505}
	to := [2]float64{-46.6433, -23.5605}
	fixtures.CreateRide(ctx, ana.ID, from, to)
	fixtures.CreateRide(ctx, ana.ID, from, to)
	fixtures.CreateRideWithStatus(ctx, ana.ID, &joao.ID, models.RideStatusCompleted, from, to)

	counts := metricsstore.FetchAdminStats(ctx, db)

	if counts.ActiveDrivers != 2 {
		t.Errorf("ActiveDrivers: got %d, want 2", counts.ActiveDrivers)
	}
	if counts.OnlineDrivers != 1 {
		t.Errorf("OnlineDrivers: got %d, want 1", counts.OnlineDrivers)
	}
	if counts.PendingDrivers != 1 {
		t.Errorf("PendingDrivers: got %d, want 1", counts.PendingDrivers)
	}
	if counts.Passengers != 3 {
		t.Errorf("Passengers: got %d, want 3", counts.Passengers)
	}
	if counts.Admins != 1 {
		t.Errorf("Admins: got %d, want 1", counts.Admins)
	}
	if counts.TotalRides != 3 {
		t.Errorf("TotalRides: got %d, want 3", counts.TotalRides)
	}
	if counts.RidesByStatus[models.RideStatusPending] != 2 {
		t.Errorf("pending rides: got %d, want 2", counts.RidesByStatus[models.RideStatusPending])
	}
	if counts.RidesByStatus[models.RideStatusCompleted] != 1 {
		t.Errorf("completed rides: got %d, want 1", counts.RidesByStatus[models.RideStatusCompleted])
	}
}

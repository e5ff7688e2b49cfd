package main

import (
	"strings"
	"testing"

	"github.com/arabeuna/aramove/internal/app/store/queries/nearby"
	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/domain/geo"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/arabeuna/aramove/internal/testutil"
	"go.uber.org/zap"
)

func TestSeed_CreatesOnlineDriversOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := seed(ctx, db, "demo-pass-2024", zap.NewNop()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := seed(ctx, db, "demo-pass-2024", zap.NewNop()); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	n, err := userstore.New(db).CountByRole(ctx, models.RoleDriver)
	if err != nil {
		t.Fatalf("CountByRole: %v", err)
	}
	if n != int64(len(demoDrivers)) {
		t.Fatalf("expected %d drivers, got %d", len(demoDrivers), n)
	}

	got, err := nearby.Drivers(ctx, db, nearby.Query{Point: geo.Point(-46.6333, -23.5505), MaxMeters: 5000, Limit: 5}, true)
	if err != nil {
		t.Fatalf("nearby.Drivers: %v", err)
	}
	if len(got) != len(demoDrivers) {
		t.Fatalf("expected %d nearby drivers, got %d", len(demoDrivers), len(got))
	}
	if got[0].Name != "João Motorista" {
		t.Errorf("expected João first, got %q", got[0].Name)
	}
}

func TestSeed_RejectsWeakPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := seed(ctx, db, "123456", zap.NewNop()); err == nil {
		t.Fatal("expected weak password to be rejected")
	}
}

func TestRun_ReturnsConnectError(t *testing.T) {
	err := run(seedConfig{uri: "not-a-mongo-uri", dbName: "aramove_test", password: "demo-pass-2024"}, zap.NewNop())
	if err == nil {
		t.Fatal("expected an invalid URI to fail")
	}
	if !strings.Contains(err.Error(), "mongo connect") {
		t.Errorf("error = %v, want it to name the connect step", err)
	}
}

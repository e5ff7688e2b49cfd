package userstore_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/paging"
	"github.com/arabeuna/aramove/internal/domain/geo"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/arabeuna/aramove/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newDriver(name, email, plate, cpf string) models.User {
	return models.User{
		Name:      name,
		Email:     email,
		Phone:     "(11) 98888-0000",
		Role:      "driver",
		Vehicle:   &models.Vehicle{Model: "Onix", Plate: plate},
		Documents: &models.Documents{License: "CNH", CPF: cpf},
	}
}

func TestCreate_NormalizesAndDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p, err := store.Create(ctx, models.User{Name: "  Ana  Souza ", Email: " Ana@Example.COM ", Role: "user"})
	if err != nil {
		t.Fatalf("Create passenger: %v", err)
	}
	if p.Role != models.RolePassenger || !p.IsApproved {
		t.Errorf("passenger: role=%q approved=%v", p.Role, p.IsApproved)
	}
	if p.Email != "ana@example.com" {
		t.Errorf("email not normalized: %q", p.Email)
	}

	d, err := store.Create(ctx, newDriver("João", "joao@example.com", "abc-1234", "529.982.247-25"))
	if err != nil {
		t.Fatalf("Create driver: %v", err)
	}
	if d.IsApproved || d.IsAvailable {
		t.Errorf("driver should start unapproved and unavailable: %+v", d)
	}
	if d.Vehicle.Plate != "ABC1234" || d.Documents.CPF != "52998224725" {
		t.Errorf("driver profile not normalized: plate=%q cpf=%q", d.Vehicle.Plate, d.Documents.CPF)
	}

	got, err := store.GetByEmail(ctx, "JOAO@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != d.ID {
		t.Errorf("GetByEmail returned %s, want %s", got.ID.Hex(), d.ID.Hex())
	}
}

func TestCreate_Rejections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, newDriver("João", "joao@example.com", "ABC1234", "52998224725")); err != nil {
		t.Fatalf("seed driver: %v", err)
	}

	tests := []struct {
		name string
		user models.User
		want error
	}{
		{"duplicate email", models.User{Name: "X", Email: "JOAO@example.com"}, userstore.ErrDuplicateEmail},
		{"duplicate plate", newDriver("Y", "y@example.com", "abc 1234", "16899535009"), userstore.ErrDuplicatePlate},
		{"duplicate cpf", newDriver("Z", "z@example.com", "XYZ5678", "529.982.247-25"), userstore.ErrDuplicateCPF},
		{"driver without vehicle", models.User{Name: "W", Email: "w@example.com", Role: "driver"}, userstore.ErrDriverProfile},
		{"unknown role", models.User{Name: "V", Email: "v@example.com", Role: "pilot"}, userstore.ErrBadRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Create(ctx, tt.user)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	// passengers have no plate or cpf, so the partial indexes ignore them
	for _, email := range []string{"p1@example.com", "p2@example.com"} {
		if _, err := store.Create(ctx, models.User{Name: "P", Email: email}); err != nil {
			t.Errorf("second passenger %s: %v", email, err)
		}
	}
}

func TestDriverFlags(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	d, err := store.Create(ctx, newDriver("João", "joao@example.com", "ABC1234", "52998224725"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	p, err := store.Create(ctx, models.User{Name: "Ana", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.Approve(ctx, d.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := store.SetAvailability(ctx, d.ID, true); err != nil {
		t.Fatalf("SetAvailability: %v", err)
	}
	if err := store.UpdateLocation(ctx, d.ID, geo.Point(-46.6333, -23.5505)); err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}
	if err := store.SetRating(ctx, d.ID, 4.5, 2); err != nil {
		t.Fatalf("SetRating: %v", err)
	}

	got, err := store.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.IsApproved || !got.IsAvailable || got.Location == nil || got.Rating != 4.5 || got.RatingCount != 2 {
		t.Errorf("driver flags not stored: %+v", got)
	}

	// driver-only updates do not touch passengers
	if err := store.Approve(ctx, p.ID); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("Approve passenger: got %v, want ErrNotFound", err)
	}
	if err := store.SetAvailability(ctx, p.ID, true); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("SetAvailability passenger: got %v, want ErrNotFound", err)
	}
	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("GetByID unknown: got %v, want ErrNotFound", err)
	}
}

func TestDeletePendingDriver(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	pending := fx.CreateDriver(ctx, "Pedro", "pedro@example.com", testutil.DriverOpts{})
	approved := fx.CreateDriver(ctx, "João", "joao@example.com", testutil.DriverOpts{Approved: true})
	passenger := fx.CreatePassenger(ctx, "Ana", "ana@example.com")

	for _, id := range []primitive.ObjectID{approved.ID, passenger.ID} {
		if err := store.DeletePendingDriver(ctx, id); !errors.Is(err, userstore.ErrNotFound) {
			t.Errorf("DeletePendingDriver(%s): got %v, want ErrNotFound", id.Hex(), err)
		}
	}
	if err := store.DeletePendingDriver(ctx, pending.ID); err != nil {
		t.Fatalf("DeletePendingDriver: %v", err)
	}
	if _, err := store.GetByID(ctx, pending.ID); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("pending driver still present: %v", err)
	}
}

func TestListPendingDrivers_Keyset(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i, name := range []string{"Carla", "Álvaro", "Bruno", "Daniel"} {
		fx.CreateDriver(ctx, name, fmt.Sprintf("pending%d@example.com", i), testutil.DriverOpts{})
	}
	fx.CreateDriver(ctx, "Aprovado", "ok@example.com", testutil.DriverOpts{Approved: true})

	page := func(cfg paging.KeysetConfig) []models.User {
		t.Helper()
		rows, err := store.ListPendingDrivers(ctx, cfg, 2)
		if err != nil {
			t.Fatalf("ListPendingDrivers: %v", err)
		}
		return rows
	}

	first := page(paging.ConfigureKeyset("", ""))
	if len(first) != 3 {
		t.Fatalf("first fetch: got %d rows, want size+1=3", len(first))
	}
	if first[0].Name != "Álvaro" || first[1].Name != "Bruno" {
		t.Errorf("first page order: %s, %s", first[0].Name, first[1].Name)
	}

	_, next := paging.BuildCursors(first[:2],
		func(u models.User) string { return u.NameCI },
		func(u models.User) primitive.ObjectID { return u.ID })
	second := page(paging.ConfigureKeyset("", next))
	if len(second) != 2 || second[0].Name != "Carla" || second[1].Name != "Daniel" {
		t.Errorf("second page: %+v", names(second))
	}
}

func names(us []models.User) []string {
	out := make([]string, 0, len(us))
	for _, u := range us {
		out = append(out, u.Name)
	}
	return out
}

func TestList_FiltersAndSummaries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ana := fx.CreatePassenger(ctx, "Ana", "ana@example.com")
	joao := fx.CreateOnlineDriver(ctx, "João", "joao@example.com", -46.6333, -23.5505)
	root := fx.CreateAdmin(ctx, "Root", "root@example.com")

	all, err := store.List(ctx, userstore.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].ID != root.ID {
		t.Errorf("List should be newest first: %v", names(all))
	}
	for _, u := range all {
		if u.PasswordHash != "" {
			t.Errorf("password hash leaked for %s", u.Email)
		}
	}

	passengers, err := store.List(ctx, userstore.ListFilter{Role: "user"})
	if err != nil {
		t.Fatalf("List role=user: %v", err)
	}
	if len(passengers) != 1 || passengers[0].ID != ana.ID {
		t.Errorf("legacy role filter: %v", names(passengers))
	}

	older, err := store.List(ctx, userstore.ListFilter{Before: root.ID, Limit: 1})
	if err != nil {
		t.Fatalf("List before: %v", err)
	}
	if len(older) != 1 || older[0].ID != joao.ID {
		t.Errorf("before cursor: %v", names(older))
	}

	sums, err := store.Summaries(ctx, []primitive.ObjectID{ana.ID, joao.ID, primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("Summaries: %v", err)
	}
	if len(sums) != 2 || sums[joao.ID].Vehicle == nil || sums[ana.ID].Name != "Ana" {
		t.Errorf("Summaries: %+v", sums)
	}

	n, err := store.CountByRole(ctx, models.RoleDriver)
	if err != nil || n != 1 {
		t.Errorf("CountByRole driver: n=%d err=%v", n, err)
	}
}

func TestList_Query(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreatePassenger(ctx, "Ana Souza", "ana@example.com")
	joao := fx.CreateOnlineDriver(ctx, "João Silva", "joao@example.com", -46.6333, -23.5505)
	fx.CreatePassenger(ctx, "Joana Lima", "lima@example.com")

	byName, err := store.List(ctx, userstore.ListFilter{Query: "JOA"})
	if err != nil {
		t.Fatalf("List q=JOA: %v", err)
	}
	if len(byName) != 2 {
		t.Errorf("folded name prefix should match João and Joana: %v", names(byName))
	}

	byEmail, err := store.List(ctx, userstore.ListFilter{Query: "Joao@"})
	if err != nil {
		t.Fatalf("List q=Joao@: %v", err)
	}
	if len(byEmail) != 1 || byEmail[0].ID != joao.ID {
		t.Errorf("email prefix: %v", names(byEmail))
	}

	drivers, err := store.List(ctx, userstore.ListFilter{Role: "driver", Query: "jo"})
	if err != nil {
		t.Fatalf("List role+q: %v", err)
	}
	if len(drivers) != 1 || drivers[0].ID != joao.ID {
		t.Errorf("role and query combine: %v", names(drivers))
	}
}

func TestFirstAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.FirstAdmin(ctx); !errors.Is(err, userstore.ErrNotFound) {
		t.Fatalf("FirstAdmin on empty db: got %v, want ErrNotFound", err)
	}
	first := fx.CreateAdmin(ctx, "Root", "root@example.com")
	fx.CreateAdmin(ctx, "Other", "other@example.com")

	got, err := store.FirstAdmin(ctx)
	if err != nil {
		t.Fatalf("FirstAdmin: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("FirstAdmin = %s, want %s", got.Name, first.Name)
	}
}

func TestFetcher(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	joao := fx.CreateOnlineDriver(ctx, "João", "joao@example.com", -46.6333, -23.5505)
	f := userstore.NewFetcher(db)

	su := f.FetchUser(context.Background(), joao.ID.Hex())
	if su == nil {
		t.Fatal("FetchUser returned nil")
	}
	if su.Role != models.RoleDriver || !su.IsApproved || !su.IsAvailable || su.Email != "joao@example.com" {
		t.Errorf("unexpected session user: %+v", su)
	}
	if f.FetchUser(ctx, "not-an-id") != nil {
		t.Error("malformed id should return nil")
	}
	if f.FetchUser(ctx, primitive.NewObjectID().Hex()) != nil {
		t.Error("unknown id should return nil")
	}
}

package rides_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arabeuna/aramove/internal/app/features/rides"
	ridestore "github.com/arabeuna/aramove/internal/app/store/rides"
	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/auth"
	"github.com/arabeuna/aramove/internal/app/system/lifecycle"
	"github.com/arabeuna/aramove/internal/app/system/ridefeed"
	"github.com/arabeuna/aramove/internal/domain/geo"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/arabeuna/aramove/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	se     = [2]float64{-46.6333, -23.5505}
	near1k = [2]float64{-46.6333, -23.5415}
	near3k = [2]float64{-46.6333, -23.5235}
	far20k = [2]float64{-46.6333, -23.3705}
	dest   = [2]float64{-46.6400, -23.5600}
)

type env struct {
	fx     *testutil.Fixtures
	am     *auth.Manager
	feed   *ridefeed.Feed
	router chi.Router
}

func setup(t *testing.T) env {
	t.Helper()
	client, db := testutil.SetupTestClient(t)
	am := testutil.NewAuthManager(t, db)
	feed := ridefeed.New(zap.NewNop(), nil)
	t.Cleanup(feed.Close)

	lm := &lifecycle.Manager{
		Rides:           ridestore.New(db),
		Users:           userstore.New(db),
		Client:          client,
		Feed:            feed,
		Sessions:        am,
		RequireApproval: true,
		Log:             zap.NewNop(),
	}
	h := rides.NewHandler(db, lm, feed, zap.NewNop())
	return env{
		fx:     testutil.NewFixtures(t, db),
		am:     am,
		feed:   feed,
		router: rides.Routes(h, am, nil),
	}
}

func (e env) do(t *testing.T, u models.User, method, target string, body any) *testutil.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = testutil.NewJSONRequest(t, method, target, body)
	} else {
		req = testutil.NewRequest(method, target)
	}
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, testutil.Bearer(t, e.am, req, u))
	return rec
}

func requestBody(from, to [2]float64) map[string]any {
	return map[string]any{
		"origin":        map[string]any{"coordinates": []float64{from[0], from[1]}, "address": "Praça da Sé"},
		"destination":   map[string]any{"coordinates": []float64{to[0], to[1]}, "address": "Liberdade"},
		"price":         25.5,
		"duration":      600,
		"paymentMethod": "pix",
	}
}

func TestRequest(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ana := e.fx.CreatePassenger(ctx, "Ana", "ana@example.com")
	joao := e.fx.CreateOnlineDriver(ctx, "João", "joao@example.com", se[0], se[1])

	rec := e.do(t, ana, http.MethodPost, "/request", requestBody(se, dest))
	rec.AssertStatus(t, http.StatusCreated)
	var ride models.Ride
	rec.DecodeJSON(t, &ride)
	assert.Equal(t, models.RideStatusPending, ride.Status)
	assert.Nil(t, ride.Driver)
	assert.Equal(t, ana.ID, ride.Passenger)
	assert.Greater(t, ride.Distance, 0.0, "distance is computed when omitted")

	t.Run("second active ride conflicts", func(t *testing.T) {
		rec := e.do(t, ana, http.MethodPost, "/", requestBody(se, dest))
		rec.AssertStatus(t, http.StatusConflict)
	})

	t.Run("drivers cannot request", func(t *testing.T) {
		rec := e.do(t, joao, http.MethodPost, "/", requestBody(se, dest))
		rec.AssertStatus(t, http.StatusForbidden)
	})

	t.Run("bad coordinates", func(t *testing.T) {
		bia := e.fx.CreatePassenger(ctx, "Bia", "bia@example.com")
		rec := e.do(t, bia, http.MethodPost, "/", requestBody([2]float64{-200, 0}, dest))
		rec.AssertStatus(t, http.StatusBadRequest)
		rec.AssertErrorCode(t, "validation_failed")
	})

	t.Run("unknown payment method", func(t *testing.T) {
		caio := e.fx.CreatePassenger(ctx, "Caio", "caio@example.com")
		body := requestBody(se, dest)
		body["paymentMethod"] = "barter"
		rec := e.do(t, caio, http.MethodPost, "/", body)
		rec.AssertStatus(t, http.StatusBadRequest)
	})
}

func TestAvailable(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i, from := range [][2]float64{near3k, near1k, far20k} {
		p := e.fx.CreatePassenger(ctx, "P", "p"+string(rune('a'+i))+"@example.com")
		e.fx.CreateRide(ctx, p.ID, from, dest)
	}

	t.Run("nearest first within radius", func(t *testing.T) {
		joao := e.fx.CreateOnlineDriver(ctx, "João", "joao@example.com", se[0], se[1])
		rec := e.do(t, joao, http.MethodGet, "/available", nil)
		rec.AssertStatus(t, http.StatusOK)

		var out []struct {
			Origin         models.Place        `json:"origin"`
			DistanceMeters float64             `json:"distanceMeters"`
			PassengerInfo  *models.UserSummary `json:"passengerInfo"`
		}
		rec.DecodeJSON(t, &out)
		require.Len(t, out, 2, "the 20 km ride is outside the default radius")
		assert.Equal(t, near1k[1], out[0].Origin.Coordinates[1])
		assert.Equal(t, near3k[1], out[1].Origin.Coordinates[1])
		assert.Less(t, out[0].DistanceMeters, out[1].DistanceMeters)
		require.NotNil(t, out[0].PassengerInfo)
		assert.Equal(t, "P", out[0].PassengerInfo.Name)
	})

	t.Run("limit", func(t *testing.T) {
		maria := e.fx.CreateOnlineDriver(ctx, "Maria", "maria@example.com", se[0], se[1])
		rec := e.do(t, maria, http.MethodGet, "/available?limit=1", nil)
		var out []json.RawMessage
		rec.DecodeJSON(t, &out)
		assert.Len(t, out, 1)
	})

	t.Run("unavailable driver gets an empty list", func(t *testing.T) {
		p := geo.Point(se[0], se[1])
		off := e.fx.CreateDriver(ctx, "Off", "off@example.com", testutil.DriverOpts{Approved: true, Location: &p})
		rec := e.do(t, off, http.MethodGet, "/available", nil)
		rec.AssertStatus(t, http.StatusOK)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("unapproved driver is refused", func(t *testing.T) {
		p := geo.Point(se[0], se[1])
		pedro := e.fx.CreateDriver(ctx, "Pedro", "pedro@example.com", testutil.DriverOpts{Available: true, Location: &p})
		rec := e.do(t, pedro, http.MethodGet, "/available", nil)
		rec.AssertStatus(t, http.StatusForbidden)
	})

	t.Run("driver without location", func(t *testing.T) {
		lost := e.fx.CreateDriver(ctx, "Lost", "lost@example.com", testutil.DriverOpts{Approved: true, Available: true})
		rec := e.do(t, lost, http.MethodGet, "/available", nil)
		rec.AssertStatus(t, http.StatusBadRequest)
		rec.AssertErrorCode(t, "location_unavailable")
	})

	t.Run("passengers are refused", func(t *testing.T) {
		ana := e.fx.CreatePassenger(ctx, "Ana", "ana@example.com")
		rec := e.do(t, ana, http.MethodGet, "/available", nil)
		rec.AssertStatus(t, http.StatusForbidden)
	})
}

func TestLifecycleOverHTTP(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ana := e.fx.CreatePassenger(ctx, "Ana", "ana@example.com")
	joao := e.fx.CreateOnlineDriver(ctx, "João", "joao@example.com", se[0], se[1])
	maria := e.fx.CreateOnlineDriver(ctx, "Maria", "maria@example.com", se[0], se[1])

	rec := e.do(t, ana, http.MethodGet, "/current", nil)
	rec.AssertStatus(t, http.StatusOK)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	ride := e.fx.CreateRide(ctx, ana.ID, se, dest)
	base := "/" + ride.ID.Hex()

	t.Run("driverId must name the caller", func(t *testing.T) {
		rec := e.do(t, joao, http.MethodPut, base+"/accept", map[string]string{"driverId": maria.ID.Hex()})
		rec.AssertStatus(t, http.StatusForbidden)
	})

	rec = e.do(t, joao, http.MethodPut, base+"/accept", map[string]string{"driverId": joao.ID.Hex()})
	rec.AssertStatus(t, http.StatusOK)
	var view struct {
		Status     models.RideStatus   `json:"status"`
		Driver     *primitive.ObjectID `json:"driver"`
		DriverInfo *models.UserSummary `json:"driverInfo"`
	}
	rec.DecodeJSON(t, &view)
	assert.Equal(t, models.RideStatusAccepted, view.Status)
	require.NotNil(t, view.Driver)
	assert.Equal(t, joao.ID, *view.Driver)
	require.NotNil(t, view.DriverInfo)
	assert.Equal(t, "Onix", view.DriverInfo.Vehicle.Model)

	e.do(t, maria, http.MethodPost, base+"/accept", nil).AssertStatus(t, http.StatusConflict)
	e.do(t, maria, http.MethodPost, base+"/start", nil).AssertStatus(t, http.StatusForbidden)
	e.do(t, ana, http.MethodPost, base+"/start", nil).AssertStatus(t, http.StatusForbidden)
	e.do(t, joao, http.MethodPost, base+"/complete", nil).AssertStatus(t, http.StatusConflict)

	rec = e.do(t, ana, http.MethodGet, "/current", nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, ride.ID.Hex())

	e.do(t, joao, http.MethodPost, "/start/"+ride.ID.Hex(), nil).AssertStatus(t, http.StatusOK)
	e.do(t, ana, http.MethodPost, base+"/cancel", nil).AssertStatus(t, http.StatusConflict)
	e.do(t, joao, http.MethodPost, base+"/complete", nil).AssertStatus(t, http.StatusOK)

	done := e.fx.ReloadRide(ctx, ride.ID)
	assert.Equal(t, models.RideStatusCompleted, done.Status)
	assert.NotNil(t, done.StartTime)
	assert.NotNil(t, done.EndTime)
	assert.True(t, e.fx.Reload(ctx, joao.ID).IsAvailable, "completing frees the driver")

	rec = e.do(t, joao, http.MethodGet, "/history?status=completed", nil)
	rec.AssertStatus(t, http.StatusOK)
	var hist []models.Ride
	rec.DecodeJSON(t, &hist)
	require.Len(t, hist, 1)
	assert.Equal(t, ride.ID, hist[0].ID)

	e.do(t, joao, http.MethodGet, "/history?status=flying", nil).AssertStatus(t, http.StatusBadRequest)
}

func TestTransitions_UnknownAndMalformedIDs(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	joao := e.fx.CreateOnlineDriver(ctx, "João", "joao@example.com", se[0], se[1])

	e.do(t, joao, http.MethodPost, "/"+primitive.NewObjectID().Hex()+"/accept", nil).AssertStatus(t, http.StatusNotFound)
	e.do(t, joao, http.MethodPost, "/not-an-id/accept", nil).AssertStatus(t, http.StatusNotFound)
	e.do(t, joao, http.MethodGet, "/"+primitive.NewObjectID().Hex(), nil).AssertStatus(t, http.StatusNotFound)
}

func TestAccept_EmptyChunkedBody(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ana := e.fx.CreatePassenger(ctx, "Ana", "ana@example.com")
	joao := e.fx.CreateOnlineDriver(ctx, "João", "joao@example.com", se[0], se[1])
	ride := e.fx.CreateRide(ctx, ana.ID, se, dest)

	req := httptest.NewRequest(http.MethodPut, "/"+ride.ID.Hex()+"/accept", io.NopCloser(strings.NewReader("")))
	req.ContentLength = -1
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, testutil.Bearer(t, e.am, req, joao))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"accepted"`)
}

func TestServeRide_PartiesAndAdmins(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ana := e.fx.CreatePassenger(ctx, "Ana", "ana@example.com")
	bia := e.fx.CreatePassenger(ctx, "Bia", "bia@example.com")
	admin := e.fx.CreateAdmin(ctx, "Root", "root@example.com")
	ride := e.fx.CreateRide(ctx, ana.ID, se, dest)

	rec := e.do(t, ana, http.MethodGet, "/"+ride.ID.Hex(), nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"passengerInfo"`)

	e.do(t, bia, http.MethodGet, "/"+ride.ID.Hex(), nil).AssertStatus(t, http.StatusForbidden)
	e.do(t, admin, http.MethodGet, "/status/"+ride.ID.Hex(), nil).AssertStatus(t, http.StatusOK)
}

func TestRequiresAuthentication(t *testing.T) {
	e := setup(t)
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/current"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestEvents_StreamTransitions(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ana := e.fx.CreatePassenger(ctx, "Ana", "ana@example.com")
	joao := e.fx.CreateOnlineDriver(ctx, "João", "joao@example.com", se[0], se[1])
	ride := e.fx.CreateRide(ctx, ana.ID, se, dest)

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	token, _, err := e.am.Tokens().Issue(ana.ID.Hex(), ana.Role)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + ride.ID.Hex() + "/events?token=" + token

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return e.feed.Subscribers(ride.ID) == 1 },
		2*time.Second, 10*time.Millisecond)

	e.do(t, joao, http.MethodPost, "/"+ride.ID.Hex()+"/accept", nil).AssertStatus(t, http.StatusOK)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev struct {
		Type string      `json:"type"`
		Ride models.Ride `json:"ride"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, ridefeed.TypeAccepted, ev.Type)
	assert.Equal(t, ride.ID, ev.Ride.ID)

	t.Run("outsiders cannot subscribe", func(t *testing.T) {
		bia := e.fx.CreatePassenger(ctx, "Bia", "bia@example.com")
		tok, _, err := e.am.Tokens().Issue(bia.ID.Hex(), bia.Role)
		require.NoError(t, err)
		_, resp, err := websocket.DefaultDialer.Dial(
			"ws"+strings.TrimPrefix(srv.URL, "http")+"/"+ride.ID.Hex()+"/events?token="+tok, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

package ridefeed

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newServer(t *testing.T, f *Feed, rideID primitive.ObjectID) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = f.Serve(w, r, rideID, primitive.NewObjectID())
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitSubscribers(t *testing.T, f *Feed, rideID primitive.ObjectID, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return f.Subscribers(rideID) == n },
		2*time.Second, 10*time.Millisecond, "expected %d subscribers", n)
}

func TestTypeFor(t *testing.T) {
	cases := map[models.RideStatus]string{
		models.RideStatusPending:    TypeRequested,
		models.RideStatusAccepted:   TypeAccepted,
		models.RideStatusInProgress: TypeStarted,
		models.RideStatusCompleted:  TypeCompleted,
		models.RideStatusCancelled:  TypeCancelled,
	}
	for status, want := range cases {
		assert.Equal(t, want, TypeFor(status), "status %s", status)
	}
}

func TestFeed_PublishReachesRideSubscribers(t *testing.T) {
	f := New(nil, nil)
	defer f.Close()

	rideID := primitive.NewObjectID()
	conn := dial(t, newServer(t, f, rideID))
	waitSubscribers(t, f, rideID, 1)

	driver := primitive.NewObjectID()
	f.Publish(NewEvent(models.Ride{ID: rideID, Driver: &driver, Status: models.RideStatusAccepted}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got struct {
		Type string `json:"type"`
		Ride struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Driver string `json:"driver"`
		} `json:"ride"`
	}
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, TypeAccepted, got.Type)
	assert.Equal(t, rideID.Hex(), got.Ride.ID)
	assert.Equal(t, "accepted", got.Ride.Status)
	assert.Equal(t, driver.Hex(), got.Ride.Driver)
}

func TestFeed_OtherRidesNotDelivered(t *testing.T) {
	f := New(nil, nil)
	defer f.Close()

	rideID := primitive.NewObjectID()
	conn := dial(t, newServer(t, f, rideID))
	waitSubscribers(t, f, rideID, 1)

	f.Publish(NewEvent(models.Ride{ID: primitive.NewObjectID(), Status: models.RideStatusCancelled}))
	f.Publish(NewEvent(models.Ride{ID: rideID, Status: models.RideStatusCancelled}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, rideID, got.Ride.ID, "first frame must belong to the subscribed ride")
}

func TestFeed_DisconnectUnsubscribes(t *testing.T) {
	f := New(nil, nil)
	defer f.Close()

	rideID := primitive.NewObjectID()
	url := newServer(t, f, rideID)
	a := dial(t, url)
	dial(t, url)
	waitSubscribers(t, f, rideID, 2)

	require.NoError(t, a.Close())
	waitSubscribers(t, f, rideID, 1)
}

func TestFeed_CloseDisconnectsClients(t *testing.T) {
	f := New(nil, nil)

	rideID := primitive.NewObjectID()
	url := newServer(t, f, rideID)
	conn := dial(t, url)
	waitSubscribers(t, f, rideID, 1)

	f.Close()
	assert.Equal(t, 0, f.Subscribers(rideID))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	// New connections after Close are refused with a going-away frame.
	late := dial(t, url)
	_ = late.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestFeed_NilPublishIsNoop(t *testing.T) {
	var f *Feed
	assert.NotPanics(t, func() { f.Publish(Event{}) })
}

func TestFeed_RejectsPlainHTTP(t *testing.T) {
	f := New(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rides/x/events", nil)
	err := f.Serve(rec, req, primitive.NewObjectID(), primitive.NewObjectID())
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Package ridefeed pushes ride transitions to the parties of a ride over
// websockets. The REST endpoints stay authoritative; the feed only saves
// clients from polling.
package ridefeed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Event types, one per transition.
const (
	TypeRequested = "ride.requested"
	TypeAccepted  = "ride.accepted"
	TypeStarted   = "ride.started"
	TypeCompleted = "ride.completed"
	TypeCancelled = "ride.cancelled"
)

// TypeFor returns the event type announcing a ride that reached status.
func TypeFor(status models.RideStatus) string {
	switch status {
	case models.RideStatusAccepted:
		return TypeAccepted
	case models.RideStatusInProgress:
		return TypeStarted
	case models.RideStatusCompleted:
		return TypeCompleted
	case models.RideStatusCancelled:
		return TypeCancelled
	default:
		return TypeRequested
	}
}

// Event is the JSON frame sent to subscribers.
type Event struct {
	Type string      `json:"type"`
	Ride models.Ride `json:"ride"`
}

// NewEvent builds the event announcing ride's current status.
func NewEvent(ride models.Ride) Event {
	return Event{Type: TypeFor(ride.Status), Ride: ride}
}

type subscriber struct {
	id     string
	rideID string
	userID string
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Feed tracks websocket subscribers per ride.
type Feed struct {
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu     sync.RWMutex
	rides  map[string]map[string]*subscriber
	closed bool
}

// New creates a Feed. checkOrigin may be nil to accept any origin.
func New(log *zap.Logger, checkOrigin func(r *http.Request) bool) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		log:   log,
		rides: make(map[string]map[string]*subscriber),
	}
}

// Publish delivers e to every subscriber of its ride. Subscribers that
// cannot keep up are dropped. A nil Feed is a no-op.
func (f *Feed) Publish(e Event) {
	if f == nil {
		return
	}
	msg, err := json.Marshal(e)
	if err != nil {
		f.log.Error("ridefeed: marshal event", zap.Error(err))
		return
	}

	rideID := e.Ride.ID.Hex()
	var slow []*subscriber

	f.mu.RLock()
	for _, s := range f.rides[rideID] {
		select {
		case s.send <- msg:
		default:
			slow = append(slow, s)
		}
	}
	f.mu.RUnlock()

	for _, s := range slow {
		f.log.Warn("ridefeed: dropping slow subscriber",
			zap.String("ride_id", rideID),
			zap.String("user_id", s.userID))
		f.remove(s)
	}
}

// Subscribers returns the number of open subscriptions for a ride.
func (f *Feed) Subscribers(rideID primitive.ObjectID) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.rides[rideID.Hex()])
}

// Serve upgrades the request and subscribes the connection to rideID on
// behalf of userID. Callers must have checked that userID is a party.
func (f *Feed) Serve(w http.ResponseWriter, r *http.Request, rideID, userID primitive.ObjectID) error {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		return err
	}

	s := &subscriber{
		id:     uuid.NewString(),
		rideID: rideID.Hex(),
		userID: userID.Hex(),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return nil
	}
	subs := f.rides[s.rideID]
	if subs == nil {
		subs = make(map[string]*subscriber)
		f.rides[s.rideID] = subs
	}
	subs[s.id] = s
	f.mu.Unlock()

	f.log.Debug("ridefeed: subscribed",
		zap.String("conn_id", s.id),
		zap.String("ride_id", s.rideID),
		zap.String("user_id", s.userID))

	go f.writePump(s)
	go f.readPump(s)
	return nil
}

func (f *Feed) remove(s *subscriber) {
	f.mu.Lock()
	if subs, ok := f.rides[s.rideID]; ok {
		delete(subs, s.id)
		if len(subs) == 0 {
			delete(f.rides, s.rideID)
		}
	}
	f.mu.Unlock()
	s.close()
}

// readPump discards client frames and notices when the peer goes away.
func (f *Feed) readPump(s *subscriber) {
	defer f.remove(s)

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.log.Debug("ridefeed: read error", zap.String("conn_id", s.id), zap.Error(err))
			}
			return
		}
	}
}

func (f *Feed) writePump(s *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every subscriber and refuses new ones.
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	var all []*subscriber
	for _, subs := range f.rides {
		for _, s := range subs {
			all = append(all, s)
		}
	}
	f.rides = make(map[string]map[string]*subscriber)
	f.mu.Unlock()

	for _, s := range all {
		s.close()
	}
}

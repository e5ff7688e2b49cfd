// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/arabeuna/aramove/internal/app/store/audit"
	"github.com/arabeuna/aramove/internal/app/system/ratelimit"
	"github.com/arabeuna/aramove/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination settings for a category.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// Config holds audit logging configuration, one destination per category.
type Config struct {
	// Auth covers registration, login, and logout.
	Auth string
	// Admin covers driver approval and ride deletion.
	Admin string
	// Ride covers lifecycle transitions and ratings.
	Ride string
}

// Uniform applies the same destination to every category.
func Uniform(mode string) Config {
	return Config{Auth: mode, Admin: mode, Ride: mode}
}

// ValidMode reports whether s is a recognised destination.
func ValidMode(s string) bool {
	switch s {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.RideID != nil {
		fields = append(fields, zap.String("ride_id", event.RideID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// setting returns the destination for a category. Unknown categories log everywhere.
func (l *Logger) setting(category string) string {
	var s string
	switch category {
	case audit.CategoryAuth:
		s = l.config.Auth
	case audit.CategoryAdmin:
		s = l.config.Admin
	case audit.CategoryRide:
		s = l.config.Ride
	}
	if s == "" {
		return ModeAll
	}
	return s
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so tests and tools can pass nil.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := l.setting(event.Category)
	if setting == ModeOff {
		return
	}

	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}

	if (setting == ModeAll || setting == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// requestEvent fills the client fields from r.
func requestEvent(r *http.Request, e audit.Event) audit.Event {
	if r != nil {
		e.IP = ratelimit.ClientIP(r)
		e.UserAgent = r.UserAgent()
	}
	return e
}

// --- Authentication Events ---

// Registered logs a self-service signup.
func (l *Logger) Registered(ctx context.Context, r *http.Request, userID primitive.ObjectID, role string) {
	l.Log(ctx, requestEvent(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventRegistered,
		UserID:    &userID,
		ActorID:   &userID,
		Success:   true,
		Details:   map[string]string{"role": role},
	}))
}

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, requestEvent(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"email": email},
	}))
}

// LoginFailedUserNotFound logs a failed login for an unknown email.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, email string) {
	l.Log(ctx, requestEvent(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		Success:       false,
		FailureReason: "user not found",
		Details:       map[string]string{"attempted_email": email},
	}))
}

// LoginFailedWrongPassword logs a failed login due to wrong password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, requestEvent(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		UserID:        &userID,
		Success:       false,
		FailureReason: "wrong password",
		Details:       map[string]string{"email": email},
	}))
}

// LoginFailedRateLimit logs a login refused by the limiter. limitType is
// "ip" or "email".
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, email, limitType string) {
	l.Log(ctx, requestEvent(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedRateLimit,
		Success:       false,
		FailureReason: "rate limited",
		Details: map[string]string{
			"email":      email,
			"limit_type": limitType,
		},
	}))
}

// Logout logs a user logout. Accepts the hex id carried by SessionUser.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	var userID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		userID = &oid
	}
	l.Log(ctx, requestEvent(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		Success:   true,
	}))
}

// --- Admin Events ---

// DriverApproved logs an admin approving a driver.
func (l *Logger) DriverApproved(ctx context.Context, r *http.Request, actorID, driverID primitive.ObjectID) {
	l.Log(ctx, requestEvent(r, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventDriverApproved,
		UserID:    &driverID,
		ActorID:   &actorID,
		Success:   true,
	}))
}

// DriverRejected logs an admin rejecting (deleting) a pending driver.
func (l *Logger) DriverRejected(ctx context.Context, r *http.Request, actorID, driverID primitive.ObjectID, email string) {
	l.Log(ctx, requestEvent(r, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventDriverRejected,
		UserID:    &driverID,
		ActorID:   &actorID,
		Success:   true,
		Details:   map[string]string{"email": email},
	}))
}

// RideDeleted logs an admin deleting a ride.
func (l *Logger) RideDeleted(ctx context.Context, r *http.Request, actorID primitive.ObjectID, ride models.Ride) {
	l.Log(ctx, requestEvent(r, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventRideDeleted,
		UserID:    &ride.Passenger,
		ActorID:   &actorID,
		RideID:    &ride.ID,
		Success:   true,
		Details:   map[string]string{"status": string(ride.Status)},
	}))
}

// --- Ride Events ---

// transitionEvents maps a ride's new status to its event type.
var transitionEvents = map[models.RideStatus]string{
	models.RideStatusPending:    audit.EventRideRequested,
	models.RideStatusAccepted:   audit.EventRideAccepted,
	models.RideStatusInProgress: audit.EventRideStarted,
	models.RideStatusCompleted:  audit.EventRideCompleted,
	models.RideStatusCancelled:  audit.EventRideCancelled,
}

// RideTransition logs that actorID moved ride into its current status.
func (l *Logger) RideTransition(ctx context.Context, actorID primitive.ObjectID, ride models.Ride) {
	eventType, ok := transitionEvents[ride.Status]
	if !ok {
		return
	}
	details := map[string]string{"status": string(ride.Status)}
	if ride.Driver != nil {
		details["driver_id"] = ride.Driver.Hex()
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryRide,
		EventType: eventType,
		UserID:    &ride.Passenger,
		ActorID:   &actorID,
		RideID:    &ride.ID,
		Success:   true,
		Details:   details,
	})
}

// RideRated logs a rating left by actorID for the ride's counterpart.
func (l *Logger) RideRated(ctx context.Context, actorID, rideID, ratedID primitive.ObjectID, stars int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryRide,
		EventType: audit.EventRideRated,
		UserID:    &ratedID,
		ActorID:   &actorID,
		RideID:    &rideID,
		Success:   true,
		Details:   map[string]string{"stars": strconv.Itoa(stars)},
	})
}

package testutil

import (
	"net/http"
	"testing"
	"time"

	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/auth"
	"github.com/arabeuna/aramove/internal/app/system/credcache"
	"github.com/arabeuna/aramove/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Test-only signing material.
const (
	TestJWTSecret     = "test-secret-0123456789abcdef0123456789"
	TestCookieHashKey = "test-cookie-hash-key-0123456789abcdef"
)

// NewAuthManager builds the real token middleware over db's users.
func NewAuthManager(t *testing.T, db *mongo.Database) *auth.Manager {
	t.Helper()
	tokens, err := auth.NewTokens(TestJWTSecret, time.Hour, "aramove-test")
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	cookies, err := auth.NewCookies(TestCookieHashKey, "", false)
	if err != nil {
		t.Fatalf("cookies: %v", err)
	}
	cache := credcache.New[auth.SessionUser](100, time.Minute)
	return auth.NewManager(tokens, cookies, userstore.NewFetcher(db), cache, zap.NewNop())
}

// Bearer sets an Authorization header carrying a fresh token for u.
func Bearer(t *testing.T, am *auth.Manager, r *http.Request, u models.User) *http.Request {
	t.Helper()
	token, _, err := am.Tokens().Issue(u.ID.Hex(), u.Role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

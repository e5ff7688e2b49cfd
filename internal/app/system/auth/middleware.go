package auth

import (
	"net/http"
	"strings"

	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/credcache"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/normalize"
	"go.uber.org/zap"
)

// Manager authenticates requests. It owns the credential cache; stores
// that change a user's role, approval, or availability call Invalidate.
type Manager struct {
	tokens  *Tokens
	cookies *Cookies
	fetcher UserFetcher
	cache   *credcache.Cache[SessionUser]
	log     *zap.Logger
}

// NewManager wires the middleware. cookies and cache may be nil.
func NewManager(tokens *Tokens, cookies *Cookies, fetcher UserFetcher, cache *credcache.Cache[SessionUser], logger *zap.Logger) *Manager {
	return &Manager{tokens: tokens, cookies: cookies, fetcher: fetcher, cache: cache, log: logger}
}

func (m *Manager) Tokens() *Tokens { return m.tokens }
func (m *Manager) Cookies() *Cookies { return m.cookies }

// Invalidate drops userID from the credential cache.
func (m *Manager) Invalidate(userID string) {
	if m.cache != nil {
		m.cache.Delete(userID)
	}
}

// TokenFromRequest looks for a token in the Authorization header, then the
// ?token= query parameter (websocket clients), then the signed cookie.
func (m *Manager) TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t
	}
	if m.cookies != nil {
		if t, ok := m.cookies.Read(r); ok {
			return t
		}
	}
	return ""
}

// Authenticate requires a valid token for an existing user. Every failure
// answers 401.
func (m *Manager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := m.TokenFromRequest(r)
		if raw == "" {
			jsonio.Error(w, r, m.log, apierr.Unauthorized("authentication required"))
			return
		}
		claims, err := m.tokens.Parse(raw)
		if err != nil {
			m.log.Debug("token rejected", zap.Error(err))
			jsonio.Error(w, r, m.log, apierr.Unauthorized("invalid or expired token"))
			return
		}
		u := m.load(r, claims.UserID)
		if u == nil {
			jsonio.Error(w, r, m.log, apierr.Unauthorized("user no longer exists"))
			return
		}
		next.ServeHTTP(w, WithUser(r, u))
	})
}

func (m *Manager) load(r *http.Request, userID string) *SessionUser {
	if m.cache != nil {
		if u, ok := m.cache.Get(userID); ok {
			return &u
		}
	}
	u := m.fetcher.FetchUser(r.Context(), userID)
	if u == nil {
		return nil
	}
	if m.cache != nil {
		m.cache.Set(userID, *u)
	}
	return u
}

// RequireRole allows only the given roles. Missing user → 401, wrong role → 403.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[normalize.Role(role)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				jsonio.Error(w, r, nil, apierr.Unauthorized(""))
				return
			}
			if _, has := set[normalize.Role(u.Role)]; !has {
				jsonio.Error(w, r, nil, apierr.Forbidden("this action requires role: "+strings.Join(allowed, " or ")))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

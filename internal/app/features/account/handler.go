// internal/app/features/account/handler.go
package account

import (
	"context"
	"errors"
	"net/http"
	"time"

	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/auditlog"
	"github.com/arabeuna/aramove/internal/app/system/auth"
	"github.com/arabeuna/aramove/internal/app/system/authutil"
	"github.com/arabeuna/aramove/internal/app/system/authz"
	"github.com/arabeuna/aramove/internal/app/system/inputval"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/normalize"
	"github.com/arabeuna/aramove/internal/app/system/ratelimit"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
	"github.com/arabeuna/aramove/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves registration, login, profile, and logout under /auth.
type Handler struct {
	Users    *userstore.Store
	Auth     *auth.Manager
	Limiter  *ratelimit.LoginLimiter // nil disables login rate limiting
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(users *userstore.Store, am *auth.Manager, limiter *ratelimit.LoginLimiter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Auth: am, Limiter: limiter, AuditLog: audit, Log: logger}
}

type vehicleInput struct {
	Model string `json:"model" validate:"required,max=60" label:"Vehicle model"`
	Plate string `json:"plate" validate:"required,max=10" label:"Plate"`
	Year  string `json:"year" validate:"max=4" label:"Vehicle year"`
	Color string `json:"color" validate:"max=30" label:"Vehicle color"`
}

type documentsInput struct {
	License string `json:"license" validate:"required,max=30" label:"License"`
	CPF     string `json:"cpf" validate:"required,min=11,max=14" label:"CPF"`
}

type registerRequest struct {
	Name      string          `json:"name" validate:"required,max=100" label:"Name"`
	Email     string          `json:"email" validate:"required,email,max=254" label:"Email"`
	Password  string          `json:"password" validate:"required" label:"Password"`
	Phone     string          `json:"phone" validate:"required,max=30" label:"Phone"`
	Role      string          `json:"role" validate:"omitempty,oneof=user passenger driver" label:"Role"`
	Vehicle   *vehicleInput   `json:"vehicle" validate:"required_if=Role driver" label:"Vehicle"`
	Documents *documentsInput `json:"documents" validate:"required_if=Role driver" label:"Documents"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

// authResponse is returned by register and login.
type authResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expiresAt"`
	User      models.User `json:"user"`
}

// Register handles POST /auth/register. Passengers are usable immediately;
// drivers must provide vehicle and documents and wait for approval.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := jsonio.Decode(w, r, &req); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if err := inputval.Check(req); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if err := authutil.ValidatePassword(req.Password); err != nil {
		jsonio.Error(w, r, h.Log, apierr.Validation(map[string]string{"password": err.Error()}))
		return
	}

	hash, err := authutil.HashPassword(req.Password)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}

	u := models.User{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         normalize.Role(req.Role),
	}
	if u.Role == models.RoleDriver {
		u.Vehicle = &models.Vehicle{
			Model: req.Vehicle.Model,
			Plate: req.Vehicle.Plate,
			Year:  req.Vehicle.Year,
			Color: req.Vehicle.Color,
		}
		u.Documents = &models.Documents{License: req.Documents.License, CPF: req.Documents.CPF}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err = h.Users.Create(ctx, u)
	if err != nil {
		jsonio.Error(w, r, h.Log, createErr(err))
		return
	}
	h.AuditLog.Registered(ctx, r, u.ID, u.Role)

	resp, err := h.issue(w, u)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	jsonio.Created(w, resp)
}

func createErr(err error) error {
	switch {
	case errors.Is(err, userstore.ErrDuplicateEmail):
		return apierr.Duplicate("email", err)
	case errors.Is(err, userstore.ErrDuplicatePlate):
		return apierr.Duplicate("plate", err)
	case errors.Is(err, userstore.ErrDuplicateCPF):
		return apierr.Duplicate("cpf", err)
	case errors.Is(err, userstore.ErrDriverProfile):
		return apierr.Validation(map[string]string{"vehicle": err.Error()})
	case errors.Is(err, userstore.ErrBadRole):
		return apierr.Validation(map[string]string{"role": err.Error()})
	}
	return apierr.Internal(err)
}

// Login handles POST /auth/login. Unknown email and wrong password look
// the same to the client.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := jsonio.Decode(w, r, &req); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if err := inputval.Check(req); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	email := normalize.Email(req.Email)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, email); !ok {
			h.AuditLog.LoginFailedRateLimit(ctx, r, email, "login")
			jsonio.Error(w, r, h.Log, apierr.TooManyRequests(reason))
			return
		}
	}

	u, err := h.Users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		h.AuditLog.LoginFailedUserNotFound(ctx, r, email)
		jsonio.Error(w, r, h.Log, apierr.Unauthorized("invalid email or password"))
		return
	}
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	if !authutil.CheckPassword(req.Password, u.PasswordHash) {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, u.ID, email)
		jsonio.Error(w, r, h.Log, apierr.Unauthorized("invalid email or password"))
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, email)
	// Drop any cached credentials so the new session sees current flags.
	h.Auth.Invalidate(u.ID.Hex())

	resp, err := h.issue(w, u)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	jsonio.OK(w, resp)
}

// issue signs a token for u and mirrors it into the cookie when cookies
// are configured.
func (h *Handler) issue(w http.ResponseWriter, u models.User) (authResponse, error) {
	token, exp, err := h.Auth.Tokens().Issue(u.ID.Hex(), u.Role)
	if err != nil {
		return authResponse{}, err
	}
	if c := h.Auth.Cookies(); c != nil {
		if err := c.Set(w, token, exp); err != nil {
			return authResponse{}, err
		}
	}
	return authResponse{Token: token, ExpiresAt: exp.UTC().Format(time.RFC3339), User: u}, nil
}

// Profile handles GET /auth/profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized(""))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, userstore.ErrNotFound) {
		jsonio.Error(w, r, h.Log, apierr.NotFound("user"))
		return
	}
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	jsonio.OK(w, u)
}

// Logout handles POST /auth/logout. Tokens are stateless, so logout clears
// the cookie and the cached credentials; clients discard their token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c := h.Auth.Cookies(); c != nil {
		c.Clear(w)
	}
	if u, ok := auth.CurrentUser(r); ok {
		h.Auth.Invalidate(u.ID)
		h.AuditLog.Logout(r.Context(), r, u.ID)
	}
	jsonio.OK(w, map[string]string{"message": "logged out"})
}

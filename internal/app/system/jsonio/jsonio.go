// internal/app/system/jsonio/jsonio.go
package jsonio

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/limits"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// exposeCauses controls whether internal error causes are written to
// clients. Only enabled in dev.
var exposeCauses atomic.Bool

// ExposeErrorCauses turns on cause details for 500 responses.
func ExposeErrorCauses(on bool) { exposeCauses.Store(on) }

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Write encodes v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with 200.
func OK(w http.ResponseWriter, v any) { Write(w, http.StatusOK, v) }

// Created writes v with 201.
func Created(w http.ResponseWriter, v any) { Write(w, http.StatusCreated, v) }

// Error translates err into a JSON error response. Anything that is not an
// *apierr.Error becomes a 500 and is logged.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	e := apierr.From(err)
	body := errorBody{Error: e.Code, Message: e.Message, Details: e.Details}

	if e.Status >= http.StatusInternalServerError {
		if log != nil {
			log.Error("request failed",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(e.Err))
		}
		if exposeCauses.Load() && e.Err != nil {
			body.Details = map[string]any{"cause": e.Err.Error()}
		}
	}

	Write(w, e.Status, body)
}

// Decode reads a JSON body into dst. Malformed or oversized bodies come
// back as apierr bad requests.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return apierr.BadRequest("content type must be application/json", nil)
	}
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apierr.BadRequest("request body is empty", err)
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return apierr.BadRequest("malformed JSON", err)
		case errors.As(err, &typeErr):
			return apierr.BadRequest("wrong type for field "+typeErr.Field, err).WithDetail("field", typeErr.Field)
		case errors.As(err, &maxErr):
			return apierr.BadRequest("request body too large", err)
		default:
			return apierr.BadRequest("invalid request body", err)
		}
	}
	return nil
}

// DecodeOptional is Decode for endpoints whose body may be left out. It
// reports whether a body was decoded; a missing or empty body, chunked or
// not, is not an error.
func DecodeOptional(w http.ResponseWriter, r *http.Request, dst any) (bool, error) {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return false, nil
	}
	if err := Decode(w, r, dst); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

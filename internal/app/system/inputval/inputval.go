// internal/app/system/inputval/inputval.go
package inputval

import (
	"net/mail"
	"reflect"
	"strings"
	"sync"

	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/domain/geo"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	once sync.Once
	v    *validator.Validate
)

// get returns the shared validator with custom rules registered.
func get() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())

		// Report JSON names in field paths so clients can map errors back.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})

		_ = v.RegisterValidation("lnglat", validateLngLat)
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})
		_ = v.RegisterValidation("ratingtag", func(fl validator.FieldLevel) bool {
			return models.IsValidRatingTag(fl.Field().String())
		})
		_ = v.RegisterValidation("payment", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case "", models.PaymentCash, models.PaymentCard, models.PaymentPix:
				return true
			}
			return false
		})
	})
	return v
}

// validateLngLat accepts a [lng, lat] float slice within valid ranges.
func validateLngLat(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() != reflect.Slice || f.Len() != 2 {
		return false
	}
	if f.Index(0).Kind() != reflect.Float64 {
		return false
	}
	return geo.ValidLngLat(f.Index(0).Float(), f.Index(1).Float())
}

// FieldError is one failed rule, keyed by the JSON field path.
type FieldError struct {
	Field   string
	Message string
}

// Result collects validation failures.
type Result struct {
	Errors []FieldError
}

func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Err converts the result into an apierr validation error, or nil.
func (r *Result) Err() error {
	if !r.HasErrors() {
		return nil
	}
	fields := make(map[string]string, len(r.Errors))
	for _, e := range r.Errors {
		if _, seen := fields[e.Field]; !seen {
			fields[e.Field] = e.Message
		}
	}
	ae := apierr.Validation(fields)
	ae.Message = r.First()
	return ae
}

// Validate runs struct-tag validation on s.
func Validate(s any) *Result {
	res := &Result{}
	err := get().Struct(s)
	if err == nil {
		return res
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		res.Errors = append(res.Errors, FieldError{Message: err.Error()})
		return res
	}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{
			Field:   fieldPath(fe),
			Message: message(s, fe),
		})
	}
	return res
}

// Check is Validate followed by Err, for handlers.
func Check(s any) error {
	return Validate(s).Err()
}

// fieldPath strips the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// label returns the "label" tag for the failing field when it is a direct
// field of s, else the JSON path.
func label(s any, fe validator.FieldError) string {
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
		}
	}
	return fieldPath(fe)
}

func message(s any, fe validator.FieldError) string {
	name := label(s, fe)
	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return name + " is required."
	case "email":
		return "A valid email address is required."
	case "min":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return name + " must be at least " + fe.Param() + " characters."
		}
		return name + " must be at least " + fe.Param() + "."
	case "max":
		if fe.Kind() == reflect.String {
			return name + " must be at most " + fe.Param() + " characters."
		}
		if fe.Kind() == reflect.Slice {
			return name + " must have at most " + fe.Param() + " entries."
		}
		return name + " must be at most " + fe.Param() + "."
	case "gte":
		return name + " must be " + fe.Param() + " or more."
	case "oneof":
		return name + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
	case "lnglat":
		return name + " must be [longitude, latitude]."
	case "objectid":
		return name + " must be a valid id."
	case "ratingtag":
		return name + " contains an unknown tag."
	case "payment":
		return name + " must be cash, card, or pix."
	default:
		return name + " is invalid."
	}
}

// IsValidEmail reports whether s is a bare RFC 5322 address (no display name).
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// IsValidObjectID reports whether s is a 24-char hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
	"github.com/Shivanand-hulikatti/nsc-international/internal/repository"
)

var (
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when a caller is not authenticated.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a caller may not touch a resource.
	ErrForbidden = errors.New("forbidden")
	// ErrInactive is returned when a referenced record is switched off.
	ErrInactive = errors.New("inactive")
	// ErrInvalidCredentials is returned by Login for any bad email/password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCheckoutClosed is returned when a checkout can no longer be paid.
	ErrCheckoutClosed = errors.New("checkout is closed")
	// ErrPaymentIncomplete is returned when Stripe has not collected payment yet.
	ErrPaymentIncomplete = errors.New("payment not completed")
	// ErrRoomUnavailable is returned when a room has no stock left for the dates.
	ErrRoomUnavailable = errors.New("room unavailable for the selected dates")
	// ErrPaymentProvider wraps failures talking to Stripe.
	ErrPaymentProvider = errors.New("payment provider error")
	// ErrWebhookSignature is returned when a Stripe delivery fails verification.
	ErrWebhookSignature = errors.New("invalid webhook signature")
	// ErrMalformedWebhook is returned for a verified delivery that lacks the
	// object its type requires.
	ErrMalformedWebhook = errors.New("malformed webhook")
)

// ─── Validation ───────────────────────────────────────────────────────────────

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags of v and folds every failure into one
// ErrInvalidInput.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "uuid":
		return field + " must be a valid id"
	case "datetime":
		return field + " must be a date in YYYY-MM-DD format"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// parseDate parses a YYYY-MM-DD string. An empty string yields nil.
func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return nil, invalid("%s must be a date in YYYY-MM-DD format", field)
	}
	return &t, nil
}

// mustParseDate is parseDate for fields already checked by validateStruct.
func mustParseDate(field, s string) (time.Time, error) {
	t, err := parseDate(field, s)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return time.Time{}, invalid("%s is required", field)
	}
	return *t, nil
}

// refErr turns a dangling foreign key into a validation failure.
func refErr(err error) error {
	if errors.Is(err, repository.ErrInvalidReference) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return err
}

func ptr[T any](v T) *T { return &v }

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

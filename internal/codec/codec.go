// Package codec turns loosely shaped input (decoded JSON, legacy documents)
// into the typed entities of pkg/models, and back into storage documents.
// It is the only place permissive or legacy shapes are coerced.
package codec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/qri-io/jsonschema"

	"github.com/Matcry12/careervr/pkg/models"
)

// Error is a validation failure. Reason is the machine readable code handed
// back to callers.
type Error struct {
	Reason string
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input: %s (%s)", e.Reason, e.Detail)
}

func invalid(reason string) error { return &Error{Reason: reason} }

// Reason returns the reason code of a codec error.
func Reason(err error) (string, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Reason, true
	}
	return "", false
}

// Now is the clock used for defaulted timestamps.
var Now = func() time.Time { return time.Now().UTC() }

// Timestamp formats t the way every stored timestamp is written.
func Timestamp(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts RFC 3339 and the naive ISO layouts written by older
// deployments, which are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func mustSchema(src string) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(src), rs); err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return rs
}

// checkSchema returns the first schema violation of v, if any.
func checkSchema(ctx context.Context, rs *jsonschema.Schema, v any) (*jsonschema.KeyError, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode for schema: %w", err)
	}
	verrs, err := rs.ValidateBytes(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("schema validate: %w", err)
	}
	if len(verrs) == 0 {
		return nil, nil
	}
	return &verrs[0], nil
}

// toGeneric round-trips v through JSON so typed input and decoded JSON are
// handled the same way.
func toGeneric(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernameRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return models.IsCategory(fl.Field().String())
		})
		_ = v.RegisterValidation("report_reason", func(fl validator.FieldLevel) bool {
			return models.IsReportReason(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// validateStruct runs struct validation and maps the first failure to a
// reason code: missing_<field> for required fields, invalid_<field> else.
func validateStruct(s any) error {
	err := validatorInstance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &Error{Reason: "invalid_input", Detail: err.Error()}
	}
	fe := verrs[0]
	field := snake(fe.Field())
	if fe.Tag() == "required" {
		return &Error{Reason: "missing_" + field, Detail: fe.Error()}
	}
	return &Error{Reason: "invalid_" + field, Detail: fe.Error()}
}

// snake converts camelCase json names to snake_case reason fragments.
func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

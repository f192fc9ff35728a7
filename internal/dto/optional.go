package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Optional is a three-state patch field: absent (Set=false), explicitly
// null (Set && Null) or a value. Both JSON null and the string "null" decode
// as explicit null, so form clients that serialize a cleared field as "null"
// behave like JSON clients.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some builds an Optional holding v.
func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: v} }

// Null builds an explicitly cleared Optional.
func Null[T any]() Optional[T] { return Optional[T]{Set: true, Null: true} }

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`"null"`)) {
		o.Null = true
		return nil
	}
	// Empty string clears non-string fields (amounts, ids, dates).
	if bytes.Equal(trimmed, []byte(`""`)) {
		if _, isString := any(o.Value).(string); !isString {
			o.Null = true
			return nil
		}
	}
	return json.Unmarshal(trimmed, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// HasValue reports Set && !Null.
func (o Optional[T]) HasValue() bool { return o.Set && !o.Null }

// Ptr returns nil for null, a pointer to the value otherwise. Only
// meaningful when Set.
func (o Optional[T]) Ptr() *T {
	if o.Null {
		return nil
	}
	v := o.Value
	return &v
}

// ── Form decoding ─────────────────────────────────────────────────────────────
// Multipart requests carry every field as text. These helpers apply the same
// three-state rules as UnmarshalJSON to a single form key.

func formOptional[T any](form url.Values, key string, parse func(string) (T, error)) (Optional[T], error) {
	vals, ok := form[key]
	if !ok || len(vals) == 0 {
		return Optional[T]{}, nil
	}
	raw := strings.TrimSpace(vals[0])
	if raw == "null" || raw == "undefined" {
		return Null[T](), nil
	}
	var zero T
	if _, isString := any(zero).(string); !isString && raw == "" {
		return Null[T](), nil
	}
	v, err := parse(raw)
	if err != nil {
		return Optional[T]{}, fmt.Errorf("campo %s invalido: %w", key, err)
	}
	return Some(v), nil
}

func FormString(form url.Values, key string) Optional[string] {
	o, _ := formOptional(form, key, func(s string) (string, error) { return s, nil })
	return o
}

func FormInt(form url.Values, key string) (Optional[int], error) {
	return formOptional(form, key, strconv.Atoi)
}

func FormBool(form url.Values, key string) (Optional[bool], error) {
	return formOptional(form, key, strconv.ParseBool)
}

func FormDecimal(form url.Values, key string) (Optional[decimal.Decimal], error) {
	return formOptional(form, key, decimal.NewFromString)
}

func FormUUID(form url.Values, key string) (Optional[uuid.UUID], error) {
	return formOptional(form, key, uuid.Parse)
}

func FormDate(form url.Values, key string) (Optional[time.Time], error) {
	return formOptional(form, key, ParseDate)
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// Date is a time that also accepts plain YYYY-MM-DD in JSON.
type Date struct{ time.Time }

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("fecha invalida: %w", err)
	}
	t, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("fecha invalida: %q", s)
	}
	d.Time = t
	return nil
}

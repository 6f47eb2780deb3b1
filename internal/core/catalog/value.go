// Package catalog holds the typed, read-only record tables reports are computed over
package catalog

import (
	"strconv"
	"strings"
	"time"
)

// Kind tags the variant a Value holds
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindDate
)

// Value is a record field value: string, number, boolean, date or null.
// The zero Value is null.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
	t    time.Time
}

// Null returns the null value
func Null() Value { return Value{} }

// String returns a string value
func String(s string) Value { return Value{kind: KindString, s: s} }

// Number returns a number value
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Bool returns a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Date returns a date value normalized to UTC
func Date(t time.Time) Value { return Value{kind: KindDate, t: t.UTC()} }

// Kind reports which variant v holds
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Num returns the number payload
func (v Value) Num() (float64, bool) { return v.n, v.kind == KindNumber }

// Boolean returns the boolean payload
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Time returns the date payload
func (v Value) Time() (time.Time, bool) { return v.t, v.kind == KindDate }

// Text renders v for substring matching and display; null renders as ""
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDate:
		if v.t.Equal(v.t.Truncate(24 * time.Hour)) {
			return v.t.Format(time.DateOnly)
		}
		return v.t.Format(time.RFC3339)
	default:
		return ""
	}
}

// Key is a kind-qualified identity used for set membership and distinct counting
func (v Value) Key() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindDate:
		return "d:" + strconv.FormatInt(v.t.UnixNano(), 10)
	default:
		return string(rune('0'+v.kind)) + ":" + v.Text()
	}
}

// Equal reports whether a and b hold the same variant and payload; null equals nothing
func (v Value) Equal(o Value) bool {
	if v.kind == KindNull || v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindNumber:
		return v.n == o.n
	case KindBool:
		return v.b == o.b
	default:
		return v.t.Equal(o.t)
	}
}

// Compare orders two numbers or two dates; ok is false for any other pairing
func (v Value) Compare(o Value) (c int, ok bool) {
	switch {
	case v.kind == KindNumber && o.kind == KindNumber:
		switch {
		case v.n < o.n:
			return -1, true
		case v.n > o.n:
			return 1, true
		}
		return 0, true
	case v.kind == KindDate && o.kind == KindDate:
		return v.t.Compare(o.t), true
	}
	return 0, false
}

// Truthy coerces v to a boolean: booleans as-is, numbers by non-zero,
// strings "true/yes/1" and "false/no/0". ok is false when v has no boolean reading.
func (v Value) Truthy() (b bool, ok bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindNumber:
		return v.n != 0, true
	case KindString:
		return parseBool(v.s)
	}
	return false, false
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "on":
		return true, true
	case "false", "no", "n", "0", "off":
		return false, true
	}
	return false, false
}

// Any returns v as a plain Go value (string, float64, bool, time.Time or nil)
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return v.n
	case KindBool:
		return v.b
	case KindDate:
		return v.t
	}
	return nil
}

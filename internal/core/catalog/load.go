package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	perr "reportdash/internal/platform/errors"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Raw is untyped record data keyed by object name, as decoded from JSON or YAML
type Raw map[string][]map[string]any

var dateLayouts = []string{
	time.RFC3339Nano,
	time.DateOnly,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// newID mints ids for rows that arrive without one
var newID = uuid.NewString

// Load coerces raw rows into typed tables. Undeclared fields are dropped,
// rows without an id get a generated one and duplicate ids are rejected.
func Load(s *Schema, raw Raw) (*Catalog, error) {
	c := &Catalog{schema: s, tables: make(map[string]*Table, len(raw))}
	for object, rows := range raw {
		def, ok := s.Object(object)
		if !ok {
			return nil, perr.WithField(perr.InvalidArgf("catalog: unknown object %q", object), object)
		}
		t := &Table{def: def, records: make([]*Record, 0, len(rows)), byID: make(map[string]*Record, len(rows))}
		for i, row := range rows {
			rec, err := coerceRow(def, row)
			if err != nil {
				return nil, perr.WithField(err, fmt.Sprintf("%s[%d].%s", object, i, perr.FieldOf(err)))
			}
			if _, dup := t.byID[rec.id]; dup {
				return nil, perr.WithField(perr.InvalidArgf("catalog: duplicate id %q in %s", rec.id, object), fmt.Sprintf("%s[%d].id", object, i))
			}
			t.records = append(t.records, rec)
			t.byID[rec.id] = rec
		}
		c.tables[object] = t
	}
	return c, nil
}

// LoadFile reads a JSON or YAML document of the shape {object: [rows]}
func LoadFile(s *Schema, path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "catalog: read %s", path)
	}
	raw, err := DecodeRaw(b)
	if err != nil {
		return nil, err
	}
	return Load(s, raw)
}

// DecodeRaw parses record data; YAML is a superset of JSON so both are accepted
func DecodeRaw(b []byte) (Raw, error) {
	var raw Raw
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "catalog: invalid record document")
	}
	return raw, nil
}

func coerceRow(def *ObjectDef, row map[string]any) (*Record, error) {
	rec := &Record{object: def.Name, fields: make(map[string]Value, len(def.Fields))}
	id, err := coerceID(row[IDField])
	if err != nil {
		return nil, perr.WithField(err, IDField)
	}
	if id == "" {
		id = newID()
	}
	rec.id = id
	for _, f := range def.Fields {
		v, err := Coerce(f.Type, row[f.Name])
		if err != nil {
			return nil, perr.WithField(err, f.Name)
		}
		if !v.IsNull() {
			rec.fields[f.Name] = v
		}
	}
	return rec, nil
}

func coerceID(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case json.Number:
		return x.String(), nil
	}
	return "", perr.InvalidArgf("catalog: id must be a string or number, got %T", v)
}

// Coerce converts a decoded value to the typed form of t. nil and empty strings become null.
func Coerce(t FieldType, v any) (Value, error) {
	if v == nil {
		return Null(), nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" && t != TypeString {
		return Null(), nil
	}
	switch t {
	case TypeString:
		return coerceString(v)
	case TypeNumber, TypeCurrency:
		return coerceNumber(v)
	case TypeBoolean:
		return coerceBool(v)
	case TypeDate:
		return coerceDate(v)
	}
	return Null(), perr.InvalidArgf("catalog: unknown field type %q", t)
}

func coerceString(v any) (Value, error) {
	switch x := v.(type) {
	case string:
		return String(x), nil
	case bool:
		return String(strconv.FormatBool(x)), nil
	case time.Time:
		return String(Date(x).Text()), nil
	}
	n, err := coerceNumber(v)
	if err != nil {
		return Null(), perr.InvalidArgf("catalog: cannot read %T as string", v)
	}
	return String(n.Text()), nil
}

func coerceNumber(v any) (Value, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return Null(), perr.InvalidArgf("catalog: %q is not a number", x.String())
		}
		f = p
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return Null(), perr.InvalidArgf("catalog: %q is not a number", x)
		}
		f = p
	default:
		return Null(), perr.InvalidArgf("catalog: cannot read %T as number", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null(), perr.InvalidArgf("catalog: non-finite number")
	}
	return Number(f), nil
}

func coerceBool(v any) (Value, error) {
	switch x := v.(type) {
	case bool:
		return Bool(x), nil
	case string:
		if b, ok := parseBool(x); ok {
			return Bool(b), nil
		}
		return Null(), perr.InvalidArgf("catalog: %q is not a boolean", x)
	}
	n, err := coerceNumber(v)
	if err != nil {
		return Null(), perr.InvalidArgf("catalog: cannot read %T as boolean", v)
	}
	b, _ := n.Truthy()
	return Bool(b), nil
}

func coerceDate(v any) (Value, error) {
	switch x := v.(type) {
	case time.Time:
		return Date(x), nil
	case string:
		t, err := ParseDate(x)
		if err != nil {
			return Null(), err
		}
		return Date(t), nil
	}
	return Null(), perr.InvalidArgf("catalog: cannot read %T as date", v)
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates, returning UTC
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, perr.InvalidArgf("catalog: %q is not a date", s)
}

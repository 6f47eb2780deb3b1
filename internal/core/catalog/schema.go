package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"sync"

	perr "reportdash/internal/platform/errors"

	"gopkg.in/yaml.v3"
)

//go:embed schema.yaml
var embeddedSchema []byte

// FieldType is the declared type of a field
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeNumber   FieldType = "number"
	TypeCurrency FieldType = "currency"
	TypeBoolean  FieldType = "boolean"
	TypeDate     FieldType = "date"
)

// Valid reports whether t is a known field type
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeCurrency, TypeBoolean, TypeDate:
		return true
	}
	return false
}

// Numeric reports whether values of t are numbers
func (t FieldType) Numeric() bool { return t == TypeNumber || t == TypeCurrency }

// Ordered reports whether values of t support greater/less/between
func (t FieldType) Ordered() bool { return t.Numeric() || t == TypeDate }

// IDField is the implicit string field every object has
const IDField = "id"

// FieldRef names a field on an object
type FieldRef struct {
	Object string `json:"object" yaml:"object"`
	Field  string `json:"field"  yaml:"field"`
}

func (r FieldRef) String() string { return r.Object + "." + r.Field }

// Field is one declared column
type Field struct {
	Name  string    `yaml:"name"  json:"name"`
	Type  FieldType `yaml:"type"  json:"type"`
	Label string    `yaml:"label" json:"label,omitempty"`
}

// Relation says the owning object's Field holds the id of a Target record
type Relation struct {
	Name   string `yaml:"name"   json:"name"`
	Field  string `yaml:"field"  json:"field"`
	Target string `yaml:"target" json:"target"`
}

// ObjectDef declares one business object
type ObjectDef struct {
	Name      string     `yaml:"name"       json:"name"`
	Label     string     `yaml:"label"      json:"label,omitempty"`
	TimeField string     `yaml:"time_field" json:"timeField"`
	Fields    []Field    `yaml:"fields"     json:"fields"`
	Relations []Relation `yaml:"relations"  json:"relations,omitempty"`

	fields map[string]Field
}

// Field looks up a declared field; "id" always resolves
func (o *ObjectDef) Field(name string) (Field, bool) {
	if name == IDField {
		return Field{Name: IDField, Type: TypeString, Label: "ID"}, true
	}
	f, ok := o.fields[name]
	return f, ok
}

// RelationTo returns the relation from o to target, if one is declared
func (o *ObjectDef) RelationTo(target string) (Relation, bool) {
	for _, r := range o.Relations {
		if r.Target == target {
			return r, true
		}
	}
	return Relation{}, false
}

// Schema is the immutable set of object declarations
type Schema struct {
	objects map[string]*ObjectDef
	order   []string
}

type schemaDoc struct {
	Objects []*ObjectDef `yaml:"objects"`
}

// ParseSchema decodes and checks a YAML schema document
func ParseSchema(b []byte) (*Schema, error) {
	var doc schemaDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "schema: invalid yaml")
	}
	s := &Schema{objects: make(map[string]*ObjectDef, len(doc.Objects))}
	for i, o := range doc.Objects {
		if o == nil || o.Name == "" {
			return nil, perr.InvalidArgf("schema: objects[%d] has no name", i)
		}
		if _, dup := s.objects[o.Name]; dup {
			return nil, perr.InvalidArgf("schema: duplicate object %q", o.Name)
		}
		o.fields = make(map[string]Field, len(o.Fields))
		for _, f := range o.Fields {
			if !f.Type.Valid() {
				return nil, perr.InvalidArgf("schema: %s.%s has unknown type %q", o.Name, f.Name, f.Type)
			}
			if f.Name == "" || f.Name == IDField {
				return nil, perr.InvalidArgf("schema: %s declares reserved or empty field name %q", o.Name, f.Name)
			}
			o.fields[f.Name] = f
		}
		tf, ok := o.fields[o.TimeField]
		if !ok || tf.Type != TypeDate {
			return nil, perr.InvalidArgf("schema: %s.time_field %q must name a date field", o.Name, o.TimeField)
		}
		s.objects[o.Name] = o
		s.order = append(s.order, o.Name)
	}
	for _, o := range doc.Objects {
		for _, r := range o.Relations {
			if _, ok := o.Field(r.Field); !ok {
				return nil, perr.InvalidArgf("schema: relation %s.%s uses undeclared field %q", o.Name, r.Name, r.Field)
			}
			if _, ok := s.objects[r.Target]; !ok {
				return nil, perr.InvalidArgf("schema: relation %s.%s targets unknown object %q", o.Name, r.Name, r.Target)
			}
		}
	}
	return s, nil
}

// LoadSchemaFile parses the schema at path
func LoadSchemaFile(path string) (*Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return ParseSchema(b)
}

var (
	defaultOnce   sync.Once
	defaultSchema *Schema
)

// DefaultSchema returns the embedded customers/subscriptions/invoices/charges/payments schema
func DefaultSchema() *Schema {
	defaultOnce.Do(func() {
		s, err := ParseSchema(embeddedSchema)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded schema: %v", err))
		}
		defaultSchema = s
	})
	return defaultSchema
}

// Object returns a declared object
func (s *Schema) Object(name string) (*ObjectDef, bool) {
	o, ok := s.objects[name]
	return o, ok
}

// Objects returns declarations in document order
func (s *Schema) Objects() []*ObjectDef {
	out := make([]*ObjectDef, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.objects[n])
	}
	return out
}

// Names returns object names sorted
func (s *Schema) Names() []string {
	out := append([]string(nil), s.order...)
	sort.Strings(out)
	return out
}

// Field resolves ref or returns an invalid argument error
func (s *Schema) Field(ref FieldRef) (Field, error) {
	o, ok := s.objects[ref.Object]
	if !ok {
		return Field{}, perr.InvalidArgf("unknown object %q", ref.Object)
	}
	f, ok := o.Field(ref.Field)
	if !ok {
		return Field{}, perr.InvalidArgf("unknown field %q on %s", ref.Field, ref.Object)
	}
	return f, nil
}

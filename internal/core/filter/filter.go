// Package filter compiles filter conditions into predicates over catalog records.
// Compilation resolves fields and coerces comparison values once, so evaluation
// never fails.
package filter

import (
	"fmt"
	"strings"

	"reportdash/internal/core/catalog"
	perr "reportdash/internal/platform/errors"
)

// Operator is a comparison applied to one field
type Operator string

const (
	Equals      Operator = "equals"
	NotEquals   Operator = "not_equals"
	GreaterThan Operator = "greater_than"
	LessThan    Operator = "less_than"
	Between     Operator = "between"
	Contains    Operator = "contains"
	In          Operator = "in"
	IsTrue      Operator = "is_true"
	IsFalse     Operator = "is_false"
)

// Operators lists every supported operator
var Operators = []Operator{Equals, NotEquals, GreaterThan, LessThan, Between, Contains, In, IsTrue, IsFalse}

// Logic joins the conditions of a group
type Logic string

const (
	And Logic = "AND"
	Or  Logic = "OR"
)

// Condition tests one field. Value is a scalar, a two-element list for
// between, a list for in, and absent for is_true/is_false.
type Condition struct {
	Field    catalog.FieldRef `json:"field"`
	Operator Operator         `json:"operator"`
	Value    any              `json:"value,omitempty"`
}

// Group is a list of conditions joined by one logic
type Group struct {
	Logic      Logic       `json:"logic,omitempty"`
	Conditions []Condition `json:"conditions"`
}

// Option tunes compilation
type Option func(*options)

type options struct {
	skipUnrelated bool
}

// SkipUnrelated drops conditions on objects the record object cannot reach
// instead of failing. Used for report-wide filters shared by blocks over
// different objects.
func SkipUnrelated() Option { return func(o *options) { o.skipUnrelated = true } }

// Lookup resolves a related record
type Lookup interface {
	Lookup(object, id string) (*catalog.Record, bool)
}

// Predicate is a compiled group. The nil Predicate matches every record.
type Predicate struct {
	or    bool
	conds []compiled
}

type compiled struct {
	ref  catalog.FieldRef
	hop  *catalog.Relation
	test test
}

// Compile resolves g against records of object from. Error fields are
// relative to the group, e.g. "conditions[1].value".
func Compile(s *catalog.Schema, from string, g Group, opts ...Option) (*Predicate, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	def, ok := s.Object(from)
	if !ok {
		return nil, perr.InvalidArgf("unknown object %q", from)
	}
	p := &Predicate{}
	switch Logic(strings.ToUpper(string(g.Logic))) {
	case And, "":
	case Or:
		p.or = true
	default:
		return nil, perr.WithField(perr.InvalidArgf("unknown filter logic %q", g.Logic), "logic")
	}
	for i, c := range g.Conditions {
		path := fmt.Sprintf("conditions[%d]", i)
		f, err := s.Field(c.Field)
		if err != nil {
			return nil, perr.WithField(err, path+".field")
		}
		cc := compiled{ref: c.Field}
		if c.Field.Object != from {
			rel, ok := def.RelationTo(c.Field.Object)
			if !ok {
				if o.skipUnrelated {
					continue
				}
				return nil, perr.WithField(perr.InvalidArgf("no relation from %s to %s", from, c.Field.Object), path+".field")
			}
			cc.hop = &rel
		}
		t, err := compileTest(f.Type, c)
		if err != nil {
			if perr.FieldOf(err) == "" {
				err = perr.WithField(err, path+".value")
			} else {
				err = perr.WithField(err, path+"."+perr.FieldOf(err))
			}
			return nil, err
		}
		cc.test = t
		p.conds = append(p.conds, cc)
	}
	if len(p.conds) == 0 {
		return nil, nil
	}
	return p, nil
}

// Len is the number of active conditions
func (p *Predicate) Len() int {
	if p == nil {
		return 0
	}
	return len(p.conds)
}

// Match evaluates the predicate against rec, following one relation hop
// through lk where a condition targets a related object
func (p *Predicate) Match(lk Lookup, rec *catalog.Record) bool {
	if p == nil {
		return true
	}
	for _, c := range p.conds {
		ok := c.test.match(c.value(lk, rec))
		if p.or && ok {
			return true
		}
		if !p.or && !ok {
			return false
		}
	}
	return !p.or
}

func (c compiled) value(lk Lookup, rec *catalog.Record) catalog.Value {
	if c.hop == nil {
		return rec.Get(c.ref.Field)
	}
	fk := rec.Get(c.hop.Field)
	if fk.IsNull() || lk == nil {
		return catalog.Null()
	}
	rel, ok := lk.Lookup(c.hop.Target, fk.Text())
	if !ok {
		return catalog.Null()
	}
	return rel.Get(c.ref.Field)
}

// All combines predicates with AND, skipping nils
func All(ps ...*Predicate) func(Lookup, *catalog.Record) bool {
	live := make([]*Predicate, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			live = append(live, p)
		}
	}
	return func(lk Lookup, rec *catalog.Record) bool {
		for _, p := range live {
			if !p.Match(lk, rec) {
				return false
			}
		}
		return true
	}
}

package filter

import (
	"strings"

	"reportdash/internal/core/catalog"
	perr "reportdash/internal/platform/errors"
)

// test is the closed set of compiled comparisons. Null never matches.
type test interface {
	match(v catalog.Value) bool
}

type eqTest struct {
	want   catalog.Value
	negate bool
}

func (t eqTest) match(v catalog.Value) bool {
	if v.IsNull() {
		return false
	}
	return v.Equal(t.want) != t.negate
}

type cmpTest struct {
	bound catalog.Value
	sign  int
}

func (t cmpTest) match(v catalog.Value) bool {
	c, ok := v.Compare(t.bound)
	return ok && c == t.sign
}

type betweenTest struct {
	lo, hi catalog.Value
}

func (t betweenTest) match(v catalog.Value) bool {
	lo, ok1 := v.Compare(t.lo)
	hi, ok2 := v.Compare(t.hi)
	return ok1 && ok2 && lo >= 0 && hi <= 0
}

type containsTest struct {
	needle string
}

func (t containsTest) match(v catalog.Value) bool {
	if v.IsNull() {
		return false
	}
	return strings.Contains(Fold(v.Text()), t.needle)
}

type inTest struct {
	set map[string]struct{}
}

func (t inTest) match(v catalog.Value) bool {
	if v.IsNull() {
		return false
	}
	_, ok := t.set[v.Key()]
	return ok
}

type boolTest struct {
	want bool
}

func (t boolTest) match(v catalog.Value) bool {
	b, ok := v.Truthy()
	return ok && b == t.want
}

func compileTest(ft catalog.FieldType, c Condition) (test, error) {
	switch c.Operator {
	case Equals, NotEquals:
		v, err := scalar(ft, c.Value)
		if err != nil {
			return nil, err
		}
		return eqTest{want: v, negate: c.Operator == NotEquals}, nil

	case GreaterThan, LessThan:
		if !ft.Ordered() {
			return nil, perr.WithField(perr.InvalidArgf("%s needs a number, currency or date field, %s is %s", c.Operator, c.Field, ft), "operator")
		}
		v, err := scalar(ft, c.Value)
		if err != nil {
			return nil, err
		}
		sign := 1
		if c.Operator == LessThan {
			sign = -1
		}
		return cmpTest{bound: v, sign: sign}, nil

	case Between:
		if !ft.Ordered() {
			return nil, perr.WithField(perr.InvalidArgf("between needs a number, currency or date field, %s is %s", c.Field, ft), "operator")
		}
		xs, ok := c.Value.([]any)
		if !ok || len(xs) != 2 {
			return nil, perr.InvalidArgf("between needs a [low, high] pair")
		}
		lo, err := scalar(ft, xs[0])
		if err != nil {
			return nil, err
		}
		hi, err := scalar(ft, xs[1])
		if err != nil {
			return nil, err
		}
		if d, _ := lo.Compare(hi); d > 0 {
			return nil, perr.InvalidArgf("between low bound is above high bound")
		}
		return betweenTest{lo: lo, hi: hi}, nil

	case Contains:
		if c.Value == nil {
			return nil, perr.InvalidArgf("contains needs a value")
		}
		s, err := catalog.Coerce(catalog.TypeString, c.Value)
		if err != nil {
			return nil, perr.InvalidArgf("contains needs a text value")
		}
		return containsTest{needle: Fold(s.Text())}, nil

	case In:
		xs, ok := c.Value.([]any)
		if !ok || len(xs) == 0 {
			return nil, perr.InvalidArgf("in needs a non-empty list of values")
		}
		set := make(map[string]struct{}, len(xs))
		for _, x := range xs {
			v, err := scalar(ft, x)
			if err != nil {
				return nil, err
			}
			set[v.Key()] = struct{}{}
		}
		return inTest{set: set}, nil

	case IsTrue, IsFalse:
		if c.Value != nil {
			return nil, perr.InvalidArgf("%s takes no value", c.Operator)
		}
		return boolTest{want: c.Operator == IsTrue}, nil
	}
	return nil, perr.WithField(perr.InvalidArgf("unknown operator %q", c.Operator), "operator")
}

// scalar coerces a comparison value to the field's type
func scalar(ft catalog.FieldType, raw any) (catalog.Value, error) {
	if _, isList := raw.([]any); isList {
		return catalog.Null(), perr.InvalidArgf("expected a single value, got a list")
	}
	v, err := catalog.Coerce(ft, raw)
	if err != nil {
		return catalog.Null(), perr.InvalidArgf("value does not fit a %s field: %s", ft, perr.WireFrom(err).Message)
	}
	if v.IsNull() {
		return catalog.Null(), perr.InvalidArgf("value is required")
	}
	return v, nil
}

package metrics

import (
	"fmt"
	"math"

	perr "reportdash/internal/platform/errors"
)

type nullReason uint8

const (
	notNull nullReason = iota
	missingLeft
	missingRight
	divByZero
	nonFinite
)

// arith applies op to two optional values. A nil result always carries a reason.
func arith(op ArithOp, l, r *float64) (*float64, nullReason) {
	switch {
	case l == nil:
		return nil, missingLeft
	case r == nil:
		return nil, missingRight
	}
	var v float64
	switch op {
	case Add:
		v = *l + *r
	case Subtract:
		v = *l - *r
	case Multiply:
		v = *l * *r
	case Divide:
		if *r == 0 {
			return nil, divByZero
		}
		v = *l / *r
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, nonFinite
	}
	return &v, notNull
}

// combine applies a calculation step to two operand results of the same mode
func combine(c CalculationStep, l, r MetricResult, mode Mode) (MetricResult, error) {
	unit, unitNote := inferUnit(c, l.UnitType, r.UnitType)
	out := MetricResult{UnitType: unit, Kind: KindDerived}
	notes := make([]string, 0, len(l.Notes)+len(r.Notes)+2)
	notes = append(notes, l.Notes...)
	notes = append(notes, r.Notes...)
	if unitNote != "" {
		notes = append(notes, unitNote)
	}

	if mode != Series {
		v, why := arith(c.Operator, l.Value, r.Value)
		out.Value = v
		if why != notNull {
			notes = append(notes, describe(why, c))
		}
		out.Notes = compact(notes)
		return out, nil
	}

	if len(l.Series) != len(r.Series) {
		return MetricResult{}, perr.WithField(perr.InvalidArgf("operands %q and %q have %d and %d points",
			c.LeftOperand, c.RightOperand, len(l.Series), len(r.Series)), "calculation")
	}
	out.Series = make([]SeriesPoint, len(l.Series))
	counts := map[nullReason]int{}
	for i := range l.Series {
		if l.Series[i].Date != r.Series[i].Date {
			return MetricResult{}, perr.WithField(perr.InvalidArgf("operand buckets are misaligned at %s and %s",
				l.Series[i].Date, r.Series[i].Date), "calculation")
		}
		v, why := arith(c.Operator, l.Series[i].Value, r.Series[i].Value)
		if why != notNull {
			counts[why]++
		}
		out.Series[i] = SeriesPoint{Date: l.Series[i].Date, Value: v}
	}
	for _, why := range []nullReason{missingLeft, missingRight, divByZero, nonFinite} {
		if n := counts[why]; n > 0 {
			notes = append(notes, fmt.Sprintf("%s in %d of %d points", describe(why, c), n, len(out.Series)))
		}
	}
	out.Notes = compact(notes)
	return out, nil
}

func describe(why nullReason, c CalculationStep) string {
	switch why {
	case missingLeft:
		return fmt.Sprintf("%q has no value", c.LeftOperand)
	case missingRight:
		return fmt.Sprintf("%q has no value", c.RightOperand)
	case divByZero:
		return fmt.Sprintf("division by zero: %q is 0", c.RightOperand)
	case nonFinite:
		return "result is not a finite number"
	}
	return ""
}

func compact(notes []string) []string {
	if len(notes) == 0 {
		return nil
	}
	return notes
}

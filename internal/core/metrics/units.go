package metrics

import "fmt"

// inferUnit picks the unit of a calculation result. An explicit result unit
// wins. The note is set when add or subtract mixes units.
func inferUnit(c CalculationStep, l, r UnitType) (UnitType, string) {
	if c.ResultUnitType != "" {
		return c.ResultUnitType, ""
	}
	switch c.Operator {
	case Divide:
		switch {
		case l == r && (l == UnitCount || l == UnitCurrency):
			return UnitRate, ""
		case l == UnitCurrency && r == UnitCount:
			// deliberate refinement of count/currency -> rate: an amount per
			// record (average invoice, revenue per customer) stays currency
			return UnitCurrency, ""
		}
		return UnitRate, ""
	case Multiply:
		switch {
		case l == UnitCount || l == UnitRate:
			return r, ""
		case r == UnitCount || r == UnitRate:
			return l, ""
		}
		return l, ""
	}
	if l == r {
		return l, ""
	}
	return UnitCount, fmt.Sprintf("unit mismatch: %s %s %s, result shown as %s", l, c.Operator, r, UnitCount)
}

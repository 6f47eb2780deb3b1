package metrics

import (
	"sort"

	"reportdash/internal/core/catalog"

	"github.com/shopspring/decimal"
)

// currencyPlaces is the minor-unit precision applied to currency avg and median
const currencyPlaces = 2

// aggregator reduces a record set to one value. Implementations are the
// closed set below; a numeric op without a source field cannot be built.
type aggregator interface {
	aggregate(recs []*catalog.Record) *float64
	// empty is the value of a bucket with no records
	empty() *float64
}

type countAgg struct{}

func (countAgg) aggregate(recs []*catalog.Record) *float64 { return ptr(float64(len(recs))) }
func (countAgg) empty() *float64                           { return ptr(0) }

// distinctAgg counts distinct non-null values of field, or distinct ids when field is empty
type distinctAgg struct {
	field string
}

func (a distinctAgg) aggregate(recs []*catalog.Record) *float64 {
	seen := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		v := r.Get(catalog.IDField)
		if a.field != "" {
			v = r.Get(a.field)
		}
		if v.IsNull() {
			continue
		}
		seen[v.Key()] = struct{}{}
	}
	return ptr(float64(len(seen)))
}

func (distinctAgg) empty() *float64 { return ptr(0) }

// numericAgg applies sum, avg, median or mode to the numeric values of field
type numericAgg struct {
	op       Op
	field    string
	currency bool
}

func (numericAgg) empty() *float64 { return nil }

func (a numericAgg) aggregate(recs []*catalog.Record) *float64 {
	xs := make([]float64, 0, len(recs))
	for _, r := range recs {
		if n, ok := r.Get(a.field).Num(); ok {
			xs = append(xs, n)
		}
	}
	if len(xs) == 0 {
		return nil
	}
	switch a.op {
	case OpSum:
		return ptr(a.sum(xs))
	case OpAvg:
		if a.currency {
			avg := sumDecimal(xs).Div(decimal.NewFromInt(int64(len(xs))))
			return ptr(avg.Round(currencyPlaces).InexactFloat64())
		}
		return ptr(a.sum(xs) / float64(len(xs)))
	case OpMedian:
		return ptr(a.median(xs))
	case OpMode:
		return ptr(mode(xs))
	}
	return nil
}

func (a numericAgg) sum(xs []float64) float64 {
	if a.currency {
		return sumDecimal(xs).InexactFloat64()
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

func (a numericAgg) median(xs []float64) float64 {
	sort.Float64s(xs)
	mid := len(xs) / 2
	if !a.currency {
		if len(xs)%2 == 1 {
			return xs[mid]
		}
		return (xs[mid-1] + xs[mid]) / 2
	}
	m := decimal.NewFromFloat(xs[mid])
	if len(xs)%2 == 0 {
		m = decimal.NewFromFloat(xs[mid-1]).Add(m).Div(decimal.NewFromInt(2))
	}
	return m.Round(currencyPlaces).InexactFloat64()
}

func sumDecimal(xs []float64) decimal.Decimal {
	s := decimal.Zero
	for _, x := range xs {
		s = s.Add(decimal.NewFromFloat(x))
	}
	return s
}

// mode returns the most frequent value; ties go to the lowest value
func mode(xs []float64) float64 {
	freq := make(map[float64]int, len(xs))
	for _, x := range xs {
		freq[x]++
	}
	best, bestN := 0.0, 0
	for x, n := range freq {
		if n > bestN || (n == bestN && x < best) {
			best, bestN = x, n
		}
	}
	return best
}

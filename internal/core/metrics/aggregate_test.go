package metrics

import (
	"testing"

	"reportdash/internal/core/catalog"
	kit "reportdash/internal/platform/testkit"
)

func recs(field string, vals ...any) []*catalog.Record {
	out := make([]*catalog.Record, len(vals))
	for i, v := range vals {
		fields := map[string]catalog.Value{}
		switch x := v.(type) {
		case float64:
			fields[field] = catalog.Number(x)
		case int:
			fields[field] = catalog.Number(float64(x))
		case string:
			fields[field] = catalog.String(x)
		}
		out[i] = catalog.NewRecord("t", string(rune('a'+i)), fields)
	}
	return out
}

func TestNumericAgg(t *testing.T) {
	cases := []struct {
		name     string
		op       Op
		currency bool
		vals     []any
		want     float64
	}{
		{"sum skips null and text", OpSum, false, []any{1, nil, 2.5, "x"}, 3.5},
		{"avg excludes missing values", OpAvg, false, []any{2, nil, 4}, 3},
		{"median odd", OpMedian, false, []any{9, 1, 5}, 5},
		{"median even", OpMedian, false, []any{1, 2}, 1.5},
		{"mode", OpMode, false, []any{2, 7, 7, 3}, 7},
		{"mode tie goes to lowest", OpMode, false, []any{3, 1, 3, 1, 2}, 1},
		{"currency sum is exact", OpSum, true, []any{0.1, 0.2}, 0.3},
		{"currency avg rounds to cents", OpAvg, true, []any{10.0, 10.0, 10.01}, 10.0},
		{"currency avg rounds half away from zero", OpAvg, true, []any{0.01, 0.02}, 0.02},
		{"currency median rounds half away from zero", OpMedian, true, []any{1.0, 1.01}, 1.01},
		{"negative currency median rounds away from zero", OpMedian, true, []any{-1.0, -1.01}, -1.01},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := numericAgg{op: tc.op, field: "v", currency: tc.currency}
			kit.MustValue(t, a.aggregate(recs("v", tc.vals...)), tc.want)
		})
	}
}

func TestNumericAgg_NoValuesIsNull(t *testing.T) {
	a := numericAgg{op: OpAvg, field: "v"}
	kit.MustNull(t, a.aggregate(recs("v", nil, "x")))
	kit.MustNull(t, a.empty())
}

func TestCountAggs(t *testing.T) {
	rs := recs("v", "a", "b", "a", nil)
	kit.MustValue(t, countAgg{}.aggregate(rs), 4)
	kit.MustValue(t, distinctAgg{field: "v"}.aggregate(rs), 2)
	kit.MustValue(t, distinctAgg{}.aggregate(rs), 4)
	kit.MustValue(t, countAgg{}.empty(), 0)
	kit.MustValue(t, distinctAgg{}.empty(), 0)
}

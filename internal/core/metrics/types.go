// Package metrics evaluates report definitions over a catalog: metric blocks
// aggregate filtered records into scalars or time series and an optional
// calculation step combines two blocks into a derived metric.
package metrics

import (
	"encoding/json"
	"time"

	"reportdash/internal/core/bucket"
	"reportdash/internal/core/catalog"
	"reportdash/internal/core/filter"
	perr "reportdash/internal/platform/errors"
)

// Op is the aggregation applied to a block's records
type Op string

const (
	OpSum           Op = "sum"
	OpAvg           Op = "avg"
	OpMedian        Op = "median"
	OpMode          Op = "mode"
	OpCount         Op = "count"
	OpDistinctCount Op = "distinct_count"
)

// PeriodType says how records inside one period are reduced
type PeriodType string

const (
	SumOverPeriod     PeriodType = "sum_over_period"
	AverageOverPeriod PeriodType = "average_over_period"
	Latest            PeriodType = "latest"
	First             PeriodType = "first"
)

// UnitType is the display unit of a result
type UnitType string

const (
	UnitCurrency UnitType = "currency"
	UnitCount    UnitType = "count"
	UnitRate     UnitType = "rate"
	UnitDate     UnitType = "date"
)

// Kind classifies a result: flows accumulate, snapshots are point-in-time,
// derived results come from a calculation
type Kind string

const (
	KindFlow     Kind = "flow"
	KindSnapshot Kind = "snapshot"
	KindDerived  Kind = "derived"
)

// Mode selects a single scalar or one point per bucket
type Mode string

const (
	Scalar Mode = "scalar"
	Series Mode = "series"
)

// ArithOp combines two block results
type ArithOp string

const (
	Add      ArithOp = "add"
	Subtract ArithOp = "subtract"
	Multiply ArithOp = "multiply"
	Divide   ArithOp = "divide"
)

// MaxGroupValues caps the number of group-by values per request
const MaxGroupValues = 10

// MetricBlock is one aggregation over one object
type MetricBlock struct {
	ID       string             `json:"id"`
	Name     string             `json:"name,omitempty"`
	Object   string             `json:"object,omitempty"`
	Source   *catalog.FieldRef  `json:"source,omitempty"`
	Op       Op                 `json:"op"`
	Type     PeriodType         `json:"type"`
	Filters  []filter.Condition `json:"filters,omitempty"`
	UnitType UnitType           `json:"unitType,omitempty"`
}

// CalculationStep is one binary operation over two block ids
type CalculationStep struct {
	Operator       ArithOp  `json:"operator"`
	LeftOperand    string   `json:"leftOperand"`
	RightOperand   string   `json:"rightOperand"`
	ResultUnitType UnitType `json:"resultUnitType,omitempty"`
}

// MetricFormula is an ordered list of blocks plus an optional calculation
type MetricFormula struct {
	Name         string           `json:"name,omitempty"`
	Blocks       []MetricBlock    `json:"blocks"`
	Calculation  *CalculationStep `json:"calculation,omitempty"`
	ExposeBlocks []string         `json:"exposeBlocks,omitempty"`
}

// Range is the inclusive date range a request covers
type Range struct {
	Start       time.Time
	End         time.Time
	Granularity bucket.Granularity
}

type rangeWire struct {
	Start       string             `json:"start"`
	End         string             `json:"end"`
	Granularity bucket.Granularity `json:"granularity,omitempty"`
}

// UnmarshalJSON accepts YYYY-MM-DD or RFC 3339 bounds
func (r *Range) UnmarshalJSON(b []byte) error {
	var w rangeWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	start, err := catalog.ParseDate(w.Start)
	if err != nil {
		return perr.WithField(err, "range.start")
	}
	end, err := catalog.ParseDate(w.End)
	if err != nil {
		return perr.WithField(err, "range.end")
	}
	*r = Range{Start: start, End: end, Granularity: w.Granularity}
	return nil
}

// MarshalJSON renders bounds as dates
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal(rangeWire{
		Start:       r.Start.UTC().Format(time.DateOnly),
		End:         r.End.UTC().Format(time.DateOnly),
		Granularity: r.Granularity,
	})
}

// GroupBy splits the result by up to MaxGroupValues values of one field
type GroupBy struct {
	Field  catalog.FieldRef `json:"field"`
	Values []any            `json:"values"`
}

// Request is one computation
type Request struct {
	Formula *MetricFormula `json:"formula,omitempty"`
	Metric  *MetricDef     `json:"metric,omitempty"`
	Range   Range          `json:"range"`
	Mode    Mode           `json:"mode,omitempty"`
	Filters *filter.Group  `json:"filters,omitempty"`
	GroupBy *GroupBy       `json:"groupBy,omitempty"`
}

// SeriesPoint is one bucket's value; Value is nil when the bucket has no data
type SeriesPoint struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// MetricResult is the value of a block or a formula
type MetricResult struct {
	Value    *float64      `json:"value"`
	Series   []SeriesPoint `json:"series"`
	UnitType UnitType      `json:"unitType,omitempty"`
	Kind     Kind          `json:"kind,omitempty"`
	Notes    []string      `json:"notes,omitempty"`
}

// BlockResult is an exposed block's own result
type BlockResult struct {
	BlockID   string `json:"blockId"`
	BlockName string `json:"blockName,omitempty"`
	MetricResult
}

// GroupResult is the computation restricted to one group-by value
type GroupResult struct {
	Value  any           `json:"value"`
	Label  string        `json:"label"`
	Result MetricResult  `json:"result"`
	Blocks []BlockResult `json:"blocks,omitempty"`
}

// Output is everything one request produces
type Output struct {
	Result MetricResult  `json:"result"`
	Blocks []BlockResult `json:"blocks,omitempty"`
	Groups []GroupResult `json:"groups,omitempty"`
}

func ptr(f float64) *float64 { return &f }

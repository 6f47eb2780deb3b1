// Package domain holds DTOs for reports http and service contracts
package domain

import (
	"reportdash/internal/core/bucket"
	"reportdash/internal/core/catalog"
	"reportdash/internal/core/filter"
	"reportdash/internal/core/metrics"
	"reportdash/internal/core/taxonomy"
	perr "reportdash/internal/platform/errors"
)

// Dates are YYYY-MM-DD and interpreted in UTC

// RangeIn is the requested window
type RangeIn struct {
	Start       string `json:"start" validate:"required,isodate" example:"2024-01-01"`
	End         string `json:"end" validate:"required,isodate" example:"2024-03-31"`
	Granularity string `json:"granularity,omitempty" validate:"omitempty,oneof=day week month quarter year" example:"month"`
}

// Range parses the window
func (r RangeIn) Range() (metrics.Range, error) {
	start, err := catalog.ParseDate(r.Start)
	if err != nil {
		return metrics.Range{}, perr.WithField(perr.Validationf("range.start must be a date"), "range.start")
	}
	end, err := catalog.ParseDate(r.End)
	if err != nil {
		return metrics.Range{}, perr.WithField(perr.Validationf("range.end must be a date"), "range.end")
	}
	return metrics.Range{Start: start, End: end, Granularity: bucket.Granularity(r.Granularity)}, nil
}

// ComputeInput is an ad-hoc computation
type ComputeInput struct {
	Formula *metrics.MetricFormula `json:"formula,omitempty"`
	Metric  *metrics.MetricDef     `json:"metric,omitempty"`
	Range   RangeIn                `json:"range"`
	Mode    string                 `json:"mode,omitempty" validate:"omitempty,oneof=scalar series" example:"series"`
	Filters *filter.Group          `json:"filters,omitempty"`
	GroupBy *metrics.GroupBy       `json:"groupBy,omitempty"`
}

// Request converts the input into an engine request
func (in ComputeInput) Request() (metrics.Request, error) {
	rng, err := in.Range.Range()
	if err != nil {
		return metrics.Request{}, err
	}
	return metrics.Request{
		Formula: in.Formula,
		Metric:  in.Metric,
		Range:   rng,
		Mode:    metrics.Mode(in.Mode),
		Filters: in.Filters,
		GroupBy: in.GroupBy,
	}, nil
}

// SavedInput runs a saved report over a window; empty granularity and mode
// fall back to the report's defaults
type SavedInput struct {
	Range   RangeIn          `json:"range"`
	Mode    string           `json:"mode,omitempty" validate:"omitempty,oneof=scalar series" example:"scalar"`
	Filters *filter.Group    `json:"filters,omitempty"`
	GroupBy *metrics.GroupBy `json:"groupBy,omitempty"`
}

// ComputeOutput is one computation with its provenance
type ComputeOutput struct {
	ComputationID string         `json:"computationId" example:"4b9a3c4e-3f5d-4c1e-9a8e-2d7c1f0b6a21"`
	Report        string         `json:"report,omitempty" example:"blocked-payment-rate"`
	Name          string         `json:"name,omitempty" example:"Blocked payment rate"`
	Range         metrics.Range  `json:"range"`
	Mode          metrics.Mode   `json:"mode" example:"scalar"`
	Records       map[string]int `json:"records"`
	ElapsedMs     int64          `json:"elapsedMs" example:"3"`
	metrics.Output
}

// Issue is one problem found while validating a report
type Issue struct {
	Field   string `json:"field,omitempty" example:"formula.blocks[0].source"`
	Message string `json:"message" example:"op sum requires a source field"`
}

// ValidateOutput reports whether a computation would run
type ValidateOutput struct {
	Valid   bool     `json:"valid" example:"true"`
	Issues  []Issue  `json:"issues"`
	Objects []string `json:"objects,omitempty"`
}

// ReportList is the saved report navigation tree
type ReportList struct {
	Categories []*taxonomy.Category `json:"categories"`
}

// SchemaView lists the declared objects
type SchemaView struct {
	Objects []*catalog.ObjectDef `json:"objects"`
}

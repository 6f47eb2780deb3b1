package metrics

import (
	"reportdash/internal/core/catalog"
	"reportdash/internal/core/filter"
)

// LegacyBlockID is the block id a single-metric definition is converted to
const LegacyBlockID = "metric"

// MetricDef is the single-metric definition older saved reports use
type MetricDef struct {
	Name     string             `json:"name,omitempty"`
	Object   string             `json:"object,omitempty"`
	Source   *catalog.FieldRef  `json:"source,omitempty"`
	Op       Op                 `json:"op"`
	Type     PeriodType         `json:"type"`
	Filters  []filter.Condition `json:"filters,omitempty"`
	UnitType UnitType           `json:"unitType,omitempty"`
}

// ToFormula converts d into a one-block formula with no calculation
func (d MetricDef) ToFormula() MetricFormula {
	return MetricFormula{
		Name: d.Name,
		Blocks: []MetricBlock{{
			ID:       LegacyBlockID,
			Name:     d.Name,
			Object:   d.Object,
			Source:   d.Source,
			Op:       d.Op,
			Type:     d.Type,
			Filters:  d.Filters,
			UnitType: d.UnitType,
		}},
	}
}

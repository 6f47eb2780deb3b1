package metrics

import (
	"fmt"
	"time"

	"reportdash/internal/core/bucket"
	"reportdash/internal/core/catalog"
	"reportdash/internal/core/filter"
)

type timed struct {
	rec *catalog.Record
	at  time.Time
}

// collect returns the block's records inside the window that pass the
// block filters and any extra predicates. Records with no timestamp are skipped.
func (b *block) collect(cat *catalog.Catalog, bk *bucket.Bucketer, extra ...*filter.Predicate) []timed {
	tbl, ok := cat.Table(b.def.Name)
	if !ok {
		return nil
	}
	match := filter.All(append([]*filter.Predicate{b.where}, extra...)...)
	out := make([]timed, 0, tbl.Len())
	for _, r := range tbl.Records() {
		at, ok := r.Time(b.def)
		if !ok || !bk.Contains(at) {
			continue
		}
		if match(cat, r) {
			out = append(out, timed{rec: r, at: at})
		}
	}
	return out
}

// reduce applies the period type then the aggregation to one record set
func (b *block) reduce(ts []timed) *float64 {
	if len(ts) == 0 {
		return b.agg.empty()
	}
	switch b.period {
	case Latest, First:
		return b.agg.aggregate(snapshot(ts, b.period == Latest))
	}
	recs := make([]*catalog.Record, len(ts))
	for i, t := range ts {
		recs[i] = t.rec
	}
	return b.agg.aggregate(recs)
}

// snapshot keeps the records sharing the latest (or earliest) timestamp
func snapshot(ts []timed, latest bool) []*catalog.Record {
	edge := ts[0].at
	for _, t := range ts[1:] {
		if (latest && t.at.After(edge)) || (!latest && t.at.Before(edge)) {
			edge = t.at
		}
	}
	var out []*catalog.Record
	for _, t := range ts {
		if t.at.Equal(edge) {
			out = append(out, t.rec)
		}
	}
	return out
}

// evaluate computes the block over the catalog as a scalar or a series
func (b *block) evaluate(cat *catalog.Catalog, mode Mode, bk *bucket.Bucketer, extra ...*filter.Predicate) MetricResult {
	ts := b.collect(cat, bk, extra...)
	res := MetricResult{UnitType: b.unit, Kind: b.kind}

	if mode != Series {
		res.Value = b.reduce(ts)
		if res.Value == nil {
			res.Notes = append(res.Notes, fmt.Sprintf("%s: no data in range", b.label()))
		}
		return res
	}

	parts := make([][]timed, bk.Len())
	for _, t := range ts {
		if i, ok := bk.Assign(t.at); ok {
			parts[i] = append(parts[i], t)
		}
	}
	res.Series = make([]SeriesPoint, bk.Len())
	empty := 0
	for i, bkt := range bk.Buckets() {
		v := b.reduce(parts[i])
		if v == nil {
			empty++
		}
		res.Series[i] = SeriesPoint{Date: bkt.Label, Value: v}
	}
	if empty == len(res.Series) {
		res.Notes = append(res.Notes, fmt.Sprintf("%s: no data in range", b.label()))
	}
	return res
}

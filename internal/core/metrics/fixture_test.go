package metrics

import (
	"testing"

	"reportdash/internal/core/bucket"
	"reportdash/internal/core/catalog"
	"reportdash/internal/core/filter"
	kit "reportdash/internal/platform/testkit"
)

func load(t *testing.T, raw catalog.Raw) *Engine {
	t.Helper()
	c, err := catalog.Load(catalog.DefaultSchema(), raw)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return New(c)
}

func billing(t *testing.T) *Engine {
	return load(t, catalog.Raw{
		"customers": {
			{"id": "c1", "name": "Acme", "country": "DE", "created_at": "2023-01-01"},
			{"id": "c2", "name": "Globex", "country": "US", "created_at": "2023-01-01"},
		},
		"invoices": {
			{"id": "i1", "customer_id": "c1", "status": "paid", "amount_due": 100, "created_at": "2024-01-05"},
			{"id": "i2", "customer_id": "c2", "status": "paid", "amount_due": 50.5, "created_at": "2024-02-10"},
			{"id": "i3", "customer_id": "c1", "status": "open", "amount_due": 20, "created_at": "2024-02-20"},
			{"id": "i4", "customer_id": "c2", "status": "paid", "amount_due": 999, "created_at": "2023-12-31"},
			{"id": "i5", "customer_id": "c1", "status": "paid", "amount_due": 999},
		},
		"payments": {
			{"id": "p1", "customer_id": "c1", "status": "succeeded", "amount": 100, "created_at": "2024-01-05"},
			{"id": "p2", "customer_id": "c2", "status": "succeeded", "amount": 50.5, "created_at": "2024-02-10"},
			{"id": "p3", "customer_id": "c1", "status": "succeeded", "amount": 20, "created_at": "2024-02-10"},
		},
	})
}

func field(object, name string) *catalog.FieldRef {
	return &catalog.FieldRef{Object: object, Field: name}
}

func cond(object, name string, op filter.Operator, v any) filter.Condition {
	return filter.Condition{Field: catalog.FieldRef{Object: object, Field: name}, Operator: op, Value: v}
}

func rng(t *testing.T, start, end string, g bucket.Granularity) Range {
	return Range{Start: kit.Day(t, start), End: kit.Day(t, end), Granularity: g}
}

func single(b MetricBlock) *MetricFormula {
	return &MetricFormula{Blocks: []MetricBlock{b}}
}

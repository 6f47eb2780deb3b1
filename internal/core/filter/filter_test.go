package filter

import (
	"testing"

	"reportdash/internal/core/catalog"
	perr "reportdash/internal/platform/errors"
)

func fixture(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load(catalog.DefaultSchema(), catalog.Raw{
		"customers": {
			{"id": "c1", "name": "Acme GmbH", "country": "DE", "delinquent": false, "created_at": "2023-06-01"},
			{"id": "c2", "name": "Globex", "country": "US", "delinquent": true, "created_at": "2023-07-01"},
		},
		"invoices": {
			{"id": "i1", "customer_id": "c1", "status": "paid", "amount_due": 100, "paid": true, "created_at": "2024-01-05"},
			{"id": "i2", "customer_id": "c2", "status": "open", "amount_due": 250, "paid": false, "created_at": "2024-02-10"},
			{"id": "i3", "customer_id": "c9", "status": "void", "amount_due": 40, "created_at": "2024-03-01"},
			{"id": "i4", "status": "draft", "created_at": "2024-03-02"},
		},
	})
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return c
}

func ref(object, field string) catalog.FieldRef {
	return catalog.FieldRef{Object: object, Field: field}
}

func matching(t *testing.T, c *catalog.Catalog, g Group) []string {
	t.Helper()
	p, err := Compile(c.Schema(), "invoices", g)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	tbl, _ := c.Table("invoices")
	var ids []string
	for _, r := range tbl.Records() {
		if p.Match(c, r) {
			ids = append(ids, r.ID())
		}
	}
	return ids
}

func TestOperators(t *testing.T) {
	c := fixture(t)
	cases := []struct {
		name string
		cond Condition
		want []string
	}{
		{"equals", Condition{ref("invoices", "status"), Equals, "paid"}, []string{"i1"}},
		{"not equals skips null", Condition{ref("invoices", "amount_due"), NotEquals, 100}, []string{"i2", "i3"}},
		{"greater than", Condition{ref("invoices", "amount_due"), GreaterThan, "50"}, []string{"i1", "i2"}},
		{"less than", Condition{ref("invoices", "amount_due"), LessThan, 100}, []string{"i3"}},
		{"between inclusive", Condition{ref("invoices", "amount_due"), Between, []any{40, 100}}, []string{"i1", "i3"}},
		{"between dates", Condition{ref("invoices", "created_at"), Between, []any{"2024-02-01", "2024-03-01"}}, []string{"i2", "i3"}},
		{"contains folds case", Condition{ref("invoices", "status"), Contains, "PAI"}, []string{"i1"}},
		{"in", Condition{ref("invoices", "status"), In, []any{"void", "draft"}}, []string{"i3", "i4"}},
		{"is true", Condition{ref("invoices", "paid"), IsTrue, nil}, []string{"i1"}},
		{"is false skips null", Condition{ref("invoices", "paid"), IsFalse, nil}, []string{"i2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := matching(t, c, Group{Conditions: []Condition{tc.cond}})
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestRelationHop(t *testing.T) {
	c := fixture(t)
	got := matching(t, c, Group{Conditions: []Condition{
		{ref("customers", "country"), Equals, "DE"},
	}})
	if len(got) != 1 || got[0] != "i1" {
		t.Fatalf("got %v", got)
	}
	// dangling or missing foreign keys never match
	got = matching(t, c, Group{Conditions: []Condition{
		{ref("customers", "delinquent"), IsFalse, nil},
	}})
	if len(got) != 1 || got[0] != "i1" {
		t.Fatalf("got %v", got)
	}
}

func TestLogic(t *testing.T) {
	c := fixture(t)
	conds := []Condition{
		{ref("invoices", "status"), Equals, "paid"},
		{ref("invoices", "status"), Equals, "open"},
	}
	if got := matching(t, c, Group{Logic: And, Conditions: conds}); len(got) != 0 {
		t.Fatalf("and = %v", got)
	}
	if got := matching(t, c, Group{Logic: "or", Conditions: conds}); len(got) != 2 {
		t.Fatalf("or = %v", got)
	}
	if got := matching(t, c, Group{}); len(got) != 4 {
		t.Fatalf("empty group = %v", got)
	}
}

func TestCompile_Errors(t *testing.T) {
	s := catalog.DefaultSchema()
	cases := []struct {
		name  string
		from  string
		cond  Condition
		field string
	}{
		{"unknown field", "invoices", Condition{ref("invoices", "nope"), Equals, 1}, "conditions[0].field"},
		{"unrelated object", "customers", Condition{ref("payments", "status"), Equals, "x"}, "conditions[0].field"},
		{"bad number", "invoices", Condition{ref("invoices", "amount_due"), GreaterThan, "abc"}, "conditions[0].value"},
		{"ordered on string", "invoices", Condition{ref("invoices", "status"), GreaterThan, "a"}, "conditions[0].operator"},
		{"between arity", "invoices", Condition{ref("invoices", "amount_due"), Between, []any{1}}, "conditions[0].value"},
		{"between reversed", "invoices", Condition{ref("invoices", "amount_due"), Between, []any{9, 1}}, "conditions[0].value"},
		{"unknown operator", "invoices", Condition{ref("invoices", "status"), "like", "x"}, "conditions[0].operator"},
		{"bool with value", "invoices", Condition{ref("invoices", "paid"), IsTrue, true}, "conditions[0].value"},
		{"missing value", "invoices", Condition{ref("invoices", "status"), Equals, nil}, "conditions[0].value"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(s, tc.from, Group{Conditions: []Condition{tc.cond}})
			if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
				t.Fatalf("err = %v", err)
			}
			if got := perr.FieldOf(err); got != tc.field {
				t.Fatalf("field = %q, want %q", got, tc.field)
			}
		})
	}
}

func TestSkipUnrelated(t *testing.T) {
	s := catalog.DefaultSchema()
	g := Group{Conditions: []Condition{
		{ref("payments", "status"), Equals, "failed"},
		{ref("customers", "country"), Equals, "DE"},
	}}
	p, err := Compile(s, "customers", g, SkipUnrelated())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if p.Len() != 1 {
		t.Fatalf("active conditions = %d, want 1", p.Len())
	}
	p, err = Compile(s, "customers", Group{Conditions: g.Conditions[:1]}, SkipUnrelated())
	if err != nil || p != nil {
		t.Fatalf("all-skipped group should compile to nil, got %v, %v", p, err)
	}
	if !p.Match(nil, catalog.NewRecord("customers", "x", nil)) {
		t.Fatal("nil predicate must match")
	}
}

func TestFold(t *testing.T) {
	if Fold("ＡＣＭＥ Straße") != Fold("acme STRASSE") {
		t.Fatalf("fold mismatch: %q vs %q", Fold("ＡＣＭＥ Straße"), Fold("acme STRASSE"))
	}
}

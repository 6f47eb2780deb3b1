package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"reportdash/internal/core/catalog"
	"reportdash/internal/core/filter"
	"reportdash/internal/core/metrics"
	"reportdash/internal/core/taxonomy"
	perr "reportdash/internal/platform/errors"
	kit "reportdash/internal/platform/testkit"
	"reportdash/internal/services/api/reports/domain"
)

type fakeSource struct {
	raw   catalog.Raw
	err   error
	asked []string
	block bool
	loads int
}

func (f *fakeSource) Load(ctx context.Context, s *catalog.Schema, objects []string) (*catalog.Catalog, error) {
	f.loads++
	f.asked = objects
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	raw := catalog.Raw{}
	for _, o := range objects {
		raw[o] = f.raw[o]
	}
	return catalog.Load(s, raw)
}

func data() catalog.Raw {
	return catalog.Raw{
		"customers": {
			{"id": "c1", "country": "DE", "created_at": "2023-01-01"},
			{"id": "c2", "country": "US", "created_at": "2023-01-01"},
		},
		"invoices": {
			{"id": "i1", "customer_id": "c1", "status": "paid", "amount_due": 100, "created_at": "2024-01-05"},
			{"id": "i2", "customer_id": "c2", "status": "paid", "amount_due": 50, "created_at": "2024-02-10"},
			{"id": "i3", "customer_id": "c1", "status": "open", "amount_due": 20, "created_at": "2024-02-20"},
		},
		"payments": {
			{"id": "p1", "customer_id": "c1", "status": "succeeded", "amount": 100, "created_at": "2024-01-05"},
			{"id": "p2", "customer_id": "c2", "status": "blocked", "amount": 50, "created_at": "2024-02-10"},
		},
	}
}

func newSvc(t *testing.T, src domain.CatalogSource, opts ...Option) *Svc {
	t.Helper()
	cats, err := taxonomy.Default()
	if err != nil {
		t.Fatalf("taxonomy: %v", err)
	}
	ix, err := taxonomy.NewIndex(cats, catalog.DefaultSchema())
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	s := New(catalog.DefaultSchema(), ix, src, opts...)
	s.newID = func() string { return "cid" }
	return s
}

func countInvoices() *metrics.MetricFormula {
	return &metrics.MetricFormula{
		Name: "Invoices",
		Blocks: []metrics.MetricBlock{{
			ID: "n", Object: "invoices", Op: metrics.OpCount, Type: metrics.SumOverPeriod,
		}},
	}
}

func window(g string) domain.RangeIn {
	return domain.RangeIn{Start: "2024-01-01", End: "2024-02-29", Granularity: g}
}

func TestNewPanicsOnNilDeps(t *testing.T) {
	kit.MustPanic(t, func() { New(nil, nil, nil) })
	kit.MustPanic(t, func() { New(catalog.DefaultSchema(), nil, &fakeSource{}) })
}

func TestComputeLoadsOnlyTouchedObjects(t *testing.T) {
	src := &fakeSource{raw: data()}
	s := newSvc(t, src)

	out, err := s.Compute(context.Background(), domain.ComputeInput{
		Formula: countInvoices(),
		Range:   window("month"),
		Mode:    "series",
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(src.asked) != 1 || src.asked[0] != "invoices" {
		t.Fatalf("asked = %v", src.asked)
	}
	if out.ComputationID != "cid" || out.Name != "Invoices" || out.Mode != metrics.Series {
		t.Fatalf("provenance = %+v", out)
	}
	if out.Records["invoices"] != 3 {
		t.Fatalf("records = %v", out.Records)
	}
	if len(out.Result.Series) != 2 {
		t.Fatalf("series = %+v", out.Result.Series)
	}
	kit.MustValue(t, out.Result.Series[0].Value, 1)
	kit.MustValue(t, out.Result.Series[1].Value, 2)
}

func TestComputeDefaultsToScalar(t *testing.T) {
	s := newSvc(t, &fakeSource{raw: data()})
	out, err := s.Compute(context.Background(), domain.ComputeInput{Formula: countInvoices(), Range: window("")})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if out.Mode != metrics.Scalar || out.Result.Series != nil {
		t.Fatalf("out = %+v", out)
	}
	kit.MustValue(t, out.Result.Value, 3)
}

func TestComputeFilterLoadsRelationTarget(t *testing.T) {
	src := &fakeSource{raw: data()}
	s := newSvc(t, src)
	out, err := s.Compute(context.Background(), domain.ComputeInput{
		Formula: countInvoices(),
		Range:   window(""),
		Filters: &filter.Group{Conditions: []filter.Condition{{
			Field:    catalog.FieldRef{Object: "customers", Field: "country"},
			Operator: filter.Equals,
			Value:    "DE",
		}}},
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	kit.MustValue(t, out.Result.Value, 2)
	if len(src.asked) != 2 {
		t.Fatalf("asked = %v", src.asked)
	}
}

func TestComputeRejectsBadShape(t *testing.T) {
	src := &fakeSource{raw: data()}
	s := newSvc(t, src)
	_, err := s.Compute(context.Background(), domain.ComputeInput{
		Formula: countInvoices(),
		Metric:  &metrics.MetricDef{Object: "invoices", Op: metrics.OpCount, Type: metrics.SumOverPeriod},
		Range:   window(""),
	})
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("err = %v", err)
	}
	if src.loads != 0 {
		t.Fatal("source loaded for an invalid request")
	}
}

func TestComputeConfigErrorSkipsLoad(t *testing.T) {
	src := &fakeSource{raw: data()}
	s := newSvc(t, src)
	_, err := s.Compute(context.Background(), domain.ComputeInput{
		Formula: &metrics.MetricFormula{Blocks: []metrics.MetricBlock{{
			ID: "x", Object: "invoices", Op: metrics.OpSum, Type: metrics.SumOverPeriod,
		}}},
		Range: window(""),
	})
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
	if perr.FieldOf(err) == "" {
		t.Fatal("config error without a field path")
	}
	if src.loads != 0 {
		t.Fatal("source loaded for a misconfigured request")
	}
}

func TestComputeSourceErrors(t *testing.T) {
	s := newSvc(t, &fakeSource{err: errors.New("connection reset")})
	_, err := s.Compute(context.Background(), domain.ComputeInput{Formula: countInvoices(), Range: window("")})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("err = %v", err)
	}

	coded := perr.DBf("boom")
	s = newSvc(t, &fakeSource{err: coded})
	_, err = s.Compute(context.Background(), domain.ComputeInput{Formula: countInvoices(), Range: window("")})
	if !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("err = %v", err)
	}
}

func TestComputeTimesOut(t *testing.T) {
	s := newSvc(t, &fakeSource{block: true}, WithTimeout(10*time.Millisecond))
	_, err := s.Compute(context.Background(), domain.ComputeInput{Formula: countInvoices(), Range: window("")})
	if !perr.IsCode(err, perr.ErrorCodeTimeout) {
		t.Fatalf("err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	s := newSvc(t, &fakeSource{})
	ctx := context.Background()

	out, err := s.Validate(ctx, domain.ComputeInput{Formula: countInvoices(), Range: window("")})
	if err != nil || !out.Valid || len(out.Issues) != 0 {
		t.Fatalf("valid = %+v, %v", out, err)
	}
	if len(out.Objects) != 1 || out.Objects[0] != "invoices" {
		t.Fatalf("objects = %v", out.Objects)
	}

	out, err = s.Validate(ctx, domain.ComputeInput{Range: window("")})
	if err != nil || out.Valid || len(out.Issues) == 0 {
		t.Fatalf("missing formula = %+v, %v", out, err)
	}

	out, err = s.Validate(ctx, domain.ComputeInput{
		Formula: &metrics.MetricFormula{Blocks: []metrics.MetricBlock{{
			ID: "x", Source: &catalog.FieldRef{Object: "invoices", Field: "nope"}, Op: metrics.OpSum, Type: metrics.SumOverPeriod,
		}}},
		Range: window(""),
	})
	if err != nil || out.Valid || len(out.Issues) != 1 {
		t.Fatalf("unknown field = %+v, %v", out, err)
	}
	if out.Issues[0].Field == "" {
		t.Fatalf("issue without field: %+v", out.Issues[0])
	}
}

func TestComputeSaved(t *testing.T) {
	s := newSvc(t, &fakeSource{raw: data()})
	ctx := context.Background()

	out, err := s.ComputeSaved(ctx, "paid-invoice-volume", domain.SavedInput{Range: domain.RangeIn{Start: "2024-01-01", End: "2024-02-29"}})
	if err != nil {
		t.Fatalf("ComputeSaved: %v", err)
	}
	if out.Report != "paid-invoice-volume" || out.Name != "Paid invoice volume" {
		t.Fatalf("provenance = %+v", out)
	}
	if out.Mode != metrics.Series || out.Range.Granularity != "month" || len(out.Result.Series) != 2 {
		t.Fatalf("defaults not applied: %+v", out)
	}
	kit.MustValue(t, out.Result.Series[0].Value, 1)
	kit.MustValue(t, out.Result.Series[1].Value, 1)

	out, err = s.ComputeSaved(ctx, "paid-invoice-volume", domain.SavedInput{Range: window(""), Mode: "scalar"})
	if err != nil {
		t.Fatalf("ComputeSaved scalar: %v", err)
	}
	kit.MustValue(t, out.Result.Value, 2)

	_, err = s.ComputeSaved(ctx, "nope", domain.SavedInput{Range: window("")})
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestListings(t *testing.T) {
	s := newSvc(t, &fakeSource{})
	list, err := s.Reports(context.Background())
	if err != nil || len(list.Categories) == 0 {
		t.Fatalf("reports = %+v, %v", list, err)
	}
	view, err := s.Schema(context.Background())
	if err != nil || len(view.Objects) != len(catalog.DefaultSchema().Names()) {
		t.Fatalf("schema = %+v, %v", view, err)
	}
}

// Package service contains report computation workflows
package service

import (
	"context"
	"time"

	"reportdash/internal/core/catalog"
	"reportdash/internal/core/metrics"
	"reportdash/internal/core/taxonomy"
	perr "reportdash/internal/platform/errors"
	"reportdash/internal/platform/logger"
	"reportdash/internal/services/api/reports/domain"

	"github.com/google/uuid"
)

// Service defines the reports service contract
type Service interface {
	domain.ServicePort
}

// DefaultTimeout bounds one computation including the catalog load
const DefaultTimeout = 30 * time.Second

// Svc implements the reports service
type Svc struct {
	schema  *catalog.Schema
	index   *taxonomy.Index
	source  domain.CatalogSource
	timeout time.Duration
	now     func() time.Time
	newID   func() string
}

// Option tunes Svc
type Option func(*Svc)

// WithTimeout overrides DefaultTimeout; zero or negative disables the bound
func WithTimeout(d time.Duration) Option { return func(s *Svc) { s.timeout = d } }

// New constructs a reports service
func New(schema *catalog.Schema, index *taxonomy.Index, source domain.CatalogSource, opts ...Option) *Svc {
	if schema == nil {
		panic("reports.Service requires a non nil Schema")
	}
	if index == nil {
		panic("reports.Service requires a non nil taxonomy Index")
	}
	if source == nil {
		panic("reports.Service requires a non nil CatalogSource")
	}
	s := &Svc{
		schema:  schema,
		index:   index,
		source:  source,
		timeout: DefaultTimeout,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Compute runs an ad-hoc formula or legacy metric
func (s *Svc) Compute(ctx context.Context, in domain.ComputeInput) (domain.ComputeOutput, error) {
	if err := checkShape(in); err != nil {
		return domain.ComputeOutput{}, err
	}
	req, err := in.Request()
	if err != nil {
		return domain.ComputeOutput{}, err
	}
	return s.run(ctx, "", req)
}

// Validate reports every problem that would stop in from computing, without loading data
func (s *Svc) Validate(_ context.Context, in domain.ComputeInput) (domain.ValidateOutput, error) {
	issues, err := metrics.ValidateShape(in)
	if err != nil {
		return domain.ValidateOutput{}, err
	}
	out := domain.ValidateOutput{Issues: []domain.Issue{}}
	for _, msg := range issues {
		out.Issues = append(out.Issues, domain.Issue{Message: msg})
	}
	if len(out.Issues) > 0 {
		return out, nil
	}
	req, err := in.Request()
	if err == nil {
		out.Objects, err = metrics.RequiredObjects(s.schema, req)
	}
	if err != nil {
		e, ok := perr.As(err)
		if !ok || (e.Code() != perr.ErrorCodeInvalidArgument && e.Code() != perr.ErrorCodeValidation) {
			return domain.ValidateOutput{}, err
		}
		out.Issues = append(out.Issues, domain.Issue{Field: e.Field(), Message: e.Message()})
		out.Objects = nil
		return out, nil
	}
	out.Valid = true
	return out, nil
}

// ComputeSaved runs the saved report slug over the supplied window
func (s *Svc) ComputeSaved(ctx context.Context, slug string, in domain.SavedInput) (domain.ComputeOutput, error) {
	rep, ok := s.index.Report(slug)
	if !ok {
		return domain.ComputeOutput{}, perr.WithField(perr.NotFoundf("report %q not found", slug), "slug")
	}
	rng, err := in.Range.Range()
	if err != nil {
		return domain.ComputeOutput{}, err
	}
	req := rep.Request(rng, metrics.Mode(in.Mode))
	req.Filters = in.Filters
	req.GroupBy = in.GroupBy
	if err := checkShape(domain.ComputeInput{Formula: req.Formula, Range: in.Range, Mode: string(req.Mode), Filters: in.Filters, GroupBy: in.GroupBy}); err != nil {
		return domain.ComputeOutput{}, err
	}
	out, err := s.run(logger.WithReport(ctx, slug), rep.Slug, req)
	if err != nil {
		return out, err
	}
	out.Name = rep.Name
	return out, nil
}

// Reports lists the saved report tree
func (s *Svc) Reports(context.Context) (domain.ReportList, error) {
	return domain.ReportList{Categories: s.index.Categories()}, nil
}

// Schema lists the declared objects
func (s *Svc) Schema(context.Context) (domain.SchemaView, error) {
	return domain.SchemaView{Objects: s.schema.Objects()}, nil
}

// run validates req, loads only the objects it touches and computes it
func (s *Svc) run(ctx context.Context, slug string, req metrics.Request) (domain.ComputeOutput, error) {
	objects, err := metrics.RequiredObjects(s.schema, req)
	if err != nil {
		return domain.ComputeOutput{}, err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if slug == "" && req.Formula != nil {
		ctx = logger.WithReport(ctx, req.Formula.Name)
	}
	log := logger.C(ctx)
	started := s.now()

	cat, err := s.source.Load(ctx, s.schema, objects)
	if err != nil {
		log.Error().Err(err).Strs("objects", objects).Msg("reports: catalog load failed")
		return domain.ComputeOutput{}, loadErr(ctx, err)
	}
	res, err := metrics.New(cat).Compute(ctx, req)
	if err != nil {
		if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			log.Warn().Err(err).Msg("reports: computation failed")
		}
		return domain.ComputeOutput{}, err
	}

	counts := make(map[string]int, len(objects))
	for _, o := range objects {
		if t, ok := cat.Table(o); ok {
			counts[o] = t.Len()
		}
	}
	mode := req.Mode
	if mode == "" {
		mode = metrics.Scalar
	}
	out := domain.ComputeOutput{
		ComputationID: s.newID(),
		Report:        slug,
		Range:         req.Range,
		Mode:          mode,
		Records:       counts,
		ElapsedMs:     s.now().Sub(started).Milliseconds(),
		Output:        *res,
	}
	if req.Formula != nil {
		out.Name = req.Formula.Name
	} else if req.Metric != nil {
		out.Name = req.Metric.Name
	}
	log.Debug().
		Str("computation_id", out.ComputationID).
		Int64("elapsed_ms", out.ElapsedMs).
		Int("groups", len(out.Groups)).
		Msg("reports: computed")
	return out, nil
}

func checkShape(doc any) error {
	issues, err := metrics.ValidateShape(doc)
	if err != nil {
		return err
	}
	return metrics.ShapeError(issues)
}

// loadErr keeps coded source errors and classifies the rest by ctx state
func loadErr(ctx context.Context, err error) error {
	if _, ok := perr.As(err); ok {
		return err
	}
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return perr.Wrap(err, perr.ErrorCodeTimeout, "reports: catalog load timed out")
	case context.Canceled:
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "reports: catalog load canceled")
	}
	return perr.Wrap(err, perr.ErrorCodeUnavailable, "reports: catalog unavailable")
}

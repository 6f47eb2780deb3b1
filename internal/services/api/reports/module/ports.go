package module

import (
	"context"

	"reportdash/internal/services/api/reports/domain"
	reportssvc "reportdash/internal/services/api/reports/service"
)

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

var _ domain.ServicePort = adaptReportsPort{}

type adaptReportsPort struct{ svc reportssvc.Service }

// Compute runs an ad-hoc computation
func (a adaptReportsPort) Compute(ctx context.Context, in domain.ComputeInput) (domain.ComputeOutput, error) {
	return a.svc.Compute(ctx, in)
}

// Validate checks a computation without running it
func (a adaptReportsPort) Validate(ctx context.Context, in domain.ComputeInput) (domain.ValidateOutput, error) {
	return a.svc.Validate(ctx, in)
}

// ComputeSaved runs a saved report
func (a adaptReportsPort) ComputeSaved(ctx context.Context, slug string, in domain.SavedInput) (domain.ComputeOutput, error) {
	return a.svc.ComputeSaved(ctx, slug, in)
}

// Reports lists the saved report tree
func (a adaptReportsPort) Reports(ctx context.Context) (domain.ReportList, error) {
	return a.svc.Reports(ctx)
}

// Schema lists the declared objects
func (a adaptReportsPort) Schema(ctx context.Context) (domain.SchemaView, error) {
	return a.svc.Schema(ctx)
}

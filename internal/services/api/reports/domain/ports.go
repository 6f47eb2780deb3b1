package domain

import (
	"context"

	"reportdash/internal/core/catalog"
)

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Compute(ctx context.Context, in ComputeInput) (ComputeOutput, error)
	Validate(ctx context.Context, in ComputeInput) (ValidateOutput, error)
	ComputeSaved(ctx context.Context, slug string, in SavedInput) (ComputeOutput, error)
	Reports(ctx context.Context) (ReportList, error)
	Schema(ctx context.Context) (SchemaView, error)
}

// CatalogSource materializes a read-only catalog holding at least objects
type CatalogSource interface {
	Load(ctx context.Context, s *catalog.Schema, objects []string) (*catalog.Catalog, error)
}

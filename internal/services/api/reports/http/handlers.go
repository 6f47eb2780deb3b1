// Package http provides http transport for reports
package http

import (
	stdhttp "net/http"

	"reportdash/internal/modkit/httpkit"
	"reportdash/internal/services/api/reports/domain"
	svc "reportdash/internal/services/api/reports/service"
)

// Register mounts reports endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	// saved report tree and declared objects
	httpkit.Get(r, "/", h.reports)
	httpkit.Get(r, "/schema", h.schema)

	// ad-hoc formulas
	httpkit.PostJSON[domain.ComputeInput](r, "/compute", h.compute)
	httpkit.PostJSON[domain.ComputeInput](r, "/validate", h.validate)

	// saved reports over a caller window
	httpkit.PostJSON[domain.SavedInput](r, "/saved/{slug}/compute", h.computeSaved)
}

type handlers struct{ svc svc.Service }

// swagger:route GET /reports Reports reportsList
// @Summary Saved reports by category and topic
// @Tags Reports
// @Produce json
// @Success 200 {object} domain.ReportList "ok"
// @Router /reports [get]
func (h *handlers) reports(r *stdhttp.Request) (any, error) {
	return h.svc.Reports(r.Context())
}

// swagger:route GET /reports/schema Reports reportsSchema
// @Summary Declared objects, fields and relations
// @Tags Reports
// @Produce json
// @Success 200 {object} domain.SchemaView "ok"
// @Router /reports/schema [get]
func (h *handlers) schema(r *stdhttp.Request) (any, error) {
	return h.svc.Schema(r.Context())
}

// swagger:route POST /reports/compute Reports reportsCompute
// @Summary Compute a formula or legacy metric over a window
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body domain.ComputeInput true "Computation"
// @Success 200 {object} domain.ComputeOutput "ok"
// @Failure 400 {object} httpkit.Envelope "malformed request"
// @Failure 422 {object} httpkit.Envelope "misconfigured formula"
// @Router /reports/compute [post]
func (h *handlers) compute(r *stdhttp.Request, in domain.ComputeInput) (any, error) {
	return h.svc.Compute(r.Context(), in)
}

// swagger:route POST /reports/validate Reports reportsValidate
// @Summary Check a computation without running it
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body domain.ComputeInput true "Computation"
// @Success 200 {object} domain.ValidateOutput "ok"
// @Router /reports/validate [post]
func (h *handlers) validate(r *stdhttp.Request, in domain.ComputeInput) (any, error) {
	return h.svc.Validate(r.Context(), in)
}

// swagger:route POST /reports/saved/{slug}/compute Reports reportsComputeSaved
// @Summary Compute a saved report over a window
// @Tags Reports
// @Accept json
// @Produce json
// @Param slug path string true "Report slug"
// @Param payload body domain.SavedInput true "Window"
// @Success 200 {object} domain.ComputeOutput "ok"
// @Failure 404 {object} httpkit.Envelope "unknown report"
// @Router /reports/saved/{slug}/compute [post]
func (h *handlers) computeSaved(r *stdhttp.Request, in domain.SavedInput) (any, error) {
	return h.svc.ComputeSaved(r.Context(), httpkit.Param(r, "slug"), in)
}

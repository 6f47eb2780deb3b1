// Package module defines the minimal contract for a modkit module
package module

import phttp "reportdash/internal/platform/net/http"

// Module is kept apart from modkit so a module's own ports type can import it without a cycle
type Module interface {
	Name() string
	MountRoutes(r phttp.Router)
	// Ports returns the module's port set for in-process callers, or nil
	Ports() any
}

// PortsAs type asserts m's port set
func PortsAs[T any](m Module) (T, bool) {
	var zero T
	if m == nil {
		return zero, false
	}
	p, ok := m.Ports().(T)
	return p, ok
}

// Package module wires meta endpoints into the API using a tiny module
package module

import (
	"time"

	"reportdash/internal/core/version"
	modkit "reportdash/internal/modkit"
	"reportdash/internal/modkit/httpkit"
	str "reportdash/internal/platform/strings"

	metahttp "reportdash/internal/services/api/meta/http"
)

// Module implements the modkit.Module interface
type Module struct {
	deps      modkit.Deps
	name      string
	built     modkit.Built
	startedAt time.Time
}

// New constructs a meta module with the provided dependencies and options
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	return &Module{
		deps:      deps,
		name:      b.Name,
		built:     b,
		startedAt: time.Now(),
	}
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	m.built.Mount(r, func(rr httpkit.Router) {
		d := metahttp.Deps{ServiceName: version.Service, StartedAt: m.startedAt}
		// typed nils would read as configured
		if m.deps.PG != nil {
			d.PG = m.deps.PG
		}
		if m.deps.CH != nil {
			d.CH = m.deps.CH
		}
		metahttp.Register(rr, d)
	})
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return str.MustString(m.name, "meta") }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }

// Package module wires reports into the API using modkit
package module

import (
	"fmt"
	"time"

	"reportdash/internal/core/catalog"
	"reportdash/internal/core/taxonomy"
	modkit "reportdash/internal/modkit"
	"reportdash/internal/modkit/httpkit"
	"reportdash/internal/platform/config"
	str "reportdash/internal/platform/strings"
	"reportdash/internal/services/api/reports/domain"
	reportshttp "reportdash/internal/services/api/reports/http"
	reportsrepo "reportdash/internal/services/api/reports/repo"
	reportssvc "reportdash/internal/services/api/reports/service"
)

// Catalog sources
const (
	SourceFile = "file"
	SourcePG   = "pg"
	SourceCH   = "ch"
)

// Settings are the reports knobs read from the module config view
type Settings struct {
	Source       string
	CatalogFile  string
	SchemaFile   string
	TaxonomyFile string
	Timeout      time.Duration
}

// SettingsFrom reads CATALOG_SOURCE, CATALOG_FILE, SCHEMA_FILE, TAXONOMY_FILE
// and COMPUTE_TIMEOUT from cfg
func SettingsFrom(cfg config.Conf) Settings {
	return Settings{
		Source:       cfg.MayEnum("CATALOG_SOURCE", SourceFile, SourceFile, SourcePG, SourceCH),
		CatalogFile:  cfg.MayString("CATALOG_FILE", "fixtures/demo.yaml"),
		SchemaFile:   cfg.MayString("SCHEMA_FILE", ""),
		TaxonomyFile: cfg.MayString("TAXONOMY_FILE", ""),
		Timeout:      cfg.MayDuration("COMPUTE_TIMEOUT", reportssvc.DefaultTimeout),
	}
}

// Module implements the reports module
type Module struct {
	name  string
	built modkit.Built
	svc   reportssvc.Service
	ports domain.ServicePort
}

// New constructs the reports module; it panics when its configuration cannot be loaded
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	svc, err := NewService(deps, SettingsFrom(deps.Cfg))
	if err != nil {
		panic(fmt.Sprintf("reports: %v", err))
	}
	return NewWith(svc, opts...)
}

// NewWith mounts an already built service
func NewWith(svc reportssvc.Service, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("reports"), modkit.WithPrefix("/reports")}, opts...)...)
	return &Module{name: b.Name, built: b, svc: svc, ports: adaptReportsPort{svc: svc}}
}

// NewService resolves the schema, taxonomy and catalog source named in st
func NewService(deps modkit.Deps, st Settings) (*reportssvc.Svc, error) {
	schema := catalog.DefaultSchema()
	if st.SchemaFile != "" {
		var err error
		if schema, err = catalog.LoadSchemaFile(st.SchemaFile); err != nil {
			return nil, err
		}
	}

	cats, err := taxonomy.Default()
	if st.TaxonomyFile != "" {
		cats, err = taxonomy.LoadFile(st.TaxonomyFile)
	}
	if err != nil {
		return nil, err
	}
	index, err := taxonomy.NewIndex(cats, schema)
	if err != nil {
		return nil, err
	}

	var src domain.CatalogSource
	switch st.Source {
	case SourcePG:
		if deps.PG == nil {
			return nil, fmt.Errorf("catalog source %q needs postgres", st.Source)
		}
		src = reportsrepo.NewSource(deps.PG, reportsrepo.NewPG())
	case SourceCH:
		if deps.CH == nil {
			return nil, fmt.Errorf("catalog source %q needs clickhouse", st.Source)
		}
		src = reportsrepo.NewCHSource(reportsrepo.NewCH(deps.CH))
	default:
		src = reportsrepo.NewFileSource(st.CatalogFile)
	}
	return reportssvc.New(schema, index, src, reportssvc.WithTimeout(st.Timeout)), nil
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	m.built.Mount(r, func(rr httpkit.Router) { reportshttp.Register(rr, m.svc) })
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

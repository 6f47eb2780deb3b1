// Package taxonomy indexes saved reports by category, topic and slug
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"reportdash/internal/core/bucket"
	"reportdash/internal/core/catalog"
	"reportdash/internal/core/metrics"
	perr "reportdash/internal/platform/errors"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var embedded []byte

// Report is a saved report definition
type Report struct {
	Slug        string                `json:"slug"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Category    string                `json:"category"`
	Topic       string                `json:"topic"`
	Granularity bucket.Granularity    `json:"granularity"`
	Mode        metrics.Mode          `json:"mode"`
	Formula     metrics.MetricFormula `json:"formula"`
}

// Request builds a computation of r over rng. An empty granularity or mode
// takes the report's default.
func (r *Report) Request(rng metrics.Range, mode metrics.Mode) metrics.Request {
	if rng.Granularity == "" {
		rng.Granularity = r.Granularity
	}
	if mode == "" {
		mode = r.Mode
	}
	f := r.Formula
	if f.Name == "" {
		f.Name = r.Name
	}
	return metrics.Request{Formula: &f, Range: rng, Mode: mode}
}

// Topic groups related reports
type Topic struct {
	Slug    string    `json:"slug"`
	Name    string    `json:"name"`
	Reports []*Report `json:"reports"`
}

// Category is the top navigation level
type Category struct {
	Slug   string   `json:"slug"`
	Name   string   `json:"name"`
	Topics []*Topic `json:"topics"`
}

type reportDoc struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Granularity string `yaml:"granularity"`
	Mode        string `yaml:"mode"`
	Formula     any    `yaml:"formula"`
}

type topicDoc struct {
	Slug    string      `yaml:"slug"`
	Name    string      `yaml:"name"`
	Reports []reportDoc `yaml:"reports"`
}

type categoryDoc struct {
	Slug   string     `yaml:"slug"`
	Name   string     `yaml:"name"`
	Topics []topicDoc `yaml:"topics"`
}

type document struct {
	Categories []categoryDoc `yaml:"categories"`
}

// Parse decodes a taxonomy document. Formulas are shape-checked here;
// NewIndex checks them against a schema.
func Parse(b []byte) ([]*Category, error) {
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "taxonomy: invalid yaml")
	}
	out := make([]*Category, 0, len(doc.Categories))
	for _, cd := range doc.Categories {
		cat := &Category{Slug: cd.Slug, Name: cd.Name}
		for _, td := range cd.Topics {
			top := &Topic{Slug: td.Slug, Name: td.Name}
			for _, rd := range td.Reports {
				r, err := parseReport(cd.Slug, td.Slug, rd)
				if err != nil {
					return nil, err
				}
				top.Reports = append(top.Reports, r)
			}
			cat.Topics = append(cat.Topics, top)
		}
		out = append(out, cat)
	}
	return out, nil
}

func parseReport(cat, topic string, rd reportDoc) (*Report, error) {
	where := fmt.Sprintf("%s/%s/%s", cat, topic, rd.Slug)
	g, err := bucket.ParseGranularity(rd.Granularity)
	if err != nil {
		return nil, perr.WithField(err, where+".granularity")
	}
	mode := metrics.Mode(rd.Mode)
	switch mode {
	case "":
		mode = metrics.Scalar
	case metrics.Scalar, metrics.Series:
	default:
		return nil, perr.WithField(perr.InvalidArgf("taxonomy: unknown mode %q", rd.Mode), where+".mode")
	}
	f, err := metrics.DecodeFormula(rd.Formula)
	if err != nil {
		return nil, perr.WithField(err, where+".formula")
	}
	return &Report{
		Slug:        rd.Slug,
		Name:        rd.Name,
		Description: rd.Description,
		Category:    cat,
		Topic:       topic,
		Granularity: g,
		Mode:        mode,
		Formula:     f,
	}, nil
}

// LoadFile parses the taxonomy at path
func LoadFile(path string) ([]*Category, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: %w", err)
	}
	return Parse(b)
}

// Default parses the embedded taxonomy
func Default() ([]*Category, error) { return Parse(embedded) }

// Index is an immutable slug lookup over a taxonomy. Build it once and
// share it by reference.
type Index struct {
	cats    []*Category
	order   []*Report
	reports map[string]*Report
	byCat   map[string]*Category
}

// NewIndex validates every slug and formula and builds the lookups
func NewIndex(cats []*Category, s *catalog.Schema) (*Index, error) {
	ix := &Index{
		cats:    cats,
		reports: map[string]*Report{},
		byCat:   map[string]*Category{},
	}
	probe := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, c := range cats {
		if c.Slug == "" {
			return nil, perr.InvalidArgf("taxonomy: category %q has no slug", c.Name)
		}
		if _, dup := ix.byCat[c.Slug]; dup {
			return nil, perr.InvalidArgf("taxonomy: duplicate category slug %q", c.Slug)
		}
		ix.byCat[c.Slug] = c
		for _, t := range c.Topics {
			for _, r := range t.Reports {
				if r.Slug == "" {
					return nil, perr.InvalidArgf("taxonomy: report %q in %s/%s has no slug", r.Name, c.Slug, t.Slug)
				}
				if prev, dup := ix.reports[r.Slug]; dup {
					return nil, perr.InvalidArgf("taxonomy: report slug %q used by %s/%s and %s/%s",
						r.Slug, prev.Category, prev.Topic, c.Slug, t.Slug)
				}
				req := r.Request(metrics.Range{Start: probe, End: probe}, "")
				if err := metrics.Validate(s, req); err != nil {
					return nil, perr.WithOp(err, "taxonomy: report "+r.Slug)
				}
				ix.reports[r.Slug] = r
				ix.order = append(ix.order, r)
			}
		}
	}
	return ix, nil
}

// Categories returns the navigation tree in document order
func (ix *Index) Categories() []*Category { return ix.cats }

// Category finds a category by slug
func (ix *Index) Category(slug string) (*Category, bool) {
	c, ok := ix.byCat[slug]
	return c, ok
}

// Report finds a saved report by slug
func (ix *Index) Report(slug string) (*Report, bool) {
	r, ok := ix.reports[slug]
	return r, ok
}

// Reports returns every report in document order
func (ix *Index) Reports() []*Report { return ix.order }

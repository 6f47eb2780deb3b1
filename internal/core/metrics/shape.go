package metrics

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	perr "reportdash/internal/platform/errors"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed report.schema.json
var reportSchemaJSON []byte

var (
	schemaOnce    sync.Once
	reportSchema  *gojsonschema.Schema
	formulaSchema *gojsonschema.Schema
	schemaErr     error
)

func getSchemas() (*gojsonschema.Schema, *gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		reportSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(reportSchemaJSON))
		if schemaErr != nil {
			return
		}
		// formulas alone are validated against the same definitions
		var root map[string]any
		if schemaErr = json.Unmarshal(reportSchemaJSON, &root); schemaErr != nil {
			return
		}
		formulaSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(map[string]any{
			"$schema":     root["$schema"],
			"allOf":       []any{map[string]any{"$ref": "#/definitions/formula"}},
			"definitions": root["definitions"],
		}))
	})
	return reportSchema, formulaSchema, schemaErr
}

// ValidateShape checks a request document (a decoded JSON value or any value
// that marshals to one) against the embedded schema. It returns readable
// issues, empty when the shape is valid.
func ValidateShape(doc any) ([]string, error) {
	s, _, err := getSchemas()
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "report schema unavailable")
	}
	return validateWith(s, doc)
}

// ValidateFormulaShape checks a bare formula document
func ValidateFormulaShape(doc any) ([]string, error) {
	_, f, err := getSchemas()
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "report schema unavailable")
	}
	return validateWith(f, doc)
}

func validateWith(s *gojsonschema.Schema, doc any) ([]string, error) {
	res, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeValidation, "report is not a JSON document")
	}
	if res.Valid() {
		return []string{}, nil
	}
	out := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		out = append(out, e.String())
	}
	sort.Strings(out)
	return out, nil
}

// ShapeError folds shape issues into one validation error
func ShapeError(issues []string) error {
	if len(issues) == 0 {
		return nil
	}
	return perr.Validationf("invalid report: %s", strings.Join(issues, "; "))
}

// DecodeRequest parses a JSON or YAML request, validates its shape and
// decodes it into a Request
func DecodeRequest(b []byte) (Request, error) {
	var req Request
	doc, err := decodeDocument(b)
	if err != nil {
		return req, err
	}
	issues, err := ValidateShape(doc)
	if err != nil {
		return req, err
	}
	if err := ShapeError(issues); err != nil {
		return req, err
	}
	err = remarshal(doc, &req)
	return req, err
}

// DecodeFormula parses, shape-checks and decodes a bare formula document
// that has already been unmarshalled from YAML or JSON
func DecodeFormula(v any) (MetricFormula, error) {
	var f MetricFormula
	doc, err := NormalizeYAML(v)
	if err != nil {
		return f, err
	}
	issues, err := ValidateFormulaShape(doc)
	if err != nil {
		return f, err
	}
	if err := ShapeError(issues); err != nil {
		return f, err
	}
	err = remarshal(doc, &f)
	return f, err
}

func decodeDocument(b []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "report is neither JSON nor YAML")
	}
	return NormalizeYAML(doc)
}

func remarshal(doc any, out any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode report")
	}
	if err := json.Unmarshal(b, out); err != nil {
		if perr.FieldOf(err) != "" {
			return err
		}
		return perr.Wrap(err, perr.ErrorCodeJSON, "decode report")
	}
	return nil
}

// NormalizeYAML converts YAML-decoded values into plain JSON values so
// they can be validated and re-marshalled
func NormalizeYAML(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, float64, int, int64, uint64, string:
		return t, nil
	case []any:
		out := make([]any, 0, len(t))
		for _, it := range t {
			jv, err := NormalizeYAML(it)
			if err != nil {
				return nil, err
			}
			out = append(out, jv)
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v2 := range t {
			jv, err := NormalizeYAML(v2)
			if err != nil {
				return nil, err
			}
			out[k] = jv
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, v2 := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, perr.Validationf("report: non-string key %v", k)
			}
			jv, err := NormalizeYAML(v2)
			if err != nil {
				return nil, err
			}
			out[ks] = jv
		}
		return out, nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, perr.Validationf("report: unsupported value %s", fmt.Sprintf("%T", t))
		}
		var out any
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, perr.Validationf("report: unsupported value %T", t)
		}
		return out, nil
	}
}

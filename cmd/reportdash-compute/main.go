// Command reportdash-compute evaluates one report request against a record file and prints the result as JSON
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"reportdash/internal/core/catalog"
	"reportdash/internal/core/metrics"
	"reportdash/internal/core/taxonomy"
	perr "reportdash/internal/platform/errors"
	"reportdash/internal/platform/logger"
)

type options struct {
	request string
	report  string
	data    string
	schema  string
	start   string
	end     string
	mode    string
	timeout time.Duration
	indent  bool
}

// errUsage marks flag combinations that cannot run
var errUsage = perr.Validationf("provide exactly one of -request or -report")

func main() {
	var o options
	flag.StringVar(&o.request, "request", "", "request file (JSON or YAML); mutually exclusive with -report")
	flag.StringVar(&o.report, "report", "", "saved report slug from the taxonomy")
	flag.StringVar(&o.data, "data", "fixtures/demo.yaml", "record file (JSON or YAML)")
	flag.StringVar(&o.schema, "schema", "", "schema file; the built in billing schema when empty")
	flag.StringVar(&o.start, "start", "", "window start YYYY-MM-DD (with -report)")
	flag.StringVar(&o.end, "end", "", "window end YYYY-MM-DD (with -report)")
	flag.StringVar(&o.mode, "mode", "", "scalar | series (with -report; the report default when empty)")
	flag.DurationVar(&o.timeout, "timeout", 30*time.Second, "computation deadline")
	flag.BoolVar(&o.indent, "indent", true, "pretty print the output")
	flag.Parse()

	l := logger.Named("compute")
	if err := run(context.Background(), o, os.Stdout); err != nil {
		l.Error().Err(err).Str("field", perr.FieldOf(err)).Msg("compute failed")
		if err == errUsage {
			flag.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, w io.Writer) error {
	if (o.request == "") == (o.report == "") {
		return errUsage
	}

	schema := catalog.DefaultSchema()
	if o.schema != "" {
		var err error
		if schema, err = catalog.LoadSchemaFile(o.schema); err != nil {
			return fmt.Errorf("bad schema: %w", err)
		}
	}

	req, err := buildRequest(o, schema)
	if err != nil {
		return err
	}

	// fail on configuration before reading any data
	if err := metrics.Validate(schema, req); err != nil {
		return fmt.Errorf("invalid report: %w", err)
	}

	cat, err := catalog.LoadFile(schema, o.data)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	out, err := metrics.New(cat).Compute(ctx, req)
	if err != nil {
		return fmt.Errorf("compute: %w", err)
	}

	enc := json.NewEncoder(w)
	if o.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func buildRequest(o options, schema *catalog.Schema) (metrics.Request, error) {
	if o.request != "" {
		b, err := os.ReadFile(o.request)
		if err != nil {
			return metrics.Request{}, fmt.Errorf("read request: %w", err)
		}
		req, err := metrics.DecodeRequest(b)
		if err != nil {
			return req, fmt.Errorf("invalid request: %w", err)
		}
		return req, nil
	}

	cats, err := taxonomy.Default()
	if err != nil {
		return metrics.Request{}, fmt.Errorf("taxonomy: %w", err)
	}
	ix, err := taxonomy.NewIndex(cats, schema)
	if err != nil {
		return metrics.Request{}, fmt.Errorf("taxonomy: %w", err)
	}
	rep, ok := ix.Report(o.report)
	if !ok {
		return metrics.Request{}, perr.NotFoundf("report %q not found", o.report)
	}
	start, err := catalog.ParseDate(o.start)
	if err != nil {
		return metrics.Request{}, fmt.Errorf("bad -start: %w", err)
	}
	end, err := catalog.ParseDate(o.end)
	if err != nil {
		return metrics.Request{}, fmt.Errorf("bad -end: %w", err)
	}
	return rep.Request(metrics.Range{Start: start, End: end}, metrics.Mode(o.mode)), nil
}

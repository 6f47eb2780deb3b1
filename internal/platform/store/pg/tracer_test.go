package pg

import (
	"bytes"
	"context"
	"errors"
	"testing"

	kit "reportdash/internal/platform/testkit"

	"github.com/rs/zerolog"
)

func TestCompact(t *testing.T) {
	in := "SELECT id,\n\t payload\n  FROM catalog_records  WHERE object = ANY($1)"
	want := "SELECT id, payload FROM catalog_records WHERE object = ANY($1)"
	if got := compact(in); got != want {
		t.Fatalf("compact = %q", got)
	}
}

func TestTracerLevels(t *testing.T) {
	var buf bytes.Buffer
	tr := Tracer(zerolog.New(&buf).Level(zerolog.ErrorLevel))

	tr.OnQuery(context.Background(), QueryEvent{SQL: "SELECT 1", ElapsedUS: 1500})
	kit.MustContain(t, buf.String(), `"level":"info"`)
	kit.MustContain(t, buf.String(), `"elapsed_ms":1.5`)

	buf.Reset()
	tr.OnQuery(context.Background(), QueryEvent{SQL: "SELECT 1", Slow: true})
	kit.MustContain(t, buf.String(), `"level":"warn"`)

	buf.Reset()
	tr.OnQuery(context.Background(), QueryEvent{SQL: "SELECT nope", Err: errors.New("relation missing")})
	kit.MustContain(t, buf.String(), `"level":"error"`)
	kit.MustContain(t, buf.String(), "relation missing")
}

func TestOpenRejectsBadURL(t *testing.T) {
	if _, err := Open(context.Background(), Config{URL: "::not a url::"}, nil, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

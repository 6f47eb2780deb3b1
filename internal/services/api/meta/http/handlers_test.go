package http

import (
	stdctx "context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reportdash/internal/platform/config"
	phttp "reportdash/internal/platform/net/http"
)

type pinger struct{ err error }

func (p pinger) Ping(stdctx.Context) error { return p.err }

func serve(t *testing.T, d Deps, path string, out any) {
	t.Helper()
	srv := phttp.NewServer(config.New().Prefix("META_TEST_"))
	srv.Router().Route("/meta", func(r phttp.Router) { Register(r, d) })
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("%s status = %d", path, rr.Code)
	}
	env := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatal(err)
	}
}

func TestHealth(t *testing.T) {
	start := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	d := Deps{ServiceName: "reportdash-api", StartedAt: start, Now: func() time.Time { return start.Add(5 * time.Minute) }}
	var out HealthResponse
	serve(t, d, "/meta/health", &out)
	if !out.OK || out.Uptime != 300 || out.Service != "reportdash-api" {
		t.Fatalf("health = %+v", out)
	}
}

func TestReady(t *testing.T) {
	cases := []struct {
		name string
		deps Deps
		want string
	}{
		{"nothing configured", Deps{}, "ok"},
		{"pg up", Deps{PG: pinger{}}, "ok"},
		{"ch down", Deps{PG: pinger{}, CH: pinger{err: errors.New("refused")}}, "fail"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out ReadyResponse
			serve(t, tc.deps, "/meta/ready", &out)
			if out.Status != tc.want || len(out.Checks) != 2 {
				t.Fatalf("ready = %+v", out)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	var out struct {
		Service string `json:"service"`
		Version string `json:"version"`
	}
	serve(t, Deps{ServiceName: "reportdash-api"}, "/meta/version", &out)
	if out.Service != "reportdash-api" || out.Version == "" {
		t.Fatalf("version = %+v", out)
	}
}

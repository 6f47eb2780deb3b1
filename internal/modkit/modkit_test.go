package modkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"reportdash/internal/modkit/httpkit"
	"reportdash/internal/platform/config"
	phttp "reportdash/internal/platform/net/http"
	kit "reportdash/internal/platform/testkit"
)

func TestBuildDefaultsAndOverrides(t *testing.T) {
	b := Build(WithName("reports"), WithPrefix("/reports"), WithName("renamed"))
	if b.Name != "renamed" || b.Prefix != "/reports" || b.Register == nil {
		t.Fatalf("built = %+v", b)
	}
}

func TestBuiltMount(t *testing.T) {
	var order []string
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "mw")
			next.ServeHTTP(w, r)
		})
	}
	b := Build(
		WithPrefix("reports/"),
		WithMiddlewares(mw),
		WithRegister(func(r httpkit.Router) {
			httpkit.Get(r, "/extra", func(*http.Request) (any, error) { return "extra", nil })
		}),
	)
	srv := phttp.NewServer(config.New().Prefix("MODKIT_TEST_"))
	b.Mount(srv.Router(), func(r httpkit.Router) {
		httpkit.Get(r, "/own", func(*http.Request) (any, error) { return "own", nil })
	})

	for _, path := range []string{"/reports/own", "/reports/extra"} {
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
	}
	if len(order) != 2 {
		t.Fatalf("middleware ran %d times", len(order))
	}
}

func TestMountRejectsRootPrefix(t *testing.T) {
	srv := phttp.NewServer(config.New().Prefix("MODKIT_TEST_"))
	kit.MustPanic(t, func() { Build().Mount(srv.Router(), func(httpkit.Router) {}) })
}

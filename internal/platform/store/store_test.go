package store

import (
	"context"
	"errors"
	"testing"

	"reportdash/internal/platform/config"
)

type fakeRows struct {
	vals []string
	i    int
	err  error
}

func (f *fakeRows) Next() bool { f.i++; return f.i <= len(f.vals) }
func (f *fakeRows) Scan(dest ...any) error {
	*(dest[0].(*string)) = f.vals[f.i-1]
	return nil
}
func (f *fakeRows) Err() error        { return f.err }
func (f *fakeRows) Close()            {}
func (f *fakeRows) Columns() []string { return []string{"id"} }

type fakeQ struct{ rows *fakeRows }

func (q fakeQ) Query(context.Context, string, ...any) (Rows, error) {
	if q.rows == nil {
		return nil, errors.New("down")
	}
	return q.rows, nil
}

type fakeCH struct {
	closed  bool
	pingErr error
}

func (f *fakeCH) Insert(context.Context, string, [][]any) error { return nil }
func (f *fakeCH) Exec(context.Context, string, ...any) error     { return nil }
func (f *fakeCH) Query(context.Context, string, ...any) (Rows, error) {
	return &fakeRows{}, nil
}
func (f *fakeCH) Close() error               { f.closed = true; return nil }
func (f *fakeCH) Ping(context.Context) error { return f.pingErr }

func TestMany(t *testing.T) {
	scan := func(r Row) (string, error) {
		var s string
		err := r.Scan(&s)
		return s, err
	}
	got, err := Many(context.Background(), fakeQ{rows: &fakeRows{vals: []string{"a", "b"}}}, scan, "SELECT id")
	if err != nil || len(got) != 2 || got[1] != "b" {
		t.Fatalf("Many = %v, %v", got, err)
	}
	if _, err := Many(context.Background(), fakeQ{}, scan, "SELECT id"); err == nil {
		t.Fatal("expected query error")
	}
	if _, err := Many(context.Background(), fakeQ{rows: &fakeRows{err: errors.New("late")}}, scan, "SELECT id"); err == nil {
		t.Fatal("expected rows error")
	}
}

func TestOpenNothingEnabled(t *testing.T) {
	s, err := Open(context.Background(), Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.PG != nil || s.CH != nil {
		t.Fatalf("no backend should be open: %+v", s)
	}
	if err := s.Guard(context.Background()); err != nil {
		t.Fatalf("Guard on empty store: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestGuardAndCloseUseSeams(t *testing.T) {
	ch := &fakeCH{pingErr: errors.New("refused")}
	s := &Store{CH: ch}
	if err := s.Guard(context.Background()); err == nil {
		t.Fatal("expected ch ping failure")
	}
	_ = s.Close(context.Background())
	if !ch.closed {
		t.Fatal("Close did not close clickhouse")
	}
	var nilStore *Store
	if nilStore.Guard(context.Background()) == nil {
		t.Fatal("nil store must fail Guard")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("SERVICE_PGSQL_DBURL", "postgres://u:p@localhost:5432/db")
	t.Setenv("SERVICE_PGSQL_MAX_CONNS", "8")
	cfg := ConfigFromEnv(config.New(), "api")
	if !cfg.PG.Enabled || cfg.PG.MaxConns != 8 || cfg.CH.Enabled || cfg.CH.ClientTag != "api" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

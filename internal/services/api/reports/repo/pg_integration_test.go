//go:build integration_pg
// +build integration_pg

package repo

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"reportdash/internal/core/catalog"
	"reportdash/internal/platform/store"

	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres launches a disposable Postgres and returns DSN + stop func
func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "reports",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections"),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}
	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}
	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/reports?sslmode=disable", host, mp.Port())
	return dsn, func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
}

func TestPGSource_Integration_RoundTrip(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st, err := store.Open(ctx, store.Config{PG: store.PGConfig{Enabled: true, URL: dsn, MaxConns: 2}},
		store.WithLogger(zerolog.New(io.Discard)))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer func() { _ = st.Close(context.Background()) }()

	schema := catalog.DefaultSchema()
	src, err := catalog.Load(schema, catalog.Raw{
		"customers": {{"id": "c1", "country": "DE", "created_at": "2024-01-01"}},
		"invoices": {
			{"id": "i1", "customer_id": "c1", "status": "paid", "amount_due": 120.5, "paid": true, "created_at": "2024-01-05"},
			{"id": "i2", "customer_id": "c1", "status": "open", "amount_due": 40, "created_at": "2024-02-07T10:30:00Z"},
		},
	})
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	docs, err := Docs(src)
	if err != nil {
		t.Fatalf("Docs: %v", err)
	}
	if err := WritePG(ctx, st.PG, docs); err != nil {
		t.Fatalf("WritePG: %v", err)
	}
	// a second load upserts in place
	if err := WritePG(ctx, st.PG, docs); err != nil {
		t.Fatalf("WritePG again: %v", err)
	}

	got, err := NewSource(st.PG, NewPG()).Load(ctx, schema, []string{"invoices"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Counts()["invoices"] != 2 || got.Counts()["customers"] != 0 {
		t.Fatalf("counts = %v", got.Counts())
	}
	i1, ok := got.Lookup("invoices", "i1")
	if !ok {
		t.Fatal("i1 missing")
	}
	amount, _ := i1.Get("amount_due").Num()
	paid, _ := i1.Get("paid").Boolean()
	if amount != 120.5 || !paid {
		t.Fatalf("i1 amount=%v paid=%v", amount, paid)
	}
	i2, _ := got.Lookup("invoices", "i2")
	if at, ok := i2.Get("created_at").Time(); !ok || at.Hour() != 10 || at.Minute() != 30 {
		t.Fatalf("i2 created_at = %v", at)
	}
}

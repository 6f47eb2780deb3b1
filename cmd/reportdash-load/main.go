// Command reportdash-load copies a record file into the postgres or clickhouse catalog table
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reportdash/internal/core/catalog"
	"reportdash/internal/modkit/repokit"
	"reportdash/internal/platform/config"
	"reportdash/internal/platform/logger"
	"reportdash/internal/platform/store"
	reportsrepo "reportdash/internal/services/api/reports/repo"
)

func main() {
	var (
		fData   = flag.String("data", "fixtures/demo.yaml", "record file (JSON or YAML)")
		fSchema = flag.String("schema", "", "schema file; the built in billing schema when empty")
		fTarget = flag.String("target", "pg", "pg | ch | both")
	)
	flag.Parse()

	l := logger.Named("load")
	root := config.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	schema := catalog.DefaultSchema()
	if *fSchema != "" {
		var err error
		if schema, err = catalog.LoadSchemaFile(*fSchema); err != nil {
			l.Panic().Err(err).Msg("bad schema")
		}
	}

	// validates every row against the schema before anything is written
	cat, err := catalog.LoadFile(schema, *fData)
	if err != nil {
		l.Panic().Err(err).Msg("load records")
	}
	docs, err := reportsrepo.Docs(cat)
	if err != nil {
		l.Panic().Err(err).Msg("encode records")
	}

	cfg := store.ConfigFromEnv(root, "load")
	wantPG := *fTarget == "pg" || *fTarget == "both"
	wantCH := *fTarget == "ch" || *fTarget == "both"
	if !wantPG && !wantCH {
		l.Error().Str("target", *fTarget).Msg("target must be pg, ch or both")
		os.Exit(2)
	}
	if wantPG && !cfg.PG.Enabled {
		l.Panic().Msg("SERVICE_PGSQL_DBURL is required for -target pg")
	}
	if wantCH && !cfg.CH.Enabled {
		l.Panic().Msg("SERVICE_CLICKHOUSE_DBURL is required for -target ch")
	}
	cfg.PG.Enabled = wantPG
	cfg.CH.Enabled = wantCH

	st, err := store.Open(ctx, cfg, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// fail before any DDL runs against an unreachable backend
	if p, ok := st.PG.(store.Pinger); ok {
		repokit.MustPing(ctx, "postgres", p)
	}
	if p, ok := st.CH.(store.Pinger); ok {
		repokit.MustPing(ctx, "clickhouse", p)
	}

	if wantPG {
		if err := reportsrepo.WritePG(ctx, st.PG, docs); err != nil {
			l.Panic().Err(err).Msg("postgres load failed")
		}
		l.Info().Int("records", len(docs)).Strs("objects", reportsrepo.Objects(docs)).Msg("postgres catalog loaded")
	}
	if wantCH {
		// seq grows across loads so the newest copy of a record wins the merge
		base := uint64(time.Now().UnixMilli()) * 1000
		if err := reportsrepo.WriteCH(ctx, st.CH, docs, base); err != nil {
			l.Panic().Err(err).Msg("clickhouse load failed")
		}
		l.Info().Int("records", len(docs)).Strs("objects", reportsrepo.Objects(docs)).Msg("clickhouse catalog loaded")
	}
}

// @title         Reportdash API
// @version       0.3.0
// @description   Metric formulas over billing records

package main

import (
	"context"
	"os/signal"
	"syscall"

	"reportdash/internal/platform/config"
	"reportdash/internal/platform/logger"
	phttp "reportdash/internal/platform/net/http"
	"reportdash/internal/platform/store"

	"reportdash/internal/services/api"
)

func main() {
	// service-scoped config for HTTP and reports (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	// bring up logging early
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// backends are optional; the file catalog source needs neither
	st, err := store.Open(ctx, store.ConfigFromEnv(root, "api"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	if err := st.Guard(ctx); err != nil {
		l.Warn().Err(err).Msg("catalog backends not reachable at startup")
	}

	// http server (reads CORE_API_PORT)
	srv := phttp.NewServer(apiCfg)

	mods := api.Mount(
		srv.Router(),
		api.Options{
			Config:         apiCfg,
			Store:          st,
			Logger:         l,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)
	for _, m := range mods {
		l.Debug().Str("module", m.Name()).Msg("module mounted")
	}

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}

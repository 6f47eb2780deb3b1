// Package api provides the HTTP API for the application
package api

import (
	"time"

	"reportdash/internal/platform/config"
	"reportdash/internal/platform/logger"
	phttp "reportdash/internal/platform/net/http"
	"reportdash/internal/platform/store"

	"reportdash/internal/modkit"
	"reportdash/internal/modkit/httpkit"
	"reportdash/internal/modkit/module"
	"reportdash/internal/modkit/swaggerkit"

	metamod "reportdash/internal/services/api/meta/module"
	reportsmod "reportdash/internal/services/api/reports/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router and returns the mounted modules
func Mount(r phttp.Router, opt Options) []module.Module {
	deps := modkit.Deps{Cfg: opt.Config}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}
	if opt.Store != nil {
		deps.PG = opt.Store.PG
		deps.CH = opt.Store.CH
	}

	mods := []module.Module{
		metamod.New(deps),
		reportsmod.New(deps),
	}

	stack := httpkit.CommonStack(httpkit.StackOptions{
		Timeout: opt.Config.MayDuration("REQUEST_TIMEOUT", 60*time.Second),
		Slow:    opt.Config.MayDuration("SLOW_REQUEST", 2*time.Second),
		Origins: opt.Config.MayCSV("CORS_ORIGINS", nil),
	})

	swaggerkit.Mount(r, opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		for _, m := range mods {
			m.MountRoutes(api)
		}
	})
	return mods
}

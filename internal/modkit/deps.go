package modkit

import (
	"reportdash/internal/modkit/repokit"
	"reportdash/internal/platform/config"
	"reportdash/internal/platform/logger"
	"reportdash/internal/platform/store"
)

// Deps holds core dependencies passed to modules; PG and CH are nil when not configured
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}

// Package repokit provides common types and helpers for repository implementations
package repokit

import "reportdash/internal/platform/store"

// Queryer is the sql surface repos are bound to
type Queryer = store.RowQuerier

// TxRunner can execute a function inside a transaction
type TxRunner = store.TxRunner

type (
	// Rows are the result set of a query
	Rows = store.Rows
	// Row is a single row result
	Row = store.Row
)

// Package modkit provides module wiring and core deps
package modkit

import "reportdash/internal/modkit/module"

// Module is the surface API modules expose to the mount code
type Module = module.Module

// Builder constructs a Module from shared deps and options
type Builder func(Deps, ...Option) Module

// Package version reports the build stamp of the running binary
package version

// BuildInfo identifies a build
type BuildInfo struct {
	Service string `json:"service" example:"reportdash-api"`
	Version string `json:"version" example:"v0.3.0"`
	Commit  string `json:"commit" example:"9f1c2ab"`
	Date    string `json:"date" example:"2026-10-01"`
}

// Service is the default service name reported by Info
const Service = "reportdash-api"

// Info returns the stamp for Service
func Info() BuildInfo { return InfoFor(Service) }

// InfoFor returns the stamp under another binary name
func InfoFor(service string) BuildInfo {
	// Set via -ldflags "-X 'reportdash/internal/core/version.version=v0.3.0'
	// -X 'reportdash/internal/core/version.commit=abcd' -X 'reportdash/internal/core/version.date=2026-10-01'"
	return BuildInfo{
		Service: service,
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

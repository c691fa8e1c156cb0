// Package version provides build and version information.
package version

// Version is the current application version.
const Version = "0.3.0"

// Milestones:
// 0.3.0 - HTTP API with Prometheus metrics, session memo, envconfig configuration
// 0.2.0 - JPL Horizons position provider, sunrise/sunset context, JSON export
// 0.1.0 - Initial release: coverage calculator, local eclipse search, timeline scrubber

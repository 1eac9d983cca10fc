// Package logging configures the process-wide structured logger. Components
// derive their loggers from slog.Default with a "component" attribute.
package logging

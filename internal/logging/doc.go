// Package logging constructs the application's slog logger and provides
// attribute helpers so call sites stay consistent across packages.
package logging

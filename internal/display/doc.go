// Package display renders aggregator snapshots.
//
// TUI is a bubbletea program that redraws on a fixed tick; Headless logs
// each event through slog and a periodic summary line. Both implement
// Run(ctx) and return when the context ends or the user quits.
package display

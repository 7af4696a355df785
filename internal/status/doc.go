// Package status implements the shared status aggregator.
//
// The aggregator:
//   - Holds a bounded log of recent events (oldest evicted first)
//   - Counts total received traffic across all accounts
//   - Tracks per-account worker state for the display
//   - Fans new entries out to optional sinks (journal, headless logger)
//
// Workers only write; the display only reads via Snapshot.
package status

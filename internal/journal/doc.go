// Package journal persists status events to PostgreSQL in batches.
//
// The journal is a status.Sink: publishing never blocks a worker, and
// entries are dropped (and counted) when the buffer is full. Rows are
// append-only and never read back by this process.
package journal

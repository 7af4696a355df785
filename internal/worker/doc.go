// Package worker implements the per-account connection lifecycle.
//
// Each Worker cycles forever through:
//
//	Disconnected -> Connecting -> Connected -> Terminating -> Disconnected
//
// Connecting retries a bounded number of times per cycle. While Connected a
// ping loop and a listen loop run concurrently over the session; whichever
// ends first moves the worker to Terminating, where the worker goroutine
// (the only owner of the session) closes it and waits for the other loop.
// Every error is logged to the status aggregator and never returned.
package worker

package status

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Aggregator collects events, traffic, and per-account state from all
// workers. All methods are safe for concurrent use and never block on I/O.
type Aggregator struct {
	now func() time.Time

	startedAt time.Time

	mu       sync.Mutex
	buf      []Entry // Ring buffer of recent entries
	head     int     // Index of the oldest entry
	count    int
	capacity int
	traffic  int64
	accounts map[string]*AccountStatus

	sinksMu sync.RWMutex
	sinks   []Sink
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCapacity sets the event log size. Values < 1 are treated as 1.
func WithCapacity(n int) Option {
	return func(a *Aggregator) {
		if n < 1 {
			n = 1
		}
		a.capacity = n
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithSink registers a sink that receives every recorded entry.
func WithSink(s Sink) Option {
	return func(a *Aggregator) {
		a.sinks = append(a.sinks, s)
	}
}

// NewAggregator creates an aggregator. The start time is taken at creation.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		now:      time.Now,
		capacity: DefaultCapacity,
		accounts: make(map[string]*AccountStatus),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.buf = make([]Entry, a.capacity)
	a.startedAt = a.now()
	return a
}

// AddSink registers a sink after construction.
func (a *Aggregator) AddSink(s Sink) {
	a.sinksMu.Lock()
	a.sinks = append(a.sinks, s)
	a.sinksMu.Unlock()
}

// Capacity returns the configured event log size.
func (a *Aggregator) Capacity() int {
	return a.capacity
}

// RecordEvent appends an entry, evicting the oldest once the log is full.
// accountID may be empty for process-wide events.
func (a *Aggregator) RecordEvent(accountID, message string, severity Severity) {
	e := Entry{
		Time:      a.now(),
		AccountID: accountID,
		Message:   message,
		Severity:  severity,
	}

	a.mu.Lock()
	tail := (a.head + a.count) % a.capacity
	a.buf[tail] = e
	if a.count < a.capacity {
		a.count++
	} else {
		a.head = (a.head + 1) % a.capacity
	}
	if accountID != "" {
		a.account(accountID).LastMessage = message
	}
	a.mu.Unlock()

	a.sinksMu.RLock()
	for _, s := range a.sinks {
		s.Publish(e)
	}
	a.sinksMu.RUnlock()
}

// Eventf is RecordEvent with fmt.Sprintf formatting.
func (a *Aggregator) Eventf(accountID string, severity Severity, format string, args ...any) {
	a.RecordEvent(accountID, fmt.Sprintf(format, args...), severity)
}

// AddTraffic adds n bytes to the process-wide traffic counter.
// Negative values are ignored so the counter never decreases.
func (a *Aggregator) AddTraffic(n int) {
	if n <= 0 {
		return
	}
	a.mu.Lock()
	a.traffic += int64(n)
	a.mu.Unlock()
}

// AddAccountTraffic attributes n bytes to an account and to the total.
func (a *Aggregator) AddAccountTraffic(accountID string, n int) {
	if n <= 0 {
		return
	}
	a.mu.Lock()
	a.traffic += int64(n)
	a.account(accountID).Traffic += int64(n)
	a.mu.Unlock()
}

// Register makes an account visible in snapshots before its first event.
func (a *Aggregator) Register(accountID string) {
	a.mu.Lock()
	a.account(accountID)
	a.mu.Unlock()
}

// SetState records a worker state transition.
func (a *Aggregator) SetState(accountID string, state State) {
	a.mu.Lock()
	defer a.mu.Unlock()

	acc := a.account(accountID)
	if acc.State == state {
		return
	}
	prev := acc.State
	acc.State = state
	acc.StateSince = a.now()
	switch {
	case state == StateConnected:
		acc.Connects++
	case state == StateDisconnected && prev == StateTerminating:
		acc.Restarts++
	}
}

// Uptime returns the time elapsed since the aggregator was created.
func (a *Aggregator) Uptime() time.Duration {
	return a.now().Sub(a.startedAt)
}

// TotalTraffic returns the total bytes received so far.
func (a *Aggregator) TotalTraffic() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.traffic
}

// Len returns the number of entries currently held.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// Snapshot returns a copy of the current state. Events are ordered oldest
// first; accounts are sorted by ID.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	events := make([]Entry, a.count)
	for i := 0; i < a.count; i++ {
		events[i] = a.buf[(a.head+i)%a.capacity]
	}

	accounts := make([]AccountStatus, 0, len(a.accounts))
	for _, acc := range a.accounts {
		accounts = append(accounts, *acc)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountID < accounts[j].AccountID
	})

	now := a.now()
	return Snapshot{
		StartedAt:    a.startedAt,
		Uptime:       now.Sub(a.startedAt),
		Events:       events,
		TotalTraffic: a.traffic,
		Accounts:     accounts,
	}
}

// account returns the status record for id, creating it. Caller holds mu.
func (a *Aggregator) account(id string) *AccountStatus {
	acc, ok := a.accounts[id]
	if !ok {
		acc = &AccountStatus{AccountID: id, State: StateDisconnected}
		a.accounts[id] = acc
	}
	return acc
}

// FormatUptime renders a duration as "01h 02m 03s".
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02dh %02dm %02ds", hours, minutes, seconds)
}

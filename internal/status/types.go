package status

import "time"

// Severity tags a log entry for coloring.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeveritySuccess
	SeverityWarning
	SeverityError
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the lifecycle state of an account worker.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateTerminating  State = "terminating"
)

// Entry is one immutable event in the connection log.
type Entry struct {
	Time      time.Time
	AccountID string // Empty for process-wide events
	Message   string
	Severity  Severity
}

// AccountStatus is the per-account view exposed in snapshots.
type AccountStatus struct {
	AccountID   string
	State       State
	Connects    int64 // Successful connects
	Restarts    int64 // Completed cycles (successful or not)
	Traffic     int64 // Bytes received
	StateSince  time.Time
	LastMessage string
}

// Snapshot is a point-in-time copy of the aggregator.
type Snapshot struct {
	StartedAt    time.Time
	Uptime       time.Duration
	Events       []Entry
	TotalTraffic int64
	Accounts     []AccountStatus
}

// ConnectedCount returns how many accounts are currently connected.
func (s Snapshot) ConnectedCount() int {
	n := 0
	for _, a := range s.Accounts {
		if a.State == StateConnected {
			n++
		}
	}
	return n
}

// Sink receives every recorded entry. Publish must not block.
type Sink interface {
	Publish(e Entry)
}

// SinkFunc is a function adapter for Sink.
type SinkFunc func(Entry)

func (f SinkFunc) Publish(e Entry) {
	f(e)
}

// DefaultCapacity is the default event log size.
const DefaultCapacity = 30

package worker

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rickgao/session-keeper/internal/status"
)

// Errors
var (
	ErrAttemptsExhausted = errors.New("connect attempts exhausted")
	ErrLoopPanic         = errors.New("session loop panicked")
)

// Reporter receives worker events. *status.Aggregator implements it.
type Reporter interface {
	RecordEvent(accountID, message string, severity status.Severity)
	AddAccountTraffic(accountID string, n int)
	SetState(accountID string, state status.State)
}

// Config configures a Worker.
type Config struct {
	PingInterval    time.Duration // Heartbeat period while connected
	ConnectAttempts int           // Max dial attempts per cycle
	RetryDelay      time.Duration // Wait between failed dial attempts
	RestartDelay    time.Duration // Wait before starting the next cycle
	RestartJitter   time.Duration // Random extra restart wait in [0, jitter)
	PreviewLength   int           // Characters of each frame to log
	Heartbeat       []byte        // Payload sent every PingInterval
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PingInterval:    10 * time.Second,
		ConnectAttempts: 5,
		RetryDelay:      5 * time.Second,
		RestartDelay:    5 * time.Second,
		PreviewLength:   100,
		Heartbeat:       DefaultHeartbeat(),
	}
}

// heartbeat is the ping frame body.
type heartbeat struct {
	Type string `json:"type"`
}

// DefaultHeartbeat returns {"type":"PING"}.
func DefaultHeartbeat() []byte {
	data, _ := json.Marshal(heartbeat{Type: "PING"})
	return data
}

// Stats counts a worker's activity since start.
type Stats struct {
	Cycles          int64 // Completed connect cycles
	Sessions        int64 // Successful connects
	ConnectFailures int64 // Failed dial attempts
	Closes          int64 // Sessions closed by this worker
}

// cycleResult describes how one cycle ended.
type cycleResult struct {
	attempts  int    // Dial attempts made this cycle
	connected bool   // A session was established
	endedBy   string // "ping", "listen", "shutdown", or "" if never connected
	err       error
}

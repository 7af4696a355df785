package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/rickgao/session-keeper/internal/session"
	"github.com/rickgao/session-keeper/internal/worker"
)

// Display modes.
const (
	ModeAuto     = "auto"
	ModeTUI      = "tui"
	ModeHeadless = "headless"
)

// Config is the root configuration for a session-keeper process.
type Config struct {
	AccountsFile string         `yaml:"accounts_file"`
	Endpoint     EndpointConfig `yaml:"endpoint"`
	Worker       WorkerConfig   `yaml:"worker"`
	Status       StatusConfig   `yaml:"status"`
	Display      DisplayConfig  `yaml:"display"`
	Journal      JournalConfig  `yaml:"journal"`
	Logging      LoggingConfig  `yaml:"logging"`
}

// EndpointConfig describes the remote websocket service.
type EndpointConfig struct {
	URL              string        `yaml:"url"`
	Version          string        `yaml:"version"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	UserAgent        string        `yaml:"user_agent"`
}

// WorkerConfig holds per-account keep-alive settings.
type WorkerConfig struct {
	PingInterval    time.Duration `yaml:"ping_interval"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	RestartDelay    time.Duration `yaml:"restart_delay"`
	RestartJitter   time.Duration `yaml:"restart_jitter"`
	PreviewLength   int           `yaml:"preview_length"`
}

// StatusConfig sizes the shared event log.
type StatusConfig struct {
	LogCapacity int `yaml:"log_capacity"`
}

// DisplayConfig selects and paces the status display.
type DisplayConfig struct {
	Mode            string        `yaml:"mode"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	SummaryInterval time.Duration `yaml:"summary_interval"` // Headless only
}

// JournalConfig holds the optional event journal settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Table         string        `yaml:"table"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	Database      DBConfig      `yaml:"database"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// SlogLevel parses Level. An empty level is info.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	err := level.UnmarshalText([]byte(strings.ToUpper(l.Level)))
	return level, err
}

// SessionConfig converts the endpoint section for the websocket dialer.
func (c *Config) SessionConfig() session.Config {
	return session.Config{
		URL:              c.Endpoint.URL,
		Version:          c.Endpoint.Version,
		HandshakeTimeout: c.Endpoint.HandshakeTimeout,
		WriteTimeout:     c.Endpoint.WriteTimeout,
		UserAgent:        c.Endpoint.UserAgent,
	}
}

// WorkerConfig converts the worker section. The heartbeat payload is fixed.
func (c *Config) WorkerConfig() worker.Config {
	return worker.Config{
		PingInterval:    c.Worker.PingInterval,
		ConnectAttempts: c.Worker.ConnectAttempts,
		RetryDelay:      c.Worker.RetryDelay,
		RestartDelay:    c.Worker.RestartDelay,
		RestartJitter:   c.Worker.RestartJitter,
		PreviewLength:   c.Worker.PreviewLength,
		Heartbeat:       worker.DefaultHeartbeat(),
	}
}

package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAccountsFile     = "accounts.json"
	DefaultEndpointURL      = "wss://secure.ws.teneo.pro/websocket"
	DefaultEndpointVersion  = "v0.2"
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultUserAgent        = "session-keeper"
	DefaultPingInterval     = 10 * time.Second
	DefaultConnectAttempts  = 5
	DefaultRetryDelay       = 5 * time.Second
	DefaultRestartDelay     = 5 * time.Second
	DefaultPreviewLength    = 100
	DefaultLogCapacity      = 30
	DefaultDisplayMode      = ModeAuto
	DefaultRefreshInterval  = 250 * time.Millisecond
	DefaultSummaryInterval  = 30 * time.Second
	DefaultJournalTable     = "session_events"
	DefaultBatchSize        = 100
	DefaultFlushInterval    = 2 * time.Second
	DefaultBufferSize       = 1000
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 4
	DefaultMinConns         = 1
	DefaultLogLevel         = "info"
)

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero values. A zero RestartJitter stays zero.
func (c *Config) applyDefaults() {
	if c.AccountsFile == "" {
		c.AccountsFile = DefaultAccountsFile
	}

	// Endpoint defaults
	if c.Endpoint.URL == "" {
		c.Endpoint.URL = DefaultEndpointURL
	}
	if c.Endpoint.Version == "" {
		c.Endpoint.Version = DefaultEndpointVersion
	}
	if c.Endpoint.HandshakeTimeout == 0 {
		c.Endpoint.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Endpoint.WriteTimeout == 0 {
		c.Endpoint.WriteTimeout = DefaultWriteTimeout
	}
	if c.Endpoint.UserAgent == "" {
		c.Endpoint.UserAgent = DefaultUserAgent
	}

	// Worker defaults
	if c.Worker.PingInterval == 0 {
		c.Worker.PingInterval = DefaultPingInterval
	}
	if c.Worker.ConnectAttempts == 0 {
		c.Worker.ConnectAttempts = DefaultConnectAttempts
	}
	if c.Worker.RetryDelay == 0 {
		c.Worker.RetryDelay = DefaultRetryDelay
	}
	if c.Worker.RestartDelay == 0 {
		c.Worker.RestartDelay = DefaultRestartDelay
	}
	if c.Worker.PreviewLength == 0 {
		c.Worker.PreviewLength = DefaultPreviewLength
	}

	if c.Status.LogCapacity == 0 {
		c.Status.LogCapacity = DefaultLogCapacity
	}

	// Display defaults
	if c.Display.Mode == "" {
		c.Display.Mode = DefaultDisplayMode
	}
	if c.Display.RefreshInterval == 0 {
		c.Display.RefreshInterval = DefaultRefreshInterval
	}
	if c.Display.SummaryInterval == 0 {
		c.Display.SummaryInterval = DefaultSummaryInterval
	}

	// Journal defaults
	if c.Journal.Table == "" {
		c.Journal.Table = DefaultJournalTable
	}
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultBufferSize
	}
	applyDBDefaults(&c.Journal.Database)

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

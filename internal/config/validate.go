package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

// tableName matches an optionally schema-qualified SQL identifier.
var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.AccountsFile == "" {
		return errors.New("accounts_file is required")
	}

	if err := c.Endpoint.validate(); err != nil {
		return err
	}

	if c.Worker.PingInterval <= 0 {
		return errors.New("worker.ping_interval must be > 0")
	}
	if c.Worker.ConnectAttempts < 1 {
		return errors.New("worker.connect_attempts must be >= 1")
	}
	if c.Worker.RetryDelay < 0 {
		return errors.New("worker.retry_delay must be >= 0")
	}
	if c.Worker.RestartDelay < 0 {
		return errors.New("worker.restart_delay must be >= 0")
	}
	if c.Worker.RestartJitter < 0 {
		return errors.New("worker.restart_jitter must be >= 0")
	}
	if c.Worker.PreviewLength < 1 {
		return errors.New("worker.preview_length must be >= 1")
	}

	if c.Status.LogCapacity < 1 {
		return errors.New("status.log_capacity must be >= 1")
	}

	switch c.Display.Mode {
	case ModeAuto, ModeTUI, ModeHeadless:
	default:
		return fmt.Errorf("display.mode must be one of auto, tui, headless, got %q", c.Display.Mode)
	}
	if c.Display.RefreshInterval <= 0 {
		return errors.New("display.refresh_interval must be > 0")
	}
	if c.Display.SummaryInterval <= 0 {
		return errors.New("display.summary_interval must be > 0")
	}

	if c.Journal.Enabled {
		if err := c.Journal.validate(); err != nil {
			return err
		}
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		return fmt.Errorf("logging.level %q is invalid", c.Logging.Level)
	}

	return nil
}

func (e *EndpointConfig) validate() error {
	if e.URL == "" {
		return errors.New("endpoint.url is required")
	}
	u, err := url.Parse(e.URL)
	if err != nil {
		return fmt.Errorf("endpoint.url is invalid: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("endpoint.url scheme must be ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("endpoint.url host is required")
	}
	if e.Version == "" {
		return errors.New("endpoint.version is required")
	}
	if e.HandshakeTimeout < 0 {
		return errors.New("endpoint.handshake_timeout must be >= 0")
	}
	return nil
}

func (j *JournalConfig) validate() error {
	if !tableName.MatchString(j.Table) {
		return fmt.Errorf("journal.table %q is not a valid table name", j.Table)
	}
	if j.BatchSize < 1 {
		return errors.New("journal.batch_size must be >= 1")
	}
	if j.BufferSize < 1 {
		return errors.New("journal.buffer_size must be >= 1")
	}
	if j.FlushInterval <= 0 {
		return errors.New("journal.flush_interval must be > 0")
	}
	return j.Database.validate("journal.database")
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

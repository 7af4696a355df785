package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/rickgao/session-keeper/internal/config"
)

// BuildConnString builds a PostgreSQL connection URL from config.
// User and password are escaped so special characters survive.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}
	port := cfg.Port
	if port == 0 {
		port = config.DefaultDBPort
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

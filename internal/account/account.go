package account

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Errors
var (
	ErrNotFound     = errors.New("accounts file not found")
	ErrMalformed    = errors.New("invalid accounts file format")
	ErrNoAccounts   = errors.New("accounts file contains no accounts")
	ErrInvalidProxy = errors.New("invalid proxy descriptor")
)

// Credential is one configured account. It is immutable after loading.
type Credential struct {
	AccountID   string `yaml:"account_id" json:"account_id"`
	AccessToken string `yaml:"access_token" json:"access_token"`
	Proxy       string `yaml:"proxy,omitempty" json:"proxy,omitempty"`
}

// String describes the credential without exposing the token.
func (c Credential) String() string {
	proxy := "direct"
	if c.Proxy != "" {
		if u, err := ParseProxy(c.Proxy); err == nil {
			proxy = u.Scheme + "://" + u.Host
		} else {
			proxy = "invalid"
		}
	}
	return fmt.Sprintf("account %s (token %s, %s)", c.AccountID, MaskToken(c.AccessToken), proxy)
}

// Endpoint builds the websocket URL for this account.
func (c Credential) Endpoint(base, version string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse endpoint url: %w", err)
	}
	q := u.Query()
	q.Set("accessToken", c.AccessToken)
	if version != "" {
		q.Set("version", version)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ProxyURL returns the parsed proxy, or nil when the account dials directly.
func (c Credential) ProxyURL() (*url.URL, error) {
	if c.Proxy == "" {
		return nil, nil
	}
	return ParseProxy(c.Proxy)
}

// Load reads and validates the accounts file at path.
func Load(path string) ([]Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates an accounts document. JSON input is accepted
// because it is a subset of YAML.
func Parse(data []byte) ([]Credential, error) {
	var creds []Credential
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := Validate(creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// Validate checks required fields, uniqueness, and proxy syntax.
func Validate(creds []Credential) error {
	if len(creds) == 0 {
		return ErrNoAccounts
	}

	seen := make(map[string]int, len(creds))
	for i, c := range creds {
		if c.AccountID == "" {
			return fmt.Errorf("%w: accounts[%d].account_id is required", ErrMalformed, i)
		}
		if c.AccessToken == "" {
			return fmt.Errorf("%w: accounts[%d].access_token is required", ErrMalformed, i)
		}
		if j, dup := seen[c.AccountID]; dup {
			return fmt.Errorf("%w: accounts[%d] duplicates account_id %q from accounts[%d]", ErrMalformed, i, c.AccountID, j)
		}
		seen[c.AccountID] = i
		if c.Proxy != "" {
			if _, err := ParseProxy(c.Proxy); err != nil {
				return fmt.Errorf("accounts[%d].proxy: %w", i, err)
			}
		}
	}
	return nil
}

// ParseProxy accepts "host:port" (treated as HTTP) or a URL with scheme
// http or socks5 and optional user info. Other schemes are rejected here
// because the websocket dialer cannot tunnel through them.
func ParseProxy(descriptor string) (*url.URL, error) {
	descriptor = strings.TrimSpace(descriptor)
	if !strings.Contains(descriptor, "://") {
		descriptor = "http://" + descriptor
	}

	u, err := url.Parse(descriptor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}

	switch u.Scheme {
	case "http", "socks5":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}

	host, port, err := net.SplitHostPort(u.Host)
	if err != nil || host == "" || port == "" {
		return nil, fmt.Errorf("%w: missing host:port", ErrInvalidProxy)
	}
	return u, nil
}

// MaskToken keeps the first and last four characters of a token.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

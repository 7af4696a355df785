package config

import "fmt"

// StartupError is a fatal error raised before any worker starts: a missing
// or malformed config or accounts file.
type StartupError struct {
	Op  string // What was being loaded, e.g. "load config"
	Err error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

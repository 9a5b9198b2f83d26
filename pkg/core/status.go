package core

import "fmt"

// SessionStatus represents the execution status of one device session
type SessionStatus int

const (
	StatusPending SessionStatus = iota // Not yet started
	StatusRunning                      // Currently executing
	StatusPassed                       // Journey completed
	StatusFailed                       // A screen interaction failed
	StatusErrored                      // Session could not be created or was lost
)

// String returns the string representation of SessionStatus
func (s SessionStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the status is a final state
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusErrored:
		return true
	default:
		return false
	}
}

// IsSuccess returns true if the status indicates success
func (s SessionStatus) IsSuccess() bool {
	return s == StatusPassed
}

// ErrorCategory classifies the type of error for reporting
type ErrorCategory int

const (
	ErrCategoryNone    ErrorCategory = iota // No error
	ErrCategoryConfig                       // Invalid configuration, missing required option
	ErrCategoryData                         // Malformed JSON or missing expected field
	ErrCategoryRemote                       // Upload, lookup, inventory or session call failed
	ErrCategoryProcess                      // Tunnel process start/stop failed
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryConfig:
		return "config"
	case ErrCategoryData:
		return "data"
	case ErrCategoryRemote:
		return "remote"
	case ErrCategoryProcess:
		return "process"
	default:
		return "unknown"
	}
}

// MarshalText renders the status name in JSON reports
func (s SessionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name written by MarshalText
func (s *SessionStatus) UnmarshalText(text []byte) error {
	for c := StatusPending; c <= StatusErrored; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown session status %q", text)
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrRateLimited         = errors.New("rate limited")
	ErrLockHeld            = errors.New("lock already held")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// ValidationError marks a single malformed record or request parameter. It is
// localized to the offending record: batch operations collect these as
// diagnostics and continue with the rest of the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// ConfigurationError marks missing or unusable configuration. It is fatal to
// the call that needs the configuration; money-affecting settings such as the
// fee model are never silently defaulted.
type ConfigurationError struct {
	Section string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Section, e.Reason)
}

// Diagnostic reports one excluded input record alongside a successful partial
// result. Record is the zero-based index into the input batch; Source is set
// instead when the diagnostic concerns an upstream collaborator rather than a
// record.
type Diagnostic struct {
	Record int    `json:"record,omitempty"`
	Source string `json:"source,omitempty"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

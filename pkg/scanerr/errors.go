// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package scanerr defines the domain-coded error type used throughout the
// scanner: setup failures, device-open failures, and the other hard-error
// classes named by the error handling design. Per-sector I/O errors are not
// represented here — those are absorbed into counters and log records by
// the scan engine, never propagated as Go errors.
package scanerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the hard failures the engine and prober must report.
var (
	ErrNotABlockDevice = &ScanError{
		Code:       ProbeNotABlockDevice,
		Domain:     DomainProbe,
		Message:    errorDefinitions[ProbeNotABlockDevice].message,
		HTTPStatus: errorDefinitions[ProbeNotABlockDevice].httpStatus,
	}

	ErrNotFound = &ScanError{
		Code:       ProbeNotFound,
		Domain:     DomainProbe,
		Message:    errorDefinitions[ProbeNotFound].message,
		HTTPStatus: errorDefinitions[ProbeNotFound].httpStatus,
	}

	ErrPermissionDenied = &ScanError{
		Code:       ProbePermissionDenied,
		Domain:     DomainProbe,
		Message:    errorDefinitions[ProbePermissionDenied].message,
		HTTPStatus: errorDefinitions[ProbePermissionDenied].httpStatus,
	}

	ErrBlockSizeNotAligned = &ScanError{
		Code:       SetupBlockSizeInvalid,
		Domain:     DomainSetup,
		Message:    errorDefinitions[SetupBlockSizeInvalid].message,
		HTTPStatus: errorDefinitions[SetupBlockSizeInvalid].httpStatus,
	}
)

// ScanError is the structured error type returned across every package
// boundary in this module. Its shape (code, domain, message, metadata) is
// the same whether it originates from option validation, probing, or the
// engine's setup phase.
type ScanError struct {
	Code       ErrorCode `json:"code"`
	Domain     Domain    `json:"domain"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	HTTPStatus int       `json:"-"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

func (e *ScanError) Error() string {
	msg := fmt.Sprintf("[%s-%d] %s", e.Domain, e.Code, e.Message)
	if e.Details != "" {
		msg += " - " + e.Details
	}
	if e.Metadata != nil {
		if stderr, ok := e.Metadata["stderr"]; ok && stderr != "" {
			msg += "\ncommand output: " + stderr
		}
	}
	return msg
}

// WithMetadata attaches a structured key/value to the error and returns it
// for chaining.
func (e *ScanError) WithMetadata(key, value string) *ScanError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// New creates a new ScanError for a registered code.
func New(code ErrorCode, details string) *ScanError {
	def, ok := errorDefinitions[code]
	if !ok {
		return &ScanError{
			Code:       code,
			Domain:     "UNKNOWN",
			Message:    "unknown error",
			Details:    details,
			HTTPStatus: 500,
		}
	}

	return &ScanError{
		Code:       code,
		Domain:     def.domain,
		Message:    def.message,
		Details:    details,
		HTTPStatus: def.httpStatus,
	}
}

// Is implements errors.Is support: two ScanErrors match by code and domain.
func (e *ScanError) Is(target error) bool {
	if t, ok := target.(*ScanError); ok {
		return e.Code == t.Code && e.Domain == t.Domain
	}
	return false
}

// Wrap re-codes err as a new ScanError, preserving metadata when err is
// itself a ScanError.
func Wrap(err error, code ErrorCode) *ScanError {
	if se, ok := err.(*ScanError); ok {
		newErr := New(code, se.Details)
		for k, v := range se.Metadata {
			newErr.WithMetadata(k, v)
		}
		newErr.WithMetadata("wrapped_code", fmt.Sprintf("%d", se.Code))
		newErr.WithMetadata("wrapped_domain", string(se.Domain))
		newErr.WithMetadata("wrapped_message", se.Message)
		return newErr
	}
	return New(code, err.Error())
}

// Unwrap returns a plain error carrying the message of the ScanError that
// Wrap re-coded, when present; the original value itself is not kept.
func (e *ScanError) Unwrap() error {
	if e.Metadata != nil {
		if original, ok := e.Metadata["wrapped_message"]; ok {
			return errors.New(original)
		}
	}
	return nil
}

// GetCode extracts the ErrorCode from err, unwrapping through the standard
// errors.As chain when necessary.
func GetCode(err error) (ErrorCode, bool) {
	if err == nil {
		return 0, false
	}
	if se, ok := err.(*ScanError); ok {
		return se.Code, true
	}
	var se *ScanError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// ErrorEnvelope is the JSON-serializable form of an error, used by the
// watch daemon's failure diagnostics (no HTTP server is exposed; this is
// the status payload an external supervisor polling the daemon's stderr
// would parse). ScanError.HTTPStatus itself is tagged json:"-", so the
// envelope recomputes it via GetHTTPStatus.
type ErrorEnvelope struct {
	Code       ErrorCode         `json:"code"`
	Domain     Domain            `json:"domain"`
	Message    string            `json:"message"`
	Details    string            `json:"details,omitempty"`
	HTTPStatus int               `json:"http_status"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// NewEnvelope builds the JSON form of err.
func NewEnvelope(err error) ErrorEnvelope {
	env := ErrorEnvelope{HTTPStatus: GetHTTPStatus(err)}
	var se *ScanError
	if errors.As(err, &se) {
		env.Code = se.Code
		env.Domain = se.Domain
		env.Message = se.Message
		env.Details = se.Details
		env.Metadata = se.Metadata
		return env
	}
	env.Message = err.Error()
	return env
}

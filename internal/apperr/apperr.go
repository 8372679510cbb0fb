// Package apperr distinguishes the error kinds of the design by behaviour
// rather than by concrete type, so handlers and the batch worker can branch
// with errors.Is/errors.As instead of matching message strings.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindEngineUnavailable   Kind = "engine_unavailable"
	KindEngineDiedMidQuery  Kind = "engine_died_mid_query"
	KindPositionParseFailed Kind = "position_parse_failed"
	KindReanalysisAborted   Kind = "reanalysis_aborted"
	KindPVUnavailable       Kind = "pv_unavailable"
	KindImportNetworkError  Kind = "import_network_error"
	KindNotFound            Kind = "not_found"
)

// Error wraps an underlying cause with a behavioural Kind and, for
// engine-unavailable, remediation text suitable for display.
type Error struct {
	Kind        Kind
	Message     string
	Remediation string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func EngineUnavailable(message string, err error) *Error {
	return &Error{
		Kind:    KindEngineUnavailable,
		Message: message,
		Err:     err,
		Remediation: "Install Stockfish and either place it on PATH or set the " +
			"ENGINE_BINARY_PATH environment variable to its location.",
	}
}

func Is(err error, kind Kind) bool {
	var ae *Error
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Kind == kind
}

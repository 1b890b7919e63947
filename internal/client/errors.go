package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed call so callers can react without string matching.
type Kind int

const (
	// KindHTTP is any non-success status without a more specific kind.
	KindHTTP Kind = iota
	KindNetwork
	KindDecode
	KindCanceled
	KindAuth
	KindValidation
	KindResource
)

// String returns the kind name used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	case KindCanceled:
		return "canceled"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Error is the single failure shape surfaced to views. Error() returns only
// the human-readable message; the cause stays reachable through Unwrap.
type Error struct {
	Err     error
	Op      string
	Message string
	Kind    Kind
	Status  int
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a client-side validation failure for op.
func Validation(op, message string) *Error {
	return &Error{Op: op, Kind: KindValidation, Message: message}
}

// KindOf returns the kind of err, or KindNetwork for errors that did not come
// from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return KindNetwork
}

// Message converts any error into a readable string.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Normalize converts err into *Error, keeping an existing *Error as is.
func Normalize(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Op: op, Kind: KindCanceled, Message: "request canceled", Err: err}
	}
	return &Error{Op: op, Kind: KindNetwork, Message: err.Error(), Err: err}
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusNotFound
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusNotFound, http.StatusConflict, http.StatusGone:
		return KindResource
	default:
		return KindHTTP
	}
}

// messageFromBody extracts the server message from a JSON error body. The
// "error" field wins over "message"; "error" may itself be an object.
func messageFromBody(body []byte, status int) string {
	fallback := fmt.Sprintf("request failed with status %d", status)

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return fallback
	}

	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}

	if len(payload.Error) > 0 {
		var s string
		if err := json.Unmarshal(payload.Error, &s); err == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
	}

	if payload.Message != "" {
		return payload.Message
	}
	return fallback
}

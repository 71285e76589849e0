package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Op     string
	Status int
	// Detail is the server's human-readable reason, empty when the body
	// carried none.
	Detail string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Status)
}

// TransportError means no response arrived: DNS, refused, timeout or
// cancellation.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError is a 2xx answer whose body could not be decoded.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: failed to decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// AsStatus extracts a *StatusError from err's chain.
func AsStatus(err error) (*StatusError, bool) {
	var se *StatusError
	ok := errors.As(err, &se)
	return se, ok
}

// IsTransport reports whether err means the server was not reached.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// extractDetail pulls the reason out of an error body. It understands
// {"detail": "..."}, FastAPI validation arrays {"detail": [{"msg": ...}]},
// and {"error"|"message": "..."}.
func extractDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if len(payload.Detail) > 0 {
		if d := detailText(payload.Detail); d != "" {
			return d
		}
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}

func detailText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		for _, item := range items {
			if item.Msg != "" {
				return item.Msg
			}
		}
		return ""
	}

	var obj struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		return obj.Msg
	}
	return ""
}

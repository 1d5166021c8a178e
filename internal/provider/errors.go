package provider

import (
	"fmt"
	"time"
)

// ErrorKind classifies why a fetch failed.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota
	KindHTTP
	KindDecode
	KindProvider
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindDecode:
		return "decode"
	case KindProvider:
		return "provider"
	default:
		return "unknown"
	}
}

// Error is returned by Client for every failed fetch.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	// RetryAfter is only set when the provider sent a Retry-After header.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("HTTP %d: %s", e.StatusCode, msg)
	}
	if e.RetryAfter > 0 {
		msg = fmt.Sprintf("%s (retry after %s)", msg, e.RetryAfter)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

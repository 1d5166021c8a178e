package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/pders01/pixl/internal/provider"
)

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// failureReason is the short cause shown next to the retry hint.
func failureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case provider.IsKind(err, provider.KindNetwork):
		return "network error"
	case provider.IsKind(err, provider.KindHTTP):
		var pe *provider.Error
		if errors.As(err, &pe) && pe.StatusCode != 0 {
			return fmt.Sprintf("HTTP %d", pe.StatusCode)
		}
		return "HTTP error"
	case provider.IsKind(err, provider.KindDecode):
		return "unreadable response"
	case provider.IsKind(err, provider.KindProvider):
		return "rejected by provider"
	default:
		return "unexpected error"
	}
}

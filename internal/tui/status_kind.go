package tui

import "github.com/pders01/pixl/internal/gallery"

// StatusKind indicates severity for status messages/spinners.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarn
	StatusError
)

// noticeKind maps a session event to the severity it is shown with.
func noticeKind(kind gallery.EventKind) StatusKind {
	switch kind {
	case gallery.EventFound:
		return StatusSuccess
	case gallery.EventNothingFound:
		return StatusWarn
	default:
		return StatusInfo
	}
}

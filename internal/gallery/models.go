package gallery

import (
	"github.com/google/uuid"

	"github.com/pders01/pixl/internal/provider"
)

const (
	// DefaultPageSize matches the provider page size the gallery was tuned for.
	DefaultPageSize = 12

	// MinResultsForPager is the accumulated-image floor below which paging
	// is not offered. It is a fixed count, not derived from the page size.
	MinResultsForPager = 11
)

// Image is a provider hit re-tagged with a locally unique ID.
type Image struct {
	ID            string
	LargeImageURL string
	Tags          string
	Hit           provider.Hit
}

// Selection is the image shown in the detail overlay.
type Selection struct {
	URL     string
	AltText string
}

// TokenGenerator hands out unique IDs for fetched images.
type TokenGenerator interface {
	NewToken() string
}

// TokenFunc adapts a plain function to TokenGenerator.
type TokenFunc func() string

func (f TokenFunc) NewToken() string { return f() }

// UUIDTokens generates random UUIDv4 tokens.
type UUIDTokens struct{}

func (UUIDTokens) NewToken() string { return uuid.NewString() }

// Status is the coarse view state derived from a Snapshot.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusResults
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusResults:
		return "results"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only copy of session state.
type Snapshot struct {
	Query      string
	Page       int
	PageSize   int
	Images     []Image
	TotalPages int
	Loading    bool
	Err        error
	Selected   *Selection
	Epoch      uint64
}

// Status derives the view state.
func (s Snapshot) Status() Status {
	switch {
	case isBlank(s.Query):
		return StatusIdle
	case s.Loading:
		return StatusLoading
	case s.Err != nil:
		return StatusFailed
	case len(s.Images) > 0:
		return StatusResults
	default:
		return StatusEmpty
	}
}

// CanLoadMore is the pager guard.
func (s Snapshot) CanLoadMore() bool {
	return !s.Loading &&
		s.Err == nil &&
		s.Page < s.TotalPages &&
		len(s.Images) >= MinResultsForPager
}

package search

import "github.com/pders01/pixl/internal/gallery"

// Result is a scored match against an indexed image.
type Result struct {
	ID    string
	Score float64
}

// Searcher defines the minimal search API used by the TUI.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
}

// Indexer is implemented by searchers that are fed gallery images as
// pages arrive.
type Indexer interface {
	Add(images []gallery.Image) error
	Reset() error
}

// DebugStatser provides lightweight stats for visibility/debugging.
type DebugStatser interface {
	DocCount() (int, error)
}

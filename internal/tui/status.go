package tui

import (
	"fmt"
)

// Canonical short status messages used across the app.
const (
	MsgLoading     = "Loading…"
	MsgLoadingMore = "Loading more…"
	MsgRendering   = "Rendering preview…"
	MsgErrorHint   = "Something went wrong. Submit a new search to try again"
	MsgNoImages    = "No images"
	MsgNoMatches   = "No images match the filter"
)

func MsgImagesCount(n int) string {
	if n == 1 {
		return "1 image"
	}
	return fmt.Sprintf("%d images", n)
}

func MsgPageOf(page, total int) string {
	return fmt.Sprintf("page %d of %d", page, total)
}

func MsgFilterCount(shown, total int) string {
	return fmt.Sprintf("%d of %d match", shown, total)
}

func MsgOpened(url string) string {
	return "Opened " + truncateMiddle(url, 60)
}

func MsgLoadMoreHint(key string, next, total int) string {
	return fmt.Sprintf("%s: load more (%s)", key, MsgPageOf(next, total))
}

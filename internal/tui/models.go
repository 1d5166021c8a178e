package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/pixl/internal/gallery"
)

type View int

const (
	ViewSearch View = iota
	ViewGallery
	ViewFilter
	ViewDetail
)

func (v View) String() string {
	switch v {
	case ViewSearch:
		return "search"
	case ViewGallery:
		return "gallery"
	case ViewFilter:
		return "filter"
	case ViewDetail:
		return "detail"
	default:
		return "unknown"
	}
}

type imagesFetchedMsg struct {
	outcome gallery.Outcome
}

type detailRenderedMsg struct {
	id      string
	content string
}

type previewRenderedMsg struct {
	id      string
	content string
	err     error
}

type openedMsg struct {
	url string
	err error
}

type noticeExpiredMsg struct {
	seq int
}

type errorMsg struct {
	err error
}

type imageItem struct {
	img gallery.Image
}

func (i imageItem) Title() string {
	if i.img.Tags == "" {
		return "untitled"
	}
	return i.img.Tags
}

func (i imageItem) Description() string {
	h := i.img.Hit
	parts := fmt.Sprintf("%d×%d", h.ImageWidth, h.ImageHeight)
	if h.User != "" {
		parts = "by " + h.User + " • " + parts
	}
	if h.Likes > 0 {
		parts += fmt.Sprintf(" • ♥ %d", h.Likes)
	}
	return lipgloss.NewStyle().Foreground(MutedColor).Render(parts)
}

func (i imageItem) FilterValue() string { return i.img.Tags }

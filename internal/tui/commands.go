package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/pixl/internal/gallery"
)

func (a *App) fetchImages(req gallery.FetchRequest) tea.Cmd {
	ctx := a.ctx
	fetcher := a.fetcher
	return func() tea.Msg {
		return imagesFetchedMsg{outcome: gallery.Fetch(ctx, fetcher, req)}
	}
}

func (a *App) renderDetail(img gallery.Image) tea.Cmd {
	r, err := a.getRenderer()
	return func() tea.Msg {
		if err != nil {
			return detailRenderedMsg{id: img.ID, content: "Error initializing renderer: " + err.Error()}
		}

		rendered, err := r.Render(detailMarkdown(img))
		if err != nil {
			return detailRenderedMsg{id: img.ID, content: fmt.Sprintf("Failed to render details: %v\n\nPress Esc to go back.", err)}
		}
		return detailRenderedMsg{id: img.ID, content: rendered}
	}
}

func (a *App) renderPreview(img gallery.Image) tea.Cmd {
	ctx := a.ctx
	r := a.preview
	return func() tea.Msg {
		out, err := r.Render(ctx, img.LargeImageURL)
		return previewRenderedMsg{id: img.ID, content: out, err: err}
	}
}

func (a *App) openURL(url string) tea.Cmd {
	launcher := a.launcher
	return func() tea.Msg {
		if err := launcher.Open(url); err != nil {
			return openedMsg{url: url, err: err}
		}
		return openedMsg{url: url}
	}
}

// detailMarkdown describes an image for the overlay.
func detailMarkdown(img gallery.Image) string {
	h := img.Hit
	var b strings.Builder

	title := img.Tags
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if h.User != "" {
		fmt.Fprintf(&b, "*by %s*\n\n", h.User)
	}

	b.WriteString("| | |\n|---|---|\n")
	if h.ImageWidth > 0 && h.ImageHeight > 0 {
		fmt.Fprintf(&b, "| Size | %d × %d |\n", h.ImageWidth, h.ImageHeight)
	}
	if h.Type != "" {
		fmt.Fprintf(&b, "| Type | %s |\n", h.Type)
	}
	fmt.Fprintf(&b, "| Likes | %d |\n", h.Likes)
	fmt.Fprintf(&b, "| Views | %d |\n", h.Views)
	fmt.Fprintf(&b, "| Downloads | %d |\n", h.Downloads)
	fmt.Fprintf(&b, "| Comments | %d |\n\n", h.Comments)

	if tags := splitTags(img.Tags); len(tags) > 0 {
		b.WriteString("**Tags:** ")
		for i, t := range tags {
			if i > 0 {
				b.WriteString(" · ")
			}
			fmt.Fprintf(&b, "`%s`", t)
		}
		b.WriteString("\n\n")
	}

	b.WriteString("---\n\n")
	if img.LargeImageURL != "" {
		fmt.Fprintf(&b, "[Full size](%s)\n\n", img.LargeImageURL)
	}
	if h.PageURL != "" {
		fmt.Fprintf(&b, "[Provider page](%s)\n", h.PageURL)
	}
	return b.String()
}

func splitTags(tags string) []string {
	var out []string
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

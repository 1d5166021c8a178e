package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/pixl/internal/config"
	"github.com/pders01/pixl/internal/debuglog"
)

type KeyHandler struct {
	app         *App
	config      *config.Config
	bindings    config.KeyBindings
	modifierKey string
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	modifierKey := cfg.Keys.Modifier + "+"
	return &KeyHandler{app: app, config: cfg, bindings: cfg.Keys.Bindings, modifierKey: modifierKey}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return kh.quit()
	}

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(key); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	switch kh.app.view {
	case ViewSearch:
		return kh.app.searchInput.Focused()
	case ViewFilter:
		return kh.app.filterInput.Focused()
	default:
		return false
	}
}

func (kh *KeyHandler) quit() (tea.Model, tea.Cmd) {
	debuglog.Infof("tui: quitting")
	kh.app.shutdown()
	return kh.app, tea.Quit
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if kh.app.view == ViewFilter {
		return kh.handleFilterInput(msg)
	}

	switch key {
	case "enter":
		q := sanitizeQuery(kh.app.searchInput.Value())
		kh.app.searchInput.SetValue(q)
		cmd := kh.app.submitQuery(q)
		if q != "" {
			kh.focusGallery()
		}
		return kh.app, cmd
	case kh.bindings.Back, "tab", "down":
		if len(kh.app.imageList.Items()) > 0 {
			kh.focusGallery()
		}
		return kh.app, nil
	default:
		return kh.delegateToTextInput(msg)
	}
}

func (kh *KeyHandler) handleFilterInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		kh.app.filterInput.Blur()
		kh.app.view = ViewGallery
		return kh.app, nil
	case kh.bindings.Back:
		kh.app.filterInput.Reset()
		kh.app.filterInput.Blur()
		kh.app.setFilter("")
		kh.app.view = ViewGallery
		return kh.app, nil
	default:
		return kh.delegateToTextInput(msg)
	}
}

// delegateToTextInput passes the key to the focused text input
func (kh *KeyHandler) delegateToTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch kh.app.view {
	case ViewSearch:
		kh.app.searchInput, cmd = kh.app.searchInput.Update(msg)
	case ViewFilter:
		prev := kh.app.filterInput.Value()
		kh.app.filterInput, cmd = kh.app.filterInput.Update(msg)
		if v := kh.app.filterInput.Value(); v != prev {
			kh.app.setFilter(v)
		}
	}
	return kh.app, cmd
}

func (kh *KeyHandler) focusGallery() {
	kh.app.searchInput.Blur()
	kh.app.view = ViewGallery
}

func (kh *KeyHandler) focusSearch() (tea.Model, tea.Cmd) {
	if kh.app.view == ViewDetail {
		kh.app.closeDetail()
	}
	kh.app.view = ViewSearch
	kh.app.searchInput.CursorEnd()
	return kh.app, kh.app.searchInput.Focus()
}

// handleCustomKeys handles only our custom action keys
func (kh *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case kh.bindings.Quit:
		model, cmd := kh.quit()
		return model, cmd, true
	case kh.modifierKey + kh.bindings.Search:
		model, cmd := kh.focusSearch()
		return model, cmd, true
	}

	switch kh.app.view {
	case ViewGallery:
		return kh.handleGalleryCustomKeys(key)
	case ViewDetail:
		return kh.handleDetailCustomKeys(key)
	default:
		return kh.app, nil, false
	}
}

func (kh *KeyHandler) handleGalleryCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case kh.modifierKey + kh.bindings.LoadMore:
		return kh.app, kh.app.loadMore(), true

	case "down", "j":
		// stepping past the last image pages in more
		last := len(kh.app.imageList.Items()) - 1
		if last >= 0 && kh.app.imageList.Index() == last && kh.app.filterQuery == "" {
			if cmd := kh.app.loadMore(); cmd != nil {
				return kh.app, cmd, true
			}
		}
		return kh.app, nil, false

	case "enter":
		if img, ok := kh.app.selectedImage(); ok {
			return kh.app, kh.app.openDetail(img), true
		}
		return kh.app, nil, true

	case kh.modifierKey + kh.bindings.Open:
		if img, ok := kh.app.selectedImage(); ok {
			return kh.app, kh.app.openURL(img.LargeImageURL), true
		}
		return kh.app, nil, true

	case kh.bindings.Filter:
		if kh.app.session.Len() == 0 {
			return kh.app, nil, true
		}
		kh.app.view = ViewFilter
		kh.app.filterInput.SetValue(kh.app.filterQuery)
		kh.app.filterInput.CursorEnd()
		return kh.app, kh.app.filterInput.Focus(), true

	case kh.bindings.Back:
		if kh.app.filterQuery != "" {
			kh.app.filterInput.Reset()
			kh.app.setFilter("")
			return kh.app, nil, true
		}
		model, cmd := kh.focusSearch()
		return model, cmd, true

	default:
		return kh.app, nil, false
	}
}

func (kh *KeyHandler) handleDetailCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case kh.bindings.Back:
		kh.app.closeDetail()
		return kh.app, nil, true
	case kh.modifierKey + kh.bindings.Open, "enter":
		if sel := kh.app.session.Selected(); sel != nil {
			return kh.app, kh.app.openURL(sel.URL), true
		}
		return kh.app, nil, true
	default:
		return kh.app, nil, false
	}
}

// delegateToCharm lets the bubbles components handle navigation
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch kh.app.view {
	case ViewGallery:
		kh.app.imageList, cmd = kh.app.imageList.Update(msg)
	case ViewDetail:
		kh.app.viewport, cmd = kh.app.viewport.Update(msg)
	}
	return kh.app, cmd
}

// GetHelpForCurrentView returns only our custom help text (Charm handles the rest)
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	search := kh.modifierKey + kh.bindings.Search + ": search"
	switch kh.app.view {
	case ViewSearch:
		help := []string{"enter: search"}
		if len(kh.app.imageList.Items()) > 0 {
			help = append(help, "tab: results")
		}
		return append(help, "ctrl+c: quit")

	case ViewGallery:
		help := []string{"enter: details", kh.modifierKey + kh.bindings.Open + ": open"}
		if kh.app.session.CanLoadMore() && kh.app.filterQuery == "" {
			help = append(help, kh.modifierKey+kh.bindings.LoadMore+": more")
		}
		help = append(help, kh.bindings.Filter+": filter", search, kh.bindings.Quit+": quit")
		return help

	case ViewFilter:
		return []string{"enter: keep filter", kh.bindings.Back + ": clear"}

	case ViewDetail:
		return []string{kh.modifierKey + kh.bindings.Open + ": open", kh.bindings.Back + ": back", search}

	default:
		return []string{}
	}
}

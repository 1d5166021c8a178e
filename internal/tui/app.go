package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/pixl/internal/config"
	"github.com/pders01/pixl/internal/debuglog"
	"github.com/pders01/pixl/internal/gallery"
	"github.com/pders01/pixl/internal/media"
	"github.com/pders01/pixl/internal/preview"
	"github.com/pders01/pixl/internal/provider"
	"github.com/pders01/pixl/internal/search"
)

const defaultNoticeDuration = 3 * time.Second

// Opener shows a URL outside the terminal.
type Opener interface {
	Open(url string) error
}

// ImageRenderer turns an image URL into something printable in the
// terminal.
type ImageRenderer interface {
	Render(ctx context.Context, url string) (string, error)
}

type App struct {
	config      *config.Config
	fetcher     provider.Fetcher
	session     *gallery.Session
	unsubscribe func()
	index       *search.TagIndex
	launcher    Opener
	preview     ImageRenderer
	keyHandler  *KeyHandler

	imageList   list.Model
	searchInput textinput.Model
	filterInput textinput.Model
	viewport    viewport.Model
	spinner     spinner.Model

	view         View
	previousView View
	initialQuery string
	filterQuery  string
	visible      []gallery.Image
	detail       *gallery.Image

	// queued by session listeners, drained after each session call
	effects       []tea.Cmd
	scrollPending bool
	appendedFrom  int

	notice     string
	noticeKind StatusKind
	noticeSeq  int

	previewContent string
	previewLoading bool
	detailLoading  bool

	ctx    context.Context
	cancel context.CancelFunc

	width           int
	height          int
	err             error
	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
}

type Option func(*App)

// WithLauncher replaces the external opener.
func WithLauncher(o Opener) Option {
	return func(a *App) { a.launcher = o }
}

// WithPreview enables inline previews in the detail overlay.
func WithPreview(r ImageRenderer) Option {
	return func(a *App) { a.preview = r }
}

// WithInitialQuery submits q as soon as the program starts.
func WithInitialQuery(q string) Option {
	return func(a *App) { a.initialQuery = q }
}

// WithSessionOptions passes options through to the gallery session.
func WithSessionOptions(opts ...gallery.Option) Option {
	return func(a *App) {
		a.session = gallery.NewSession(opts...)
	}
}

func NewApp(cfg *config.Config, fetcher provider.Fetcher, opts ...Option) (*App, error) {
	index, err := search.NewTagIndex()
	if err != nil {
		return nil, wrapErr("create tag index", err)
	}

	ApplyColors(cfg.UI.Colors)

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(AccentColor).
		BorderForeground(AccentColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		BorderForeground(AccentColor)

	imageList := list.New([]list.Item{}, delegate, 0, 0)
	imageList.SetShowTitle(false)
	imageList.SetShowStatusBar(false)
	imageList.SetFilteringEnabled(false)
	imageList.SetShowHelp(false)

	si := textinput.New()
	si.Placeholder = "Search images..."
	si.Prompt = "› "
	si.CharLimit = provider.MaxQueryLength
	si.Focus()

	fi := textinput.New()
	fi.Placeholder = "Filter by tag, user or type..."
	fi.Prompt = "/ "

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(SecondaryColor)),
	)

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		config:       cfg,
		fetcher:      fetcher,
		index:        index,
		imageList:    imageList,
		searchInput:  si,
		filterInput:  fi,
		viewport:     viewport.New(0, 0),
		spinner:      sp,
		view:         ViewSearch,
		previousView: ViewSearch,
		ctx:          ctx,
		cancel:       cancel,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.session == nil {
		app.session = gallery.NewSession(gallery.WithPageSize(pageSize(cfg, fetcher)))
	}
	if app.launcher == nil {
		app.launcher = media.NewLauncher(cfg)
	}
	if app.preview == nil && cfg.UI.InlinePreview {
		if r := preview.NewRenderer(preview.DetectCapability(), cfg); r.Enabled() {
			app.preview = r
		}
	}

	app.unsubscribe = app.session.Subscribe(app.onSessionEvent)
	app.keyHandler = NewKeyHandler(app, cfg)

	return app, nil
}

// pageSize is the number of hits the fetcher actually asks for, which may
// differ from the configured value once the provider's limits apply.
func pageSize(cfg *config.Config, fetcher provider.Fetcher) int {
	if ps, ok := fetcher.(interface{ PerPage() int }); ok {
		return ps.PerPage()
	}
	return cfg.Provider.PerPage
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	wordWrapWidth := (a.width * 9) / 10
	if wordWrapWidth > 100 {
		wordWrapWidth = 100
	}
	if wordWrapWidth < 40 {
		wordWrapWidth = 40
	}
	if a.width > 0 && a.width < 50 {
		wordWrapWidth = a.width - 4
		if wordWrapWidth < 20 {
			wordWrapWidth = 20
		}
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{tea.EnterAltScreen, textinput.Blink}
	if q := sanitizeQuery(a.initialQuery); q != "" {
		a.searchInput.SetValue(q)
		cmds = append(cmds, a.submitQuery(q))
	}
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case imagesFetchedMsg:
		cmds = append(cmds, a.applyOutcome(msg.outcome))

	case spinner.TickMsg:
		if a.session.Loading() || a.previewLoading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case detailRenderedMsg:
		if a.view == ViewDetail && a.detail != nil && a.detail.ID == msg.id {
			a.detailLoading = false
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
		}

	case previewRenderedMsg:
		if a.view == ViewDetail && a.detail != nil && a.detail.ID == msg.id {
			a.previewLoading = false
			if msg.err != nil {
				debuglog.Warnf("tui: preview failed: %v", msg.err)
				a.previewContent = renderMuted("preview unavailable")
			} else {
				a.previewContent = msg.content
			}
			a.resize(a.width, a.height)
		}

	case openedMsg:
		if msg.err != nil {
			a.err = wrapErr("open image", msg.err)
		} else {
			a.err = nil
			cmds = append(cmds, a.setNotice(MsgOpened(msg.url), StatusInfo))
		}

	case noticeExpiredMsg:
		if msg.seq == a.noticeSeq {
			a.notice = ""
		}

	case errorMsg:
		a.err = msg.err

	default:
		var cmd tea.Cmd
		switch a.view {
		case ViewSearch:
			a.searchInput, cmd = a.searchInput.Update(msg)
		case ViewFilter:
			a.filterInput, cmd = a.filterInput.Update(msg)
		case ViewDetail:
			a.viewport, cmd = a.viewport.Update(msg)
		}
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height

	// header (2) + input frame (3) + filter (1) + pager (1) + separator and status (2)
	listHeight := height - 9
	if listHeight < 3 {
		listHeight = 3
	}
	a.imageList.SetSize(width, listHeight)

	inputWidth := width - 8
	if inputWidth < 10 {
		inputWidth = width - 4
	}
	a.searchInput.Width = inputWidth
	a.filterInput.Width = inputWidth

	previewHeight := 0
	if a.previewContent != "" {
		previewHeight = lipgloss.Height(a.previewContent)
	}
	vpHeight := height - 5 - previewHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	a.viewport.Width = width
	a.viewport.Height = vpHeight
}

// onSessionEvent runs synchronously inside session calls made from Update.
func (a *App) onSessionEvent(ev gallery.Event) {
	switch ev.Kind {
	case gallery.EventFound, gallery.EventNothingFound:
		a.effects = append(a.effects, a.setNotice(ev.Message, noticeKind(ev.Kind)))
	case gallery.EventScrollToBottom:
		a.scrollPending = true
	}
}

func (a *App) drainEffects() tea.Cmd {
	cmds := a.effects
	a.effects = nil
	return tea.Batch(cmds...)
}

func (a *App) setNotice(text string, kind StatusKind) tea.Cmd {
	a.notice = text
	a.noticeKind = kind
	a.noticeSeq++
	seq := a.noticeSeq

	d := a.config.UI.NoticeDuration
	if d <= 0 {
		d = defaultNoticeDuration
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return noticeExpiredMsg{seq: seq} })
}

// submitQuery starts a new search, discarding the gallery and its index.
func (a *App) submitQuery(q string) tea.Cmd {
	a.err = nil
	a.filterQuery = ""
	a.filterInput.Reset()
	if err := a.index.Reset(); err != nil {
		debuglog.Warnf("tui: resetting tag index: %v", err)
	}

	req := a.session.SubmitQuery(q)
	a.scrollPending = false
	a.appendedFrom = 0
	a.refreshList()

	if req == nil {
		return a.drainEffects()
	}
	return tea.Batch(a.fetchImages(*req), a.spinner.Tick, a.drainEffects())
}

func (a *App) loadMore() tea.Cmd {
	req, ok := a.session.LoadMore()
	if !ok {
		return nil
	}
	a.appendedFrom = a.session.Len()
	return tea.Batch(a.fetchImages(*req), a.spinner.Tick, a.drainEffects())
}

func (a *App) applyOutcome(o gallery.Outcome) tea.Cmd {
	before := a.session.Len()
	if !a.session.Apply(o) {
		return nil
	}

	if o.Err == nil {
		images := a.session.Images()
		if fresh := images[before:]; len(fresh) > 0 {
			if err := a.index.Add(fresh); err != nil {
				debuglog.Warnf("tui: indexing %d images: %v", len(fresh), err)
			}
		}
		a.appendedFrom = before
	}

	a.refreshList()
	return a.drainEffects()
}

// refreshList rebuilds the visible items from the session and the
// active filter.
func (a *App) refreshList() {
	images := a.session.Images()
	visible := images
	if a.filterQuery != "" {
		filtered, err := search.Filter(a.index, images, a.filterQuery)
		if err != nil {
			a.err = wrapErr("filter", err)
		} else {
			visible = filtered
		}
	}
	a.visible = visible

	items := make([]list.Item, len(visible))
	for i, img := range visible {
		items[i] = imageItem{img: img}
	}
	a.imageList.SetItems(items)

	if a.scrollPending && len(items) > 0 {
		a.scrollPending = false
		// first image of the newest page, or the end when nothing was added
		target := len(items) - 1
		if a.filterQuery == "" && a.appendedFrom < len(items) {
			target = a.appendedFrom
		}
		a.imageList.Select(target)
	}
}

func (a *App) setFilter(q string) {
	a.filterQuery = strings.TrimSpace(q)
	a.refreshList()
	a.imageList.Select(0)
}

func (a *App) selectedImage() (gallery.Image, bool) {
	if item, ok := a.imageList.SelectedItem().(imageItem); ok {
		return item.img, true
	}
	return gallery.Image{}, false
}

func (a *App) openDetail(img gallery.Image) tea.Cmd {
	a.session.OpenDetail(img)
	a.detail = &img
	a.previousView = a.view
	a.view = ViewDetail
	a.detailLoading = true
	a.previewContent = ""
	a.viewport.SetContent("")
	a.resize(a.width, a.height)

	cmds := []tea.Cmd{a.renderDetail(img)}
	if a.preview != nil {
		a.previewLoading = true
		cmds = append(cmds, a.renderPreview(img), a.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (a *App) closeDetail() {
	a.session.CloseDetail()
	a.detail = nil
	a.detailLoading = false
	a.previewLoading = false
	a.previewContent = ""
	a.view = ViewGallery
}

// shutdown cancels in-flight work and releases the session.
func (a *App) shutdown() {
	a.cancel()
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.session.Close()
	if err := a.index.Close(); err != nil {
		debuglog.Warnf("tui: closing tag index: %v", err)
	}
}

func (a *App) View() string {
	var content string
	contentHeight := a.height - 2

	if a.view == ViewDetail {
		content = a.detailView(contentHeight)
	} else {
		content = a.galleryView(contentHeight)
	}

	status := a.getCustomStatusBar()
	if status == "" {
		return content
	}
	separatorWidth := a.width - 2
	if separatorWidth < 0 {
		separatorWidth = 0
	}
	return lipgloss.JoinVertical(lipgloss.Top, content, renderSeparator(separatorWidth+1), status)
}

func (a *App) galleryView(height int) string {
	snap := a.session.Snapshot()

	subtitle := "Pixabay image search"
	if snap.Query != "" {
		subtitle = fmt.Sprintf("%q • %s", snap.Query, MsgImagesCount(len(snap.Images)))
		if snap.TotalPages > 0 {
			subtitle += " • " + MsgPageOf(snap.Page, snap.TotalPages)
		}
	}

	rows := []string{
		renderHeader("› "+AppName, subtitle, a.width),
		renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), a.searchInput.Width),
	}

	if a.view == ViewFilter || a.filterQuery != "" {
		rows = append(rows, a.filterLine(len(snap.Images)))
	}

	bodyHeight := height - lipgloss.Height(lipgloss.JoinVertical(lipgloss.Top, rows...)) - 1
	rows = append(rows, a.galleryBody(snap, bodyHeight))

	if pager := a.pagerLine(snap); pager != "" {
		rows = append(rows, pager)
	}

	return lipgloss.NewStyle().
		Width(a.width).
		MaxHeight(height).
		Render(lipgloss.JoinVertical(lipgloss.Top, rows...))
}

// filterLine renders the filter input (or the kept filter) with its match
// count, narrowed so the row never wraps.
func (a *App) filterLine(total int) string {
	count := ""
	if a.filterQuery != "" {
		count = "  " + renderMuted(MsgFilterCount(len(a.visible), total))
	}

	var line string
	if a.view == ViewFilter {
		in := a.filterInput
		// prompt and cursor take the columns Width leaves out
		w := a.width - lipgloss.Width(in.Prompt) - 2 - lipgloss.Width(count)
		if w < 1 {
			w = 1
		}
		if in.Width == 0 || w < in.Width {
			in.Width = w
		}
		line = in.View()
	} else {
		line = TagStyle.Render("/ " + truncateEnd(a.filterQuery, a.width-lipgloss.Width(count)-2))
	}
	return line + count
}

func (a *App) galleryBody(snap gallery.Snapshot, height int) string {
	switch snap.Status() {
	case gallery.StatusIdle:
		return renderCentered(a.width, height, GetWelcomeMessage())
	case gallery.StatusLoading:
		if len(snap.Images) == 0 {
			return renderCentered(a.width, height, a.spinner.View()+" "+MsgLoading)
		}
	case gallery.StatusEmpty:
		return renderCentered(a.width, height, renderMuted(MsgNoImages))
	case gallery.StatusFailed:
		if len(snap.Images) == 0 {
			return renderCentered(a.width, height, ErrorMessageStyle.Render(MsgErrorHint))
		}
	}

	if len(a.visible) == 0 && a.filterQuery != "" {
		return renderCentered(a.width, height, renderMuted(MsgNoMatches))
	}
	return a.imageList.View()
}

func (a *App) pagerLine(snap gallery.Snapshot) string {
	switch {
	case snap.Loading && len(snap.Images) > 0:
		return PagerStyle.Render(a.spinner.View() + " " + MsgLoadingMore)
	case snap.CanLoadMore() && a.filterQuery == "":
		key := a.keyHandler.modifierKey + a.config.Keys.Bindings.LoadMore
		return PagerStyle.Render(MsgLoadMoreHint(key, snap.Page+1, snap.TotalPages))
	default:
		return ""
	}
}

func (a *App) detailView(height int) string {
	title := "› image"
	alt := ""
	if sel := a.session.Selected(); sel != nil {
		alt = sel.AltText
		if alt != "" {
			title = "› " + alt
		}
	}

	rows := []string{renderHeader(title, "", a.width)}

	switch {
	case a.previewLoading:
		rows = append(rows, renderMuted(a.spinner.View()+" "+MsgRendering))
	case a.previewContent != "":
		rows = append(rows, a.previewContent)
	}

	if a.detailLoading {
		rows = append(rows, renderMuted(MsgLoading))
	} else {
		rows = append(rows, a.viewport.View())
	}

	return lipgloss.NewStyle().
		Width(a.width).
		MaxHeight(height).
		Render(lipgloss.JoinVertical(lipgloss.Top, rows...))
}

func (a *App) getCustomStatusBar() string {
	bar := StatusBarStyle.Width(a.width)

	if err := a.session.Err(); err != nil && a.view != ViewDetail {
		text := ErrorMessageStyle.Render("✗ "+truncateEnd(err.Error(), 60)) + " • " + MsgErrorHint
		if reason := failureReason(err); reason != "" {
			text += renderMuted(" (" + reason + ")")
		}
		return bar.Render(text)
	}

	if a.err != nil {
		return bar.Render(ErrorMessageStyle.Render(fmt.Sprintf("✗ %v", a.err)))
	}

	if a.notice != "" {
		return bar.Render(StatusStyle(a.noticeKind).Render(a.notice))
	}

	commands := a.keyHandler.GetHelpForCurrentView()
	if len(commands) == 0 {
		return ""
	}
	return bar.Render(strings.Join(commands, " • "))
}

package gallery

import (
	"strings"

	"github.com/pders01/pixl/internal/debuglog"
	"github.com/pders01/pixl/internal/provider"
)

// Notice texts shown after a fetch settles.
const (
	MsgFound        = "Successfully found!"
	MsgNothingFound = "Nothing found. Check the correctness of the search word."
)

// EventKind identifies a session side effect.
type EventKind int

const (
	// EventScrollToBottom asks the view to reveal the end of the gallery.
	EventScrollToBottom EventKind = iota
	// EventFound follows a fetch that returned at least one hit.
	EventFound
	// EventNothingFound follows a successful fetch with zero hits. It is
	// not an error and never touches the error state.
	EventNothingFound
)

// Event is delivered to subscribers after the state change that caused it.
type Event struct {
	Kind    EventKind
	Message string
	// Count is the number of images appended by the fetch, if any.
	Count int
}

// FetchRequest identifies one fetch. Epoch is captured at dispatch so a
// late response for an older search can be recognized and dropped.
type FetchRequest struct {
	Query    string
	Page     int
	PageSize int
	Epoch    uint64
}

// Outcome is a settled FetchRequest.
type Outcome struct {
	Request FetchRequest
	Result  *provider.Result
	Err     error
}

type listener struct {
	id int
	fn func(Event)
}

// Session is the search and pagination state machine behind the gallery.
// It is not safe for concurrent use; drive it from a single goroutine
// (the UI event loop) and run fetches elsewhere, handing results back
// through Apply.
type Session struct {
	query      string
	page       int
	pageSize   int
	images     []Image
	totalPages int
	loading    bool
	err        error
	selected   *Selection
	epoch      uint64

	tokens    TokenGenerator
	listeners []listener
	nextID    int
	closed    bool
}

type Option func(*Session)

// WithPageSize sets the provider page size used for page arithmetic.
func WithPageSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithTokens replaces the default UUID token generator.
func WithTokens(g TokenGenerator) Option {
	return func(s *Session) {
		if g != nil {
			s.tokens = g
		}
	}
}

func NewSession(opts ...Option) *Session {
	s := &Session{
		page:     1,
		pageSize: DefaultPageSize,
		tokens:   UUIDTokens{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DeriveFetchIntent returns the request the given state calls for, or nil
// when there is nothing to fetch.
func DeriveFetchIntent(s Snapshot) *FetchRequest {
	if isBlank(s.Query) {
		return nil
	}
	return &FetchRequest{
		Query:    s.Query,
		Page:     s.Page,
		PageSize: s.PageSize,
		Epoch:    s.Epoch,
	}
}

func (s *Session) Snapshot() Snapshot {
	var sel *Selection
	if s.selected != nil {
		c := *s.selected
		sel = &c
	}
	return Snapshot{
		Query:      s.query,
		Page:       s.page,
		PageSize:   s.pageSize,
		Images:     append([]Image(nil), s.images...),
		TotalPages: s.totalPages,
		Loading:    s.loading,
		Err:        s.err,
		Selected:   sel,
		Epoch:      s.epoch,
	}
}

// state is a Snapshot that shares the images slice. Only for predicates
// that never leak it.
func (s *Session) state() Snapshot {
	return Snapshot{
		Query:      s.query,
		Page:       s.page,
		PageSize:   s.pageSize,
		Images:     s.images,
		TotalPages: s.totalPages,
		Loading:    s.loading,
		Err:        s.err,
		Epoch:      s.epoch,
	}
}

func (s *Session) Status() Status { return s.state().Status() }

// CanLoadMore reports whether LoadMore would do anything.
func (s *Session) CanLoadMore() bool {
	return !s.closed && s.state().CanLoadMore()
}

// Images returns the accumulated images in display order.
func (s *Session) Images() []Image { return append([]Image(nil), s.images...) }

func (s *Session) Len() int { return len(s.images) }

func (s *Session) Selected() *Selection {
	if s.selected == nil {
		return nil
	}
	c := *s.selected
	return &c
}

func (s *Session) Err() error { return s.err }

func (s *Session) Loading() bool { return s.loading }

// SubmitQuery starts a new search. A blank query returns the session to
// idle without fetching. Any fetch still in flight becomes stale.
func (s *Session) SubmitQuery(q string) *FetchRequest {
	if s.closed {
		return nil
	}

	s.epoch++
	s.page = 1
	s.images = nil
	s.totalPages = 0
	s.err = nil
	s.loading = false

	if isBlank(q) {
		s.query = ""
		debuglog.Debugf("gallery: cleared search (epoch %d)", s.epoch)
		return nil
	}

	s.query = strings.TrimSpace(q)
	debuglog.WithFields(map[string]interface{}{
		"query": s.query,
		"epoch": s.epoch,
	}).Infof("gallery: new search")
	return s.beginFetch()
}

// LoadMore advances to the next page. It reports false, leaving state
// untouched, unless CanLoadMore holds.
func (s *Session) LoadMore() (*FetchRequest, bool) {
	if !s.CanLoadMore() {
		return nil, false
	}

	s.page++
	req := s.beginFetch()
	s.emit(Event{Kind: EventScrollToBottom})
	return req, true
}

func (s *Session) beginFetch() *FetchRequest {
	req := DeriveFetchIntent(s.state())
	if req != nil {
		s.loading = true
		s.err = nil
	}
	return req
}

// Apply settles a fetch. It returns false when the outcome belongs to a
// superseded request (or the session is closed) and was discarded.
func (s *Session) Apply(o Outcome) bool {
	req := o.Request
	if s.closed || req.Epoch != s.epoch || req.Page != s.page || req.Query != s.query {
		debuglog.Debugf("gallery: dropped stale result for %q page %d (epoch %d, current %d)",
			req.Query, req.Page, req.Epoch, s.epoch)
		return false
	}

	s.loading = false

	if o.Err != nil {
		s.err = o.Err
		debuglog.Warnf("gallery: fetch failed for %q page %d: %v", req.Query, req.Page, o.Err)
		return true
	}

	var hits []provider.Hit
	totalHits := 0
	if o.Result != nil {
		hits = o.Result.Hits
		totalHits = o.Result.TotalHits
	}

	s.totalPages = pageCount(totalHits, s.pageSize)
	for _, h := range hits {
		s.images = append(s.images, Image{
			ID:            s.tokens.NewToken(),
			LargeImageURL: h.LargeImageURL,
			Tags:          h.Tags,
			Hit:           h,
		})
	}

	if len(hits) == 0 {
		s.emit(Event{Kind: EventNothingFound, Message: MsgNothingFound})
		return true
	}

	s.emit(Event{Kind: EventFound, Message: MsgFound, Count: len(hits)})
	s.emit(Event{Kind: EventScrollToBottom})
	return true
}

// OpenDetail selects img for the detail overlay.
func (s *Session) OpenDetail(img Image) {
	s.selected = &Selection{URL: img.LargeImageURL, AltText: img.Tags}
}

func (s *Session) CloseDetail() {
	s.selected = nil
}

// Subscribe registers fn for session events until the returned function
// is called or the session is closed.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	if s.closed || fn == nil {
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	return func() { s.unsubscribe(id) }
}

func (s *Session) unsubscribe(id int) {
	for i, l := range s.listeners {
		if l.id == id {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *Session) emit(ev Event) {
	if s.closed {
		return
	}
	// Listeners may unsubscribe while being notified
	for _, l := range append([]listener(nil), s.listeners...) {
		l.fn(ev)
	}
}

// Close ends the session. Subscriptions are released and every pending
// or future outcome is discarded.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.epoch++
	s.loading = false
	s.listeners = nil
}

func (s *Session) Closed() bool { return s.closed }

func pageCount(totalHits, pageSize int) int {
	if totalHits <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalHits + pageSize - 1) / pageSize
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

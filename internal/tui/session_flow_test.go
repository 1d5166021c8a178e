package tui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/pixl/internal/config"
	"github.com/pders01/pixl/internal/gallery"
	"github.com/pders01/pixl/internal/provider"
)

// pixabayStub serves totalHits results per query, perPage at a time.
type pixabayStub struct {
	mu        sync.Mutex
	totalHits int
	requests  []string
}

func (s *pixabayStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.mu.Lock()
	s.requests = append(s.requests, q.Get("q")+"#"+q.Get("page"))
	s.mu.Unlock()

	if q.Get("key") != "test-key" {
		http.Error(w, "[ERROR 400] Invalid or missing API key", http.StatusBadRequest)
		return
	}
	if q.Get("q") == "broken" {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	var hits []provider.Hit
	for i := (page - 1) * perPage; i < page*perPage && i < s.totalHits; i++ {
		tags := "tulip, spring, garden"
		if i%3 == 0 {
			tags = "windmill, holland"
		}
		hits = append(hits, provider.Hit{
			ID:            1000 + i,
			Type:          "photo",
			Tags:          tags,
			User:          "grower",
			LargeImageURL: fmt.Sprintf("https://cdn.pixabay.com/photo/%s-%d_1280.jpg", q.Get("q"), i),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(provider.Result{Total: s.totalHits + 500, TotalHits: s.totalHits, Hits: hits})
}

func (s *pixabayStub) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func newFlowApp(t *testing.T, stub *pixabayStub) *App {
	t.Helper()
	return newFlowAppWithConfig(t, stub, config.TestConfig())
}

func newFlowAppWithConfig(t *testing.T, stub *pixabayStub, cfg *config.Config) *App {
	t.Helper()
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)

	cfg.Provider.BaseURL = server.URL + "/api/"
	cfg.UI.NoticeDuration = time.Millisecond

	app, err := NewApp(cfg, provider.NewClient(cfg.Provider), WithLauncher(&fakeOpener{}))
	require.NoError(t, err)
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	t.Cleanup(func() { app.shutdown() })
	return app
}

func TestSessionFlow_PagesThroughProvider(t *testing.T) {
	stub := &pixabayStub{totalHits: 30}
	app := newFlowApp(t, stub)

	submitSearch(t, app, "tulips")
	assert.Len(t, app.imageList.Items(), 12)
	assert.Equal(t, 3, app.session.Snapshot().TotalPages)

	settle(t, app, press(t, app, tea.KeyMsg{Type: tea.KeyCtrlL}))
	assert.Len(t, app.imageList.Items(), 24)

	app.imageList.Select(23)
	settle(t, app, press(t, app, tea.KeyMsg{Type: tea.KeyDown}))
	assert.Len(t, app.imageList.Items(), 30)
	assert.Equal(t, 24, app.imageList.Index())

	assert.False(t, app.session.CanLoadMore())
	assert.Equal(t, []string{"tulips#1", "tulips#2", "tulips#3"}, stub.Requests())

	ids := map[string]bool{}
	for _, item := range app.imageList.Items() {
		id := item.(imageItem).img.ID
		assert.False(t, ids[id], "duplicate token %s", id)
		ids[id] = true
	}
}

func TestSessionFlow_PageSizeFollowsProviderLimits(t *testing.T) {
	tests := []struct {
		name       string
		perPage    int
		totalHits  int
		wantSize   int
		wantPages  int
		wantImages int
		wantMore   bool
	}{
		{name: "above the maximum", perPage: 500, totalHits: 500, wantSize: 200, wantPages: 3, wantImages: 200, wantMore: true},
		{name: "below the minimum", perPage: 1, totalHits: 7, wantSize: 3, wantPages: 3, wantImages: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.TestConfig()
			cfg.Provider.PerPage = tt.perPage
			stub := &pixabayStub{totalHits: tt.totalHits}
			app := newFlowAppWithConfig(t, stub, cfg)

			submitSearch(t, app, "tulips")

			snap := app.session.Snapshot()
			assert.Equal(t, tt.wantSize, snap.PageSize)
			assert.Equal(t, tt.wantPages, snap.TotalPages)
			assert.Len(t, app.imageList.Items(), tt.wantImages)
			assert.Equal(t, tt.wantMore, app.session.CanLoadMore())
		})
	}
}

func TestSessionFlow_FilterAcrossPages(t *testing.T) {
	stub := &pixabayStub{totalHits: 24}
	app := newFlowApp(t, stub)

	submitSearch(t, app, "holland")
	settle(t, app, press(t, app, tea.KeyMsg{Type: tea.KeyCtrlL}))
	require.Len(t, app.imageList.Items(), 24)

	app.setFilter("windmill")
	assert.Len(t, app.imageList.Items(), 8)
	assert.NotContains(t, app.keyHandler.GetHelpForCurrentView(), "ctrl+l: more")
}

func TestSessionFlow_ProviderErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		app := newFlowApp(t, &pixabayStub{totalHits: 30})

		submitSearch(t, app, "broken")
		assert.Equal(t, gallery.StatusFailed, app.session.Status())
		assert.True(t, provider.IsKind(app.session.Err(), provider.KindHTTP))
		assert.Contains(t, app.getCustomStatusBar(), "HTTP 500")
	})

	t.Run("no results", func(t *testing.T) {
		app := newFlowApp(t, &pixabayStub{totalHits: 0})

		submitSearch(t, app, "nothing")
		assert.Equal(t, gallery.StatusEmpty, app.session.Status())
		assert.Equal(t, 0, app.session.Snapshot().TotalPages)
	})
}

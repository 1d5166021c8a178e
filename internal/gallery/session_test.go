package gallery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pders01/pixl/internal/provider"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// counterTokens yields "t1", "t2", ...
func counterTokens() TokenGenerator {
	n := 0
	return TokenFunc(func() string {
		n++
		return "t" + strconv.Itoa(n)
	})
}

func hits(n, offset int) []provider.Hit {
	out := make([]provider.Hit, n)
	for i := range out {
		id := offset + i
		out[i] = provider.Hit{
			ID:            id,
			Tags:          fmt.Sprintf("cat, %d", id),
			LargeImageURL: fmt.Sprintf("https://cdn.test/%d_1280.jpg", id),
		}
	}
	return out
}

func page(n, offset, totalHits int) *provider.Result {
	return &provider.Result{Total: totalHits, TotalHits: totalHits, Hits: hits(n, offset)}
}

// fakeFetcher serves canned pages keyed by query and page.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]*provider.Result
	err     error
	calls   []string
	release chan struct{}
}

func (f *fakeFetcher) FetchImages(ctx context.Context, query string, p int) (*provider.Result, error) {
	key := query + "#" + strconv.Itoa(p)
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if res, ok := f.pages[key]; ok {
		return res, nil
	}
	return &provider.Result{}, nil
}

func TestSession_InitialState(t *testing.T) {
	s := NewSession()
	snap := s.Snapshot()

	assert.Equal(t, "", snap.Query)
	assert.Equal(t, 1, snap.Page)
	assert.Equal(t, DefaultPageSize, snap.PageSize)
	assert.Empty(t, snap.Images)
	assert.Equal(t, 0, snap.TotalPages)
	assert.False(t, snap.Loading)
	assert.NoError(t, snap.Err)
	assert.Nil(t, snap.Selected)
	assert.Equal(t, StatusIdle, s.Status())
	assert.Nil(t, DeriveFetchIntent(snap))
	assert.False(t, s.CanLoadMore())
}

func TestSession_SearchAndPaginate(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*provider.Result{
		"cats#1": page(12, 0, 50),
		"cats#2": page(12, 12, 50),
		"cats#3": page(12, 24, 50),
	}}
	s := NewSession(WithTokens(counterTokens()))

	var events []EventKind
	unsubscribe := s.Subscribe(func(ev Event) { events = append(events, ev.Kind) })
	defer unsubscribe()

	req := s.SubmitQuery("cats")
	require.NotNil(t, req)
	if diff := cmp.Diff(FetchRequest{Query: "cats", Page: 1, PageSize: 12, Epoch: 1}, *req); diff != "" {
		t.Errorf("first request mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, StatusLoading, s.Status())

	require.True(t, s.Apply(Fetch(context.Background(), f, *req)))
	snap := s.Snapshot()
	assert.Equal(t, 5, snap.TotalPages)
	assert.Len(t, snap.Images, 12)
	assert.Equal(t, StatusResults, snap.Status())
	assert.True(t, s.CanLoadMore())

	for want := 2; want <= 3; want++ {
		req, ok := s.LoadMore()
		require.True(t, ok)
		assert.Equal(t, want, req.Page)
		require.True(t, s.Apply(Fetch(context.Background(), f, *req)))
	}

	snap = s.Snapshot()
	assert.Equal(t, 3, snap.Page)
	assert.Len(t, snap.Images, 36)
	assert.Equal(t, 5, snap.TotalPages)

	// Images accumulate in fetch order with fresh IDs
	assert.Equal(t, "t1", snap.Images[0].ID)
	assert.Equal(t, "t36", snap.Images[35].ID)
	assert.Equal(t, 35, snap.Images[35].Hit.ID)

	assert.Equal(t, []string{"cats#1", "cats#2", "cats#3"}, f.calls)
	assert.Equal(t, []EventKind{
		EventFound, EventScrollToBottom,
		EventScrollToBottom, EventFound, EventScrollToBottom,
		EventScrollToBottom, EventFound, EventScrollToBottom,
	}, events)
}

func TestSession_PredicatesDoNotCopyImages(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*provider.Result{"cats#1": page(12, 0, 50)}}
	s := NewSession()
	req := s.SubmitQuery("cats")
	require.True(t, s.Apply(Fetch(context.Background(), f, *req)))

	allocs := testing.AllocsPerRun(100, func() {
		_ = s.Status()
		_ = s.CanLoadMore()
	})
	assert.Zero(t, allocs)

	snap := s.Snapshot()
	snap.Images[0].Tags = "changed"
	assert.NotEqual(t, "changed", s.Images()[0].Tags, "Snapshot still hands out a copy")
}

func TestSession_NothingFound(t *testing.T) {
	s := NewSession()

	var notices []string
	s.Subscribe(func(ev Event) {
		if ev.Message != "" {
			notices = append(notices, ev.Message)
		}
	})

	req := s.SubmitQuery("zzzzqqq")
	require.True(t, s.Apply(Outcome{Request: *req, Result: &provider.Result{}}))

	snap := s.Snapshot()
	assert.Empty(t, snap.Images)
	assert.Equal(t, 0, snap.TotalPages)
	assert.NoError(t, snap.Err)
	assert.Equal(t, StatusEmpty, snap.Status())
	assert.False(t, s.CanLoadMore())
	assert.Equal(t, []string{MsgNothingFound}, notices)
}

func TestSession_NetworkFailure(t *testing.T) {
	netErr := &provider.Error{Kind: provider.KindNetwork, Message: "fetching images", Err: errors.New("connection refused")}
	f := &fakeFetcher{err: netErr}
	s := NewSession()

	var events int
	s.Subscribe(func(Event) { events++ })

	req := s.SubmitQuery("dogs")
	require.True(t, s.Apply(Fetch(context.Background(), f, *req)))

	snap := s.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, StatusFailed, snap.Status())
	assert.True(t, provider.IsKind(snap.Err, provider.KindNetwork))
	assert.Empty(t, snap.Images)
	assert.Zero(t, events, "failures are reported through state, not notices")

	_, ok := s.LoadMore()
	assert.False(t, ok)

	// A new submit clears the error
	req = s.SubmitQuery("dogs")
	assert.NoError(t, s.Err())
	assert.True(t, s.Loading())
	assert.Equal(t, uint64(2), req.Epoch)
}

func TestSession_FailureKeepsPriorPages(t *testing.T) {
	s := NewSession()
	req := s.SubmitQuery("cats")
	s.Apply(Outcome{Request: *req, Result: page(12, 0, 50)})

	req, ok := s.LoadMore()
	require.True(t, ok)
	s.Apply(Outcome{Request: *req, Err: errors.New("boom")})

	assert.Len(t, s.Images(), 12)
	assert.Equal(t, 2, s.Snapshot().Page)
	assert.Equal(t, StatusFailed, s.Status())
	assert.False(t, s.CanLoadMore())
}

func TestSession_StaleResponseDiscarded(t *testing.T) {
	s := NewSession()

	first := s.SubmitQuery("cats")
	second := s.SubmitQuery("dogs")
	require.NotNil(t, first)
	require.NotNil(t, second)

	// dogs resolves first, then the late cats response arrives
	assert.True(t, s.Apply(Outcome{Request: *second, Result: page(12, 100, 24)}))
	assert.False(t, s.Apply(Outcome{Request: *first, Result: page(12, 0, 50)}))

	snap := s.Snapshot()
	assert.Equal(t, "dogs", snap.Query)
	assert.Equal(t, 2, snap.TotalPages)
	require.Len(t, snap.Images, 12)
	assert.Equal(t, 100, snap.Images[0].Hit.ID)
}

func TestSession_StaleResponseAfterResubmitOfSameQuery(t *testing.T) {
	s := NewSession()

	first := s.SubmitQuery("cats")
	second := s.SubmitQuery("cats")
	assert.NotEqual(t, first.Epoch, second.Epoch)

	assert.False(t, s.Apply(Outcome{Request: *first, Result: page(12, 0, 50)}))
	assert.True(t, s.Loading())
	assert.True(t, s.Apply(Outcome{Request: *second, Result: page(12, 0, 50)}))
	assert.Len(t, s.Images(), 12)
}

func TestSession_ConcurrentFetchesOutOfOrder(t *testing.T) {
	slow := &fakeFetcher{release: make(chan struct{}), pages: map[string]*provider.Result{"cats#1": page(12, 0, 50)}}
	fast := &fakeFetcher{pages: map[string]*provider.Result{"dogs#1": page(5, 200, 5)}}
	s := NewSession()

	outcomes := make(chan Outcome, 2)
	var wg sync.WaitGroup
	dispatch := func(f provider.Fetcher, req *FetchRequest) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes <- Fetch(context.Background(), f, *req)
		}()
	}

	dispatch(slow, s.SubmitQuery("cats"))
	dispatch(fast, s.SubmitQuery("dogs"))

	assert.True(t, s.Apply(<-outcomes))
	close(slow.release)
	assert.False(t, s.Apply(<-outcomes))
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, "dogs", snap.Query)
	assert.Len(t, snap.Images, 5)
	assert.False(t, snap.Loading)
}

func TestSession_LoadMoreGuards(t *testing.T) {
	tests := []struct {
		name      string
		hits      int
		totalHits int
		err       error
		loading   bool
		wantOK    bool
	}{
		{name: "more pages", hits: 12, totalHits: 50, wantOK: true},
		{name: "last page", hits: 12, totalHits: 12, wantOK: false},
		{name: "below pager floor", hits: 10, totalHits: 50, wantOK: false},
		{name: "exactly eleven", hits: 11, totalHits: 50, wantOK: true},
		{name: "failed", hits: 0, totalHits: 0, err: errors.New("boom"), wantOK: false},
		{name: "still loading", hits: 0, totalHits: 0, loading: true, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession()
			req := s.SubmitQuery("cats")
			if !tt.loading {
				s.Apply(Outcome{Request: *req, Result: page(tt.hits, 0, tt.totalHits), Err: tt.err})
			}
			before := s.Snapshot()

			next, ok := s.LoadMore()
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				assert.Nil(t, next)
				assert.Equal(t, before.Page, s.Snapshot().Page)
				assert.Equal(t, before.Loading, s.Loading())
			}
		})
	}
}

func TestSession_LoadMoreWhileLoadingIsNoop(t *testing.T) {
	s := NewSession()
	req := s.SubmitQuery("cats")
	s.Apply(Outcome{Request: *req, Result: page(12, 0, 50)})

	_, ok := s.LoadMore()
	require.True(t, ok)
	_, ok = s.LoadMore()
	assert.False(t, ok, "a second load before the first settles must not advance the page")
	assert.Equal(t, 2, s.Snapshot().Page)
}

func TestSession_BlankSubmitClears(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		t.Run(strconv.Quote(q), func(t *testing.T) {
			s := NewSession()
			req := s.SubmitQuery("cats")
			s.Apply(Outcome{Request: *req, Result: page(12, 0, 50)})
			inflight, ok := s.LoadMore()
			require.True(t, ok)

			assert.Nil(t, s.SubmitQuery(q))

			snap := s.Snapshot()
			assert.Equal(t, "", snap.Query)
			assert.Empty(t, snap.Images)
			assert.Equal(t, 1, snap.Page)
			assert.Equal(t, 0, snap.TotalPages)
			assert.False(t, snap.Loading)
			assert.Equal(t, StatusIdle, snap.Status())

			assert.False(t, s.Apply(Outcome{Request: *inflight, Result: page(12, 12, 50)}))
			assert.Empty(t, s.Images())
		})
	}
}

func TestSession_QueryIsTrimmed(t *testing.T) {
	s := NewSession()
	req := s.SubmitQuery("  red fox ")
	require.NotNil(t, req)
	assert.Equal(t, "red fox", req.Query)
	assert.Equal(t, "red fox", s.Snapshot().Query)
}

func TestSession_PageSizeOption(t *testing.T) {
	s := NewSession(WithPageSize(20))
	req := s.SubmitQuery("cats")
	assert.Equal(t, 20, req.PageSize)
	s.Apply(Outcome{Request: *req, Result: page(20, 0, 45)})
	assert.Equal(t, 3, s.Snapshot().TotalPages)

	assert.Equal(t, DefaultPageSize, NewSession(WithPageSize(0)).Snapshot().PageSize)
}

func TestSession_Detail(t *testing.T) {
	s := NewSession()
	req := s.SubmitQuery("cats")
	s.Apply(Outcome{Request: *req, Result: page(12, 0, 50)})

	img := s.Images()[3]
	s.OpenDetail(img)
	if diff := cmp.Diff(&Selection{URL: img.LargeImageURL, AltText: img.Tags}, s.Selected()); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}

	// Selection is independent of fetch state
	next, ok := s.LoadMore()
	require.True(t, ok)
	assert.NotNil(t, s.Selected())
	s.Apply(Outcome{Request: *next, Result: page(12, 12, 50)})
	assert.NotNil(t, s.Selected())

	s.CloseDetail()
	assert.Nil(t, s.Selected())
	s.CloseDetail()
	assert.Nil(t, s.Selected())
}

func TestSession_Unsubscribe(t *testing.T) {
	s := NewSession()

	var a, b int
	unsubA := s.Subscribe(func(Event) { a++ })
	s.Subscribe(func(Event) { b++ })

	req := s.SubmitQuery("cats")
	s.Apply(Outcome{Request: *req, Result: page(12, 0, 50)})
	assert.Equal(t, 2, a)
	assert.Equal(t, 2, b)

	unsubA()
	unsubA()

	next, _ := s.LoadMore()
	s.Apply(Outcome{Request: *next, Result: page(12, 12, 50)})
	assert.Equal(t, 2, a)
	assert.Equal(t, 5, b)
}

func TestSession_UnsubscribeDuringEmit(t *testing.T) {
	s := NewSession()

	var calls int
	var unsub func()
	unsub = s.Subscribe(func(Event) {
		calls++
		unsub()
	})
	var other int
	s.Subscribe(func(Event) { other++ })

	req := s.SubmitQuery("cats")
	s.Apply(Outcome{Request: *req, Result: page(12, 0, 50)})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, other)
}

func TestSession_Close(t *testing.T) {
	s := NewSession()

	var events int
	s.Subscribe(func(Event) { events++ })

	req := s.SubmitQuery("cats")
	s.Close()
	s.Close()

	assert.True(t, s.Closed())
	assert.False(t, s.Apply(Outcome{Request: *req, Result: page(12, 0, 50)}))
	assert.Empty(t, s.Images())
	assert.Zero(t, events)
	assert.False(t, s.Loading())

	assert.Nil(t, s.SubmitQuery("dogs"))
	_, ok := s.LoadMore()
	assert.False(t, ok)

	unsub := s.Subscribe(func(Event) { events++ })
	unsub()
	assert.Zero(t, events)
}

func TestDeriveFetchIntent(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want *FetchRequest
	}{
		{name: "idle", snap: Snapshot{Page: 1, PageSize: 12}},
		{name: "blank", snap: Snapshot{Query: "  ", Page: 1, PageSize: 12}},
		{
			name: "query",
			snap: Snapshot{Query: "cats", Page: 3, PageSize: 12, Epoch: 7},
			want: &FetchRequest{Query: "cats", Page: 3, PageSize: 12, Epoch: 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, DeriveFetchIntent(tt.snap)); diff != "" {
				t.Errorf("DeriveFetchIntent mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 0, pageCount(0, 12))
	assert.Equal(t, 1, pageCount(1, 12))
	assert.Equal(t, 1, pageCount(12, 12))
	assert.Equal(t, 2, pageCount(13, 12))
	assert.Equal(t, 5, pageCount(50, 12))
	assert.Equal(t, 0, pageCount(50, 0))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "loading", StatusLoading.String())
	assert.Equal(t, "results", StatusResults.String())
	assert.Equal(t, "empty", StatusEmpty.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "unknown", Status(99).String())
}

func TestUUIDTokens(t *testing.T) {
	g := UUIDTokens{}
	a, b := g.NewToken(), g.NewToken()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

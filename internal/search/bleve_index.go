package search

import (
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/pixl/internal/debuglog"
	"github.com/pders01/pixl/internal/gallery"
)

// MinQueryLength is the shortest filter that produces matches.
const MinQueryLength = 2

// TagIndex is an in-memory bleve index over the images of the current
// search. It is rebuilt from scratch on every new query.
type TagIndex struct {
	mu  sync.Mutex
	idx bleve.Index
}

var (
	_ Searcher     = (*TagIndex)(nil)
	_ Indexer      = (*TagIndex)(nil)
	_ DebugStatser = (*TagIndex)(nil)
)

func NewTagIndex() (*TagIndex, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, err
	}
	return &TagIndex{idx: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	tags := bleve.NewTextFieldMapping()
	tags.Analyzer = standard.Name
	tags.Store = false
	tags.IncludeTermVectors = true

	user := bleve.NewTextFieldMapping()
	user.Analyzer = standard.Name
	user.Store = false

	kind := bleve.NewTextFieldMapping()
	kind.Analyzer = standard.Name
	kind.Store = false

	dm.AddFieldMappingsAt("tags", tags)
	dm.AddFieldMappingsAt("user", user)
	dm.AddFieldMappingsAt("type", kind)

	im.DefaultMapping = dm
	return im
}

// Add indexes images by their gallery ID.
func (t *TagIndex) Add(images []gallery.Image) error {
	if len(images) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	batch := t.idx.NewBatch()
	for _, img := range images {
		if err := batch.Index(img.ID, map[string]any{
			"tags": img.Tags,
			"user": img.Hit.User,
			"type": img.Hit.Type,
		}); err != nil {
			return err
		}
	}
	return t.idx.Batch(batch)
}

// Reset drops every indexed document.
func (t *TagIndex) Reset() error {
	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.idx
	t.idx = fresh
	return old.Close()
}

// Search returns matches ordered by score. A limit of zero or less
// returns every match.
func (t *TagIndex) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < MinQueryLength {
		return []*Result{}, nil
	}

	tokens := tokenize(query)
	var qs []bleveQuery.Query
	for _, tok := range tokens {
		// tags^3
		qt := bleve.NewMatchQuery(tok)
		qt.SetField("tags")
		qt.SetBoost(3.0)
		qs = append(qs, qt)
		qtp := bleve.NewPrefixQuery(tok)
		qtp.SetField("tags")
		qtp.SetBoost(2.5)
		qs = append(qs, qtp)
		// user^1
		qu := bleve.NewMatchQuery(tok)
		qu.SetField("user")
		qs = append(qs, qu)
		qup := bleve.NewPrefixQuery(tok)
		qup.SetField("user")
		qup.SetBoost(0.8)
		qs = append(qs, qup)
		// type^0.5
		qk := bleve.NewMatchQuery(tok)
		qk.SetField("type")
		qk.SetBoost(0.5)
		qs = append(qs, qk)
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if limit <= 0 {
		n, err := t.idx.DocCount()
		if err != nil {
			return nil, err
		}
		limit = int(n)
		if limit == 0 {
			return []*Result{}, nil
		}
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	res, err := t.idx.Search(req)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		out = append(out, &Result{ID: h.ID, Score: h.Score})
	}
	debuglog.Debugf("search: %q matched %d of %d", query, len(out), res.Total)
	return out, nil
}

// DocCount reports total documents in the index.
func (t *TagIndex) DocCount() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.idx.DocCount()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (t *TagIndex) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idx.Close()
}

// Filter keeps the images s matches for query, in their original order.
// A query too short to search returns images unchanged.
func Filter(s Searcher, images []gallery.Image, query string) ([]gallery.Image, error) {
	if len(strings.TrimSpace(query)) < MinQueryLength {
		return images, nil
	}

	results, err := s.Search(query, 0)
	if err != nil {
		return nil, err
	}

	hit := make(map[string]struct{}, len(results))
	for _, r := range results {
		hit[r.ID] = struct{}{}
	}

	out := make([]gallery.Image, 0, len(results))
	for _, img := range images {
		if _, ok := hit[img.ID]; ok {
			out = append(out, img)
		}
	}
	return out, nil
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit, skipping single characters.
func tokenize(text string) []string {
	var terms []string
	current := strings.Builder{}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else if current.Len() > 0 {
			if term := current.String(); len(term) > 1 {
				terms = append(terms, term)
			}
			current.Reset()
		}
	}

	if current.Len() > 1 {
		terms = append(terms, current.String())
	}

	return terms
}

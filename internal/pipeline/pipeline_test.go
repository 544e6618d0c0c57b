package pipeline

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsdigest/internal/config"
	"github.com/deusflow/newsdigest/internal/fetch"
	"github.com/deusflow/newsdigest/internal/gemini"
	"github.com/deusflow/newsdigest/internal/sources"
)

// fakeLister serves canned link lists per source URL.
type fakeLister struct {
	links map[string][]string
	errs  map[string]error
	calls int
}

func (f *fakeLister) ListArticleLinks(sourceURL string) ([]string, error) {
	f.calls++
	if err := f.errs[sourceURL]; err != nil {
		return nil, err
	}
	return f.links[sourceURL], nil
}

// fakeFetcher serves canned metadata per article URL.
type fakeFetcher struct {
	meta  map[string]*fetch.Metadata
	errs  map[string]error
	calls int
}

func (f *fakeFetcher) FetchMetadata(url string) (*fetch.Metadata, error) {
	f.calls++
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	if m, ok := f.meta[url]; ok {
		return m, nil
	}
	return &fetch.Metadata{Title: "Title for " + url, Text: "Body for " + url}, nil
}

// fakeJudge records snippets and serves canned judgments keyed by title.
type fakeJudge struct {
	judgments map[string]*gemini.Judgment
	errs      map[string]error
	snippets  map[string]string
	calls     int
	panics    bool
}

func (f *fakeJudge) JudgeArticle(prefs config.Preferences, title, source, snippet string) (*gemini.Judgment, error) {
	f.calls++
	if f.panics {
		panic("judge blew up")
	}
	if f.snippets == nil {
		f.snippets = map[string]string{}
	}
	f.snippets[title] = snippet
	if err := f.errs[title]; err != nil {
		return nil, err
	}
	if j, ok := f.judgments[title]; ok {
		return j, nil
	}
	return &gemini.Judgment{RelevanceScore: 0.5, Topics: []string{}, KeywordsMatched: []string{}}, nil
}

func boolPtr(v bool) *bool { return &v }

func testPrefs() config.Preferences {
	return config.Preferences{
		Topics:             []string{"technology"},
		GeographicFocus:    []string{"global"},
		IncludeOpinion:     true,
		IncludeAnalysis:    true,
		RelevanceThreshold: 0.7,
		MaxArticles:        10,
	}
}

func TestExtractDomain(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.example.com/news/story", "example.com"},
		{"http://news.bbc.co.uk/article/1", "news.bbc.co.uk"},
		{"https://example.com", "example.com"},
		{"https://www.example.com:8080/x", "example.com:8080"},
		{"not-a-url", ""},
		{"", ""},
		{"/relative/path", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractDomain(tc.url), "url=%q", tc.url)
	}
}

// TestDiscoverer_StopsAtPerSourceCap verifies that discovery inspects only
// a bounded link prefix and stops once the per-source cap is met.
func TestDiscoverer_StopsAtPerSourceCap(t *testing.T) {
	var links []string
	for i := 0; i < 10; i++ {
		links = append(links, fmt.Sprintf("https://example.com/a%d", i))
	}

	lister := &fakeLister{links: map[string][]string{"https://example.com": links}}
	fetcher := &fakeFetcher{}
	d := NewDiscoverer(lister, fetcher, 2, 0, 0)

	got := d.Discover([]string{"https://example.com"}, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "https://example.com/a0", got[0].URL)
	assert.Equal(t, "https://example.com/a2", got[2].URL)
	// Cap reached after 3 fetches; the headroom prefix (6) is never exhausted.
	assert.Equal(t, 3, fetcher.calls)
}

// TestDiscoverer_HeadroomBoundsFetches verifies that failing links consume
// headroom but never push fetching past the prefix.
func TestDiscoverer_HeadroomBoundsFetches(t *testing.T) {
	var links []string
	errs := map[string]error{}
	for i := 0; i < 10; i++ {
		u := fmt.Sprintf("https://example.com/a%d", i)
		links = append(links, u)
		errs[u] = fmt.Errorf("boom")
	}

	lister := &fakeLister{links: map[string][]string{"https://example.com": links}}
	fetcher := &fakeFetcher{errs: errs}
	d := NewDiscoverer(lister, fetcher, 2, 0, 0)

	got := d.Discover([]string{"https://example.com"}, 3)

	assert.Empty(t, got)
	assert.Equal(t, 6, fetcher.calls) // headroom * cap
}

// TestDiscoverer_SkipsUnusableLinks verifies per-link skip behavior: fetch
// errors and missing titles drop the link, later links still count.
func TestDiscoverer_SkipsUnusableLinks(t *testing.T) {
	src := "https://example.com"
	lister := &fakeLister{links: map[string][]string{src: {
		"https://example.com/bad",
		"https://example.com/untitled",
		"https://example.com/good",
	}}}
	fetcher := &fakeFetcher{
		errs: map[string]error{"https://example.com/bad": fmt.Errorf("timeout")},
		meta: map[string]*fetch.Metadata{
			"https://example.com/untitled": {Title: "", Text: "body"},
			"https://example.com/good":     {Title: "Good", Text: "body"},
		},
	}
	d := NewDiscoverer(lister, fetcher, 2, 0, 0)

	got := d.Discover([]string{src}, 5)

	require.Len(t, got, 1)
	assert.Equal(t, "Good", got[0].Title)
	assert.Equal(t, "example.com", got[0].Source)
	assert.Equal(t, src, got[0].OriginSource)
}

// TestDiscoverer_SourceFailureIsIsolated verifies that a source whose link
// listing fails contributes nothing while other sources still yield
// candidates.
func TestDiscoverer_SourceFailureIsIsolated(t *testing.T) {
	lister := &fakeLister{
		links: map[string][]string{"https://ok.com": {"https://ok.com/a"}},
		errs:  map[string]error{"https://down.com": fmt.Errorf("connection refused")},
	}
	d := NewDiscoverer(lister, &fakeFetcher{}, 2, 0, 0)

	got := d.Discover([]string{"https://down.com", "https://ok.com"}, 5)

	require.Len(t, got, 1)
	assert.Equal(t, "https://ok.com/a", got[0].URL)
}

func TestDiscoverer_SnippetIsBounded(t *testing.T) {
	src := "https://example.com"
	longText := strings.Repeat("x", 5000)
	lister := &fakeLister{links: map[string][]string{src: {"https://example.com/a"}}}
	fetcher := &fakeFetcher{meta: map[string]*fetch.Metadata{
		"https://example.com/a": {Title: "A", Text: longText},
	}}
	d := NewDiscoverer(lister, fetcher, 2, 0, 0)

	got := d.Discover([]string{src}, 1)

	require.Len(t, got, 1)
	assert.Len(t, got[0].Snippet, snippetMaxChars)
}

// TestDiscoverer_FiltersStaleArticles verifies the freshness window:
// articles older than the cutoff are dropped, undated articles are kept.
func TestDiscoverer_FiltersStaleArticles(t *testing.T) {
	src := "https://example.com"
	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now().Add(-1 * time.Hour)

	lister := &fakeLister{links: map[string][]string{src: {
		"https://example.com/old",
		"https://example.com/fresh",
		"https://example.com/undated",
	}}}
	fetcher := &fakeFetcher{meta: map[string]*fetch.Metadata{
		"https://example.com/old":     {Title: "Old", Text: "t", PublishedAt: &old},
		"https://example.com/fresh":   {Title: "Fresh", Text: "t", PublishedAt: &fresh},
		"https://example.com/undated": {Title: "Undated", Text: "t"},
	}}
	d := NewDiscoverer(lister, fetcher, 2, 0, 24)

	got := d.Discover([]string{src}, 5)

	require.Len(t, got, 2)
	assert.Equal(t, "Fresh", got[0].Title)
	assert.Equal(t, "Undated", got[1].Title)
}

// TestEvaluator_EmptyInput verifies that an empty candidate list issues no
// judgment requests at all.
func TestEvaluator_EmptyInput(t *testing.T) {
	judge := &fakeJudge{}
	e := NewEvaluator(judge, testPrefs())

	got := e.Evaluate(nil)

	assert.Empty(t, got)
	assert.Equal(t, 0, judge.calls)
}

// TestEvaluator_SkipsExcludedSourcesBeforeJudging verifies that excluded
// sources never cost a judgment request.
func TestEvaluator_SkipsExcludedSourcesBeforeJudging(t *testing.T) {
	prefs := testPrefs()
	prefs.ExcludedSources = []string{"tabloid.com"}
	judge := &fakeJudge{}
	e := NewEvaluator(judge, prefs)

	got := e.Evaluate([]Candidate{
		{Title: "Junk", URL: "https://tabloid.com/a", Source: "tabloid.com", Snippet: "s"},
		{Title: "Real", URL: "https://example.com/a", Source: "example.com", Snippet: "s"},
	})

	require.Len(t, got, 1)
	assert.Equal(t, "Real", got[0].Title)
	assert.Equal(t, 1, judge.calls)
}

// TestEvaluator_PlaceholderSnippet verifies that a candidate without a
// snippet is judged with a titled placeholder, not an empty string.
func TestEvaluator_PlaceholderSnippet(t *testing.T) {
	judge := &fakeJudge{}
	e := NewEvaluator(judge, testPrefs())

	got := e.Evaluate([]Candidate{
		{Title: "Quiet Story", URL: "https://example.com/a", Source: "example.com"},
	})

	require.Len(t, got, 1)
	assert.Equal(t, "[No preview for Quiet Story]", judge.snippets["Quiet Story"])
	assert.Equal(t, "[No preview for Quiet Story]", got[0].Snippet)
}

// TestEvaluator_DropsFailedJudgments verifies that a judgment error drops
// only that candidate and keeps input order for the rest.
func TestEvaluator_DropsFailedJudgments(t *testing.T) {
	judge := &fakeJudge{errs: map[string]error{"B": fmt.Errorf("quota")}}
	e := NewEvaluator(judge, testPrefs())

	got := e.Evaluate([]Candidate{
		{Title: "A", URL: "https://example.com/a", Source: "example.com", Snippet: "s"},
		{Title: "B", URL: "https://example.com/b", Source: "example.com", Snippet: "s"},
		{Title: "C", URL: "https://example.com/c", Source: "example.com", Snippet: "s"},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Title)
	assert.Equal(t, "C", got[1].Title)
	assert.Equal(t, 3, judge.calls)
}

// TestSelector_RankingScenario walks the full selection path: exclusion,
// threshold filter, preferred-source boost, descending order, and the
// article cap, all at once.
func TestSelector_RankingScenario(t *testing.T) {
	prefs := testPrefs()
	prefs.MaxArticles = 2
	prefs.PreferredSources = []string{"preferred.com"}
	prefs.ExcludedSources = []string{"excluded.com"}
	s := NewSelector(prefs, 1.2)

	input := []ScoredCandidate{
		{Candidate: Candidate{Title: "A", URL: "https://example.com/a", Source: "example.com"}, RelevanceScore: 0.8},
		{Candidate: Candidate{Title: "B", URL: "https://preferred.com/b", Source: "preferred.com"}, RelevanceScore: 0.75},
		{Candidate: Candidate{Title: "Low", URL: "https://example.com/low", Source: "example.com"}, RelevanceScore: 0.65},
		{Candidate: Candidate{Title: "C", URL: "https://excluded.com/c", Source: "excluded.com"}, RelevanceScore: 0.9},
	}

	got := s.Select(input)

	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Title)
	assert.InDelta(t, 0.9, got[0].RelevanceScore, 1e-9)
	assert.Equal(t, "A", got[1].Title)
	assert.InDelta(t, 0.8, got[1].RelevanceScore, 1e-9)
	for _, c := range got {
		assert.True(t, c.Selected)
	}
}

// TestSelector_DoesNotMutateInput verifies that selection leaves the
// caller's candidates untouched, so running it twice gives the same
// result.
func TestSelector_DoesNotMutateInput(t *testing.T) {
	prefs := testPrefs()
	prefs.PreferredSources = []string{"preferred.com"}
	s := NewSelector(prefs, 1.2)

	input := []ScoredCandidate{
		{Candidate: Candidate{Title: "B", URL: "https://preferred.com/b", Source: "preferred.com"}, RelevanceScore: 0.75},
	}

	first := s.Select(input)
	require.Len(t, first, 1)
	assert.InDelta(t, 0.9, first[0].RelevanceScore, 1e-9)

	// The input keeps its pre-boost score and unselected state.
	assert.InDelta(t, 0.75, input[0].RelevanceScore, 1e-9)
	assert.False(t, input[0].Selected)

	second := s.Select(input)
	require.Len(t, second, 1)
	assert.InDelta(t, 0.9, second[0].RelevanceScore, 1e-9)
}

func TestSelector_BoostIsClampedToOne(t *testing.T) {
	prefs := testPrefs()
	prefs.PreferredSources = []string{"preferred.com"}
	s := NewSelector(prefs, 1.2)

	got := s.Select([]ScoredCandidate{
		{Candidate: Candidate{Title: "B", Source: "preferred.com"}, RelevanceScore: 0.95},
	})

	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].RelevanceScore)
}

// TestSelector_UnknownFlagsPass verifies tri-state handling: only an
// explicit true is filtered when the profile disables a piece type.
func TestSelector_UnknownFlagsPass(t *testing.T) {
	prefs := testPrefs()
	prefs.IncludeOpinion = false
	prefs.IncludeAnalysis = false
	s := NewSelector(prefs, 1.2)

	got := s.Select([]ScoredCandidate{
		{Candidate: Candidate{Title: "Unknown", Source: "example.com"}, RelevanceScore: 0.8},
		{Candidate: Candidate{Title: "NotOpinion", Source: "example.com"}, RelevanceScore: 0.8, IsOpinion: boolPtr(false)},
		{Candidate: Candidate{Title: "Analysis", Source: "example.com"}, RelevanceScore: 0.8, IsAnalysis: boolPtr(true)},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "Unknown", got[0].Title)
	assert.Equal(t, "NotOpinion", got[1].Title)
}

// TestSelector_StableOrderForEqualScores verifies that ties keep their
// evaluation order.
func TestSelector_StableOrderForEqualScores(t *testing.T) {
	s := NewSelector(testPrefs(), 1.2)

	got := s.Select([]ScoredCandidate{
		{Candidate: Candidate{Title: "First", Source: "a.com"}, RelevanceScore: 0.8},
		{Candidate: Candidate{Title: "Second", Source: "b.com"}, RelevanceScore: 0.8},
		{Candidate: Candidate{Title: "Third", Source: "c.com"}, RelevanceScore: 0.8},
	})

	require.Len(t, got, 3)
	assert.Equal(t, "First", got[0].Title)
	assert.Equal(t, "Second", got[1].Title)
	assert.Equal(t, "Third", got[2].Title)
}

func TestSelector_CapsAtMaxArticles(t *testing.T) {
	prefs := testPrefs()
	prefs.MaxArticles = 2
	s := NewSelector(prefs, 1.2)

	got := s.Select([]ScoredCandidate{
		{Candidate: Candidate{Title: "A", Source: "a.com"}, RelevanceScore: 0.9},
		{Candidate: Candidate{Title: "B", Source: "b.com"}, RelevanceScore: 0.8},
		{Candidate: Candidate{Title: "C", Source: "c.com"}, RelevanceScore: 0.95},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "C", got[0].Title)
	assert.Equal(t, "A", got[1].Title)
}

// TestSelector_ExcludedSourcesNeverSelected verifies the double check:
// even scored candidates from excluded sources are dropped.
func TestSelector_ExcludedSourcesNeverSelected(t *testing.T) {
	prefs := testPrefs()
	prefs.ExcludedSources = []string{"tabloid.com"}
	s := NewSelector(prefs, 1.2)

	got := s.Select([]ScoredCandidate{
		{Candidate: Candidate{Title: "Junk", Source: "tabloid.com"}, RelevanceScore: 0.99},
		{Candidate: Candidate{Title: "Real", Source: "example.com"}, RelevanceScore: 0.8},
	})

	require.Len(t, got, 1)
	assert.Equal(t, "Real", got[0].Title)
}

func newTestPipeline(lister sources.Lister, judge Judge, prefs config.Preferences) *Pipeline {
	d := NewDiscoverer(lister, &fakeFetcher{}, 2, 0, 0)
	e := NewEvaluator(judge, prefs)
	s := NewSelector(prefs, 1.2)
	return New(d, e, s, prefs.MaxArticles)
}

// TestPipeline_ReturnsSelectedURLsInOrder runs the whole pipeline over
// fakes and checks the final URL list.
func TestPipeline_ReturnsSelectedURLsInOrder(t *testing.T) {
	lister := &fakeLister{links: map[string][]string{
		"https://example.com": {"https://example.com/a", "https://example.com/b"},
	}}
	judge := &fakeJudge{judgments: map[string]*gemini.Judgment{
		"Title for https://example.com/a": {RelevanceScore: 0.8},
		"Title for https://example.com/b": {RelevanceScore: 0.9},
	}}

	p := newTestPipeline(lister, judge, testPrefs())
	urls := p.GetArticleURLs([]string{"https://example.com"})

	require.Equal(t, []string{"https://example.com/b", "https://example.com/a"}, urls)
}

// TestPipeline_HighThresholdYieldsEmpty verifies that when nothing clears
// the relevance bar the pipeline signals fallback with an empty list.
func TestPipeline_HighThresholdYieldsEmpty(t *testing.T) {
	prefs := testPrefs()
	prefs.RelevanceThreshold = 0.99

	lister := &fakeLister{links: map[string][]string{
		"https://example.com": {"https://example.com/a"},
	}}
	judge := &fakeJudge{judgments: map[string]*gemini.Judgment{
		"Title for https://example.com/a": {RelevanceScore: 0.8},
	}}

	p := newTestPipeline(lister, judge, prefs)
	assert.Empty(t, p.GetArticleURLs([]string{"https://example.com"}))
}

// TestPipeline_EmptyDiscoveryShortCircuits verifies that no judgment is
// requested when discovery finds nothing.
func TestPipeline_EmptyDiscoveryShortCircuits(t *testing.T) {
	lister := &fakeLister{errs: map[string]error{"https://down.com": fmt.Errorf("unreachable")}}
	judge := &fakeJudge{}

	p := newTestPipeline(lister, judge, testPrefs())

	assert.Empty(t, p.GetArticleURLs([]string{"https://down.com"}))
	assert.Equal(t, 0, judge.calls)
}

// TestPipeline_RecoversFromPanic verifies that a panicking stage yields an
// empty list instead of crashing the run.
func TestPipeline_RecoversFromPanic(t *testing.T) {
	lister := &fakeLister{links: map[string][]string{
		"https://example.com": {"https://example.com/a"},
	}}
	judge := &fakeJudge{panics: true}

	p := newTestPipeline(lister, judge, testPrefs())

	assert.Empty(t, p.GetArticleURLs([]string{"https://example.com"}))
}

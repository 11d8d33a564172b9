package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letieu/goldmines/config"
	"github.com/letieu/goldmines/internal/apperror"
	"github.com/letieu/goldmines/internal/filter"
	"github.com/letieu/goldmines/internal/logging"
	"github.com/letieu/goldmines/internal/metrics"
	"github.com/letieu/goldmines/internal/model"
)

type fakeFetcher struct {
	posts []model.SourcePost
	err   error

	gotFeeds []string
	gotLimit int
}

func (f *fakeFetcher) Fetch(_ context.Context, feeds []string, limit int) ([]model.SourcePost, error) {
	f.gotFeeds = feeds
	f.gotLimit = limit
	return f.posts, f.err
}

type fakeComments struct {
	byPost map[string][]model.SourcePost
}

func (f *fakeComments) FetchComments(_ context.Context, _, postID string) ([]model.SourcePost, error) {
	c, ok := f.byPost[postID]
	if !ok {
		return nil, errors.New("no such post")
	}
	return c, nil
}

// echoAnalyzer turns every post into a draft named after its title, except
// posts whose body contains "fail".
type echoAnalyzer struct {
	seen []string
}

func (a *echoAnalyzer) Analyze(_ context.Context, posts []model.SourcePost) []model.Draft {
	var drafts []model.Draft
	for _, p := range posts {
		a.seen = append(a.seen, p.ExternalID)
		if strings.Contains(p.Body, "fail") {
			continue
		}
		drafts = append(drafts, model.Draft{
			IdeaFields: model.IdeaFields{
				IdeaName:     p.Title,
				FullAnalysis: strings.Repeat("analysis ", 10),
			},
			Post: p,
		})
	}
	return drafts
}

type memStore struct {
	posts   map[[2]string]int64
	ideas   []model.Draft
	nextID  int64
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{posts: map[[2]string]int64{}}
}

func (m *memStore) PostExists(_ context.Context, externalID, feed string) (bool, error) {
	_, ok := m.posts[[2]string{externalID, feed}]
	return ok, nil
}

func (m *memStore) savePost(p model.SourcePost) int64 {
	key := [2]string{p.ExternalID, p.Feed}
	if id, ok := m.posts[key]; ok {
		return id
	}
	m.nextID++
	m.posts[key] = m.nextID
	return m.nextID
}

// SaveDraft mirrors the gateway: a failed idea insert leaves no post behind.
func (m *memStore) SaveDraft(_ context.Context, d model.Draft) (*model.BusinessIdea, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	postID := m.savePost(d.Post)
	m.ideas = append(m.ideas, d)
	return &model.BusinessIdea{ID: int64(len(m.ideas)), PostID: postID, IdeaFields: d.IdeaFields}, nil
}

func post(id, title, body string) model.SourcePost {
	return model.SourcePost{ExternalID: id, Feed: "startups", Title: title, Body: body}
}

func testConfig() config.Crawler {
	return config.Crawler{
		Feeds:        []string{"startups"},
		LimitPerFeed: 5,
		MetaKeywords: []string{"share what you're building"},
	}
}

func newTestPipeline(f Fetcher, a Analyzer, s Store, opts ...Option) *Pipeline {
	return New(testConfig(), f, filter.NewKeywordFilter(config.DefaultKeywords), a, s, logging.Discard(), opts...)
}

func TestRunHappyPath(t *testing.T) {
	fetcher := &fakeFetcher{posts: []model.SourcePost{
		post("a", "A startup for bakers", "revenue is growing"),
		post("b", "My cat photos album", "just cats"),
		post("a", "A startup for bakers", "revenue is growing"),
		post("c", "Tiny", "saas idea that is too short a name"),
	}}
	analyzer := &echoAnalyzer{}
	store := newMemStore()

	report, err := newTestPipeline(fetcher, analyzer, store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"startups"}, fetcher.gotFeeds)
	assert.Equal(t, 5, fetcher.gotLimit)

	assert.Equal(t, 3, report.Fetched)
	assert.Equal(t, 2, report.Screened)
	assert.Equal(t, 2, report.Drafts)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, 1, report.Saved)
	assert.Equal(t, 0, report.Failed)

	require.Len(t, store.ideas, 1)
	assert.Equal(t, "A startup for bakers", store.ideas[0].IdeaName)
	// rejected drafts leave no source post behind
	_, stored := store.posts[[2]string{"c", "startups"}]
	assert.False(t, stored)
}

func TestRunSkipsExistingPosts(t *testing.T) {
	store := newMemStore()
	store.savePost(post("a", "A startup for bakers", ""))

	fetcher := &fakeFetcher{posts: []model.SourcePost{
		post("a", "A startup for bakers", ""),
		post("b", "Another business for florists", ""),
	}}
	analyzer := &echoAnalyzer{}

	report, err := newTestPipeline(fetcher, analyzer, store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.SkippedExisting)
	assert.Equal(t, []string{"b"}, analyzer.seen)
	assert.Equal(t, 1, report.Saved)
}

func TestRunZeroSurvivors(t *testing.T) {
	fetcher := &fakeFetcher{posts: []model.SourcePost{post("x", "Holiday photos from Spain", "")}}
	analyzer := &echoAnalyzer{}

	report, err := newTestPipeline(fetcher, analyzer, newMemStore()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Screened)
	assert.Empty(t, analyzer.seen)
}

func TestRunCountsAnalysisAndPersistenceFailures(t *testing.T) {
	fetcher := &fakeFetcher{posts: []model.SourcePost{
		post("a", "A startup for bakers", "this one will fail"),
		post("b", "Another business for florists", ""),
	}}
	store := newMemStore()
	store.saveErr = apperror.Persistence("insert", errors.New("disk full"))

	report, err := newTestPipeline(fetcher, &echoAnalyzer{}, store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Drafts)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 0, report.Saved)
}

func TestRunRetriesPostAfterFailedSave(t *testing.T) {
	fetcher := &fakeFetcher{posts: []model.SourcePost{post("a", "A startup for bakers", "")}}
	store := newMemStore()
	store.saveErr = apperror.Persistence("commit draft", errors.New("database is locked"))

	first, err := newTestPipeline(fetcher, &echoAnalyzer{}, store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Failed)
	assert.Empty(t, store.posts)

	store.saveErr = nil
	second, err := newTestPipeline(fetcher, &echoAnalyzer{}, store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.SkippedExisting)
	assert.Equal(t, 1, second.Saved)
	require.Len(t, store.ideas, 1)
}

func TestRunFetchErrorAborts(t *testing.T) {
	fetcher := &fakeFetcher{err: apperror.ValidationFailed("limit_per_feed", "limit must be at least 1")}
	analyzer := &echoAnalyzer{}
	m := metrics.New()

	_, err := newTestPipeline(fetcher, analyzer, newMemStore(), WithMetrics(m)).Run(context.Background())
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Empty(t, analyzer.seen)
}

func TestRunRecordsMetrics(t *testing.T) {
	fetcher := &fakeFetcher{posts: []model.SourcePost{
		post("a", "A startup for bakers", ""),
		post("b", "My cat photos album", ""),
	}}
	m := metrics.New()

	_, err := newTestPipeline(fetcher, &echoAnalyzer{}, newMemStore(), WithMetrics(m)).Run(context.Background())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `goldmines_pipeline_runs_total{result="ok"} 1`)
	assert.Contains(t, body, `goldmines_pipeline_posts_total{stage="fetched"} 2`)
	assert.Contains(t, body, `goldmines_pipeline_posts_total{stage="saved"} 1`)
	assert.Contains(t, body, `goldmines_pipeline_run_duration_seconds_count 1`)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{posts: []model.SourcePost{post("a", "A startup for bakers", "")}}
	analyzer := &echoAnalyzer{}

	_, err := newTestPipeline(fetcher, analyzer, newMemStore()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, analyzer.seen)
}

func TestRunMetaPosts(t *testing.T) {
	meta := post("m", "Share what you're building this week", "")
	fetcher := &fakeFetcher{posts: []model.SourcePost{meta, post("a", "A startup for bakers", "")}}

	t.Run("dropped without expansion", func(t *testing.T) {
		analyzer := &echoAnalyzer{}
		_, err := newTestPipeline(fetcher, analyzer, newMemStore()).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, analyzer.seen)
	})

	t.Run("expanded into comments", func(t *testing.T) {
		comments := &fakeComments{byPost: map[string][]model.SourcePost{
			"m": {
				post("c1", "A saas that tracks invoices", ""),
				post("c2", "Nothing related here at all", ""),
			},
		}}
		cfg := testConfig()
		cfg.ExpandMetaPosts = true
		analyzer := &echoAnalyzer{}

		p := New(cfg, fetcher, filter.NewKeywordFilter(config.DefaultKeywords), analyzer, newMemStore(), logging.Discard(), WithCommentExpansion(comments))
		report, err := p.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, report.MetaExpanded)
		assert.Equal(t, []string{"c1", "a"}, analyzer.seen)
	})
}

func TestPersistRejectsBeforeWriting(t *testing.T) {
	store := newMemStore()
	draft := model.Draft{
		IdeaFields: model.IdeaFields{IdeaName: "Abcd", FullAnalysis: strings.Repeat("x", 60)},
		Post:       post("z", "A startup", ""),
	}

	_, err := Persist(context.Background(), store, draft)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Empty(t, store.posts)

	draft.IdeaName = "Abcde"
	idea, err := Persist(context.Background(), store, draft)
	require.NoError(t, err)
	assert.Equal(t, int64(1), idea.PostID)
	assert.Len(t, store.posts, 1)
}

func TestScheduleRejectsBadCron(t *testing.T) {
	p := newTestPipeline(&fakeFetcher{}, &echoAnalyzer{}, newMemStore())
	err := p.Schedule(context.Background(), "not a cron")
	assert.Error(t, err)
}

func TestScheduleStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{}
	p := newTestPipeline(fetcher, &echoAnalyzer{}, newMemStore())
	require.NoError(t, p.Schedule(ctx, "0 3 * * *"))
	assert.Nil(t, fetcher.gotFeeds)
}

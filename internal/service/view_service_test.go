package service

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/knowshare/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRanker struct {
	scores  map[uint]int64
	fail    bool
	lastTop int
}

func newMemoryRanker() *memoryRanker {
	return &memoryRanker{scores: make(map[uint]int64)}
}

func (r *memoryRanker) Record(articleID uint) error {
	if r.fail {
		return errors.New("ranker down")
	}
	r.scores[articleID]++
	return nil
}

func (r *memoryRanker) Top(n int) ([]RankedArticle, error) {
	r.lastTop = n
	if r.fail {
		return nil, errors.New("ranker down")
	}
	out := make([]RankedArticle, 0, len(r.scores))
	for id, score := range r.scores {
		out = append(out, RankedArticle{ArticleID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (r *memoryRanker) Forget(articleID uint) error {
	if r.fail {
		return errors.New("ranker down")
	}
	delete(r.scores, articleID)
	return nil
}

func TestRecordViewDedupesWithinWindow(t *testing.T) {
	f := newArticleFixture(t, "views-dedupe")
	article := f.create(t, "Counted", func(in *ArticleInput) { in.IsPublished = true })
	ranker := newMemoryRanker()
	svc := NewViewService(f.db, ranker, nil).WithDedupWindow(10 * time.Minute)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	counted, err := svc.RecordView(article.ID, "visitor", base)
	require.NoError(t, err)
	assert.True(t, counted)

	counted, err = svc.RecordView(article.ID, "visitor", base.Add(5*time.Minute))
	require.NoError(t, err)
	assert.False(t, counted)

	counted, err = svc.RecordView(article.ID, "visitor", base.Add(16*time.Minute))
	require.NoError(t, err)
	assert.True(t, counted, "the window restarts from the last counted view")

	_, err = svc.RecordView(article.ID, "", base)
	assert.Error(t, err)

	var reloaded db.Article
	require.NoError(t, f.db.First(&reloaded, article.ID).Error)
	assert.Equal(t, int64(2), reloaded.ViewCount)
	assert.Equal(t, int64(2), ranker.scores[article.ID])
}

func TestPopularUsesRankerThenFallsBack(t *testing.T) {
	f := newArticleFixture(t, "views-popular")
	first := f.create(t, "First Popular", func(in *ArticleInput) { in.IsPublished = true })
	second := f.create(t, "Second Popular", func(in *ArticleInput) { in.IsPublished = true })
	draft := f.create(t, "Hidden Draft", nil)

	ranker := newMemoryRanker()
	ranker.scores[second.ID] = 10
	ranker.scores[first.ID] = 3
	ranker.scores[draft.ID] = 50
	svc := NewViewService(f.db, ranker, nil)

	ranked, err := svc.Popular(5)
	require.NoError(t, err)
	require.Len(t, ranked, 2, "drafts are dropped from the ranking")
	assert.Equal(t, second.ID, ranked[0].ID)
	assert.Equal(t, first.ID, ranked[1].ID)

	require.NoError(t, f.db.Model(&db.Article{}).Where("id = ?", first.ID).Update("view_count", 99).Error)
	ranker.fail = true
	fallback, err := svc.Popular(1)
	require.NoError(t, err)
	require.Len(t, fallback, 1)
	assert.Equal(t, first.ID, fallback[0].ID)

	svc.Forget(second.ID)
	_, ok := ranker.scores[second.ID]
	assert.True(t, ok, "failing ranker keeps its state")
	ranker.fail = false
	svc.Forget(second.ID)
	_, ok = ranker.scores[second.ID]
	assert.False(t, ok)
}

func TestPopularClampsLimit(t *testing.T) {
	f := newArticleFixture(t, "views-popular-clamp")
	published := f.create(t, "Clamped", func(in *ArticleInput) { in.IsPublished = true })

	ranker := newMemoryRanker()
	ranker.scores[published.ID] = 1
	svc := NewViewService(f.db, ranker, nil)

	articles, err := svc.Popular(1 << 30)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, maxLimit, ranker.lastTop)

	_, err = svc.Popular(0)
	require.NoError(t, err)
	assert.Equal(t, defaultLimit, ranker.lastTop)

	ranker.fail = true
	fallback, err := svc.Popular(1 << 30)
	require.NoError(t, err)
	assert.Len(t, fallback, 1)
}

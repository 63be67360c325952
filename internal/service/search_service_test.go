package service

import (
	"fmt"
	"testing"

	"github.com/knowshare/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchAcrossTypes(t *testing.T) {
	f := newArticleFixture(t, "search")
	svc := NewSearchService(f.db)

	f.create(t, "Kubernetes Basics", func(in *ArticleInput) { in.IsPublished = true })
	f.create(t, "Kubernetes Drafts", nil)
	_, err := NewCategoryService(f.db).Create(CategoryInput{Name: "Kubernetes"})
	require.NoError(t, err)
	createTestUser(t, f.db, "kubefan", "viewer")

	_, err = svc.Search(SearchQuery{Query: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
	_, err = svc.Search(SearchQuery{Query: "kube", Type: "planets"})
	assert.True(t, IsValidation(err))

	all, err := svc.Search(SearchQuery{Query: "kube"})
	require.NoError(t, err)
	assert.Len(t, all.Data.Articles, 1, "drafts are not searchable")
	assert.Len(t, all.Data.Categories, 1)
	assert.Len(t, all.Data.Users, 1)
	assert.Equal(t, int64(3), all.Meta.Total)
	assert.Equal(t, SearchAll, all.Meta.Type)

	onlyUsers, err := svc.Search(SearchQuery{Query: "kube", Type: "users"})
	require.NoError(t, err)
	assert.Empty(t, onlyUsers.Data.Articles)
	require.Len(t, onlyUsers.Data.Users, 1)
	assert.Equal(t, "kubefan", onlyUsers.Data.Users[0].Username)
	assert.Equal(t, int64(1), onlyUsers.Meta.Total)
}

func TestSuggestPrefersPrefixMatches(t *testing.T) {
	f := newArticleFixture(t, "suggest")
	svc := NewSearchService(f.db)

	f.create(t, "Learning Rust", func(in *ArticleInput) { in.IsPublished = true })
	f.create(t, "Rust Ownership", func(in *ArticleInput) {
		in.IsPublished = true
		in.Tags = []string{"rust"}
	})

	suggestions, err := svc.Suggest("RUST")
	require.NoError(t, err)
	require.Len(t, suggestions, 3)
	assert.Equal(t, []string{"Rust Ownership", "rust", "Learning Rust"}, suggestions)

	empty, err := svc.Suggest("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSuggestKeepsPrefixMatchesBehindPopularTitles(t *testing.T) {
	f := newArticleFixture(t, "suggest-popular")
	svc := NewSearchService(f.db)

	for i := 1; i <= 12; i++ {
		a := f.create(t, fmt.Sprintf("Learning Rust part %02d", i), func(in *ArticleInput) { in.IsPublished = true })
		require.NoError(t, f.db.Model(&db.Article{}).Where("id = ?", a.ID).Update("view_count", 100).Error)
	}
	f.create(t, "Rust Ownership", func(in *ArticleInput) { in.IsPublished = true })

	suggestions, err := svc.Suggest("rust")
	require.NoError(t, err)
	require.Len(t, suggestions, maxSuggestions)
	assert.Equal(t, "Rust Ownership", suggestions[0])
	assert.Equal(t, "Learning Rust part 01", suggestions[1])
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	f := newArticleFixture(t, "search-wildcards")
	svc := NewSearchService(f.db)

	f.create(t, "100% coverage", func(in *ArticleInput) { in.IsPublished = true })
	f.create(t, "1000 ways", func(in *ArticleInput) { in.IsPublished = true })
	f.create(t, "snake_case names", func(in *ArticleInput) { in.IsPublished = true })
	f.create(t, "snakeXcase names", func(in *ArticleInput) { in.IsPublished = true })

	percent, err := svc.Search(SearchQuery{Query: "100%", Type: SearchArticles})
	require.NoError(t, err)
	require.Len(t, percent.Data.Articles, 1)
	assert.Equal(t, "100% coverage", percent.Data.Articles[0].Title)

	underscore, err := svc.Search(SearchQuery{Query: "snake_case", Type: SearchArticles})
	require.NoError(t, err)
	require.Len(t, underscore.Data.Articles, 1)
	assert.Equal(t, "snake_case names", underscore.Data.Articles[0].Title)

	suggestions, err := svc.Suggest("100%")
	require.NoError(t, err)
	assert.Equal(t, []string{"100% coverage"}, suggestions)
}

func TestRankSuggestionsDedupesAndCaps(t *testing.T) {
	in := []string{"beta go", "Go", "go", "alpha go"}
	for i := 0; i < 12; i++ {
		in = append(in, "gopher "+string(rune('a'+i)))
	}
	out := rankSuggestions("go", in)
	assert.Len(t, out, maxSuggestions)
	assert.Equal(t, "Go", out[0])
}

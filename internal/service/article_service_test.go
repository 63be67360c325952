package service

import (
	"strings"
	"testing"
	"time"

	"github.com/knowshare/internal/db"
	"github.com/knowshare/internal/events"
	"github.com/knowshare/internal/events/eventstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type articleFixture struct {
	db       *gorm.DB
	svc      *ArticleService
	recorder *eventstest.Recorder
	author   *db.User
	other    *db.User
	admin    *db.User
	category *db.Category
}

func newArticleFixture(t *testing.T, name string) *articleFixture {
	t.Helper()
	gdb := setupTestDB(t, name)
	recorder := &eventstest.Recorder{}
	return &articleFixture{
		db:       gdb,
		svc:      NewArticleService(gdb, NewViewService(gdb, nil, nil), recorder),
		recorder: recorder,
		author:   createTestUser(t, gdb, "writer", db.RoleEditor),
		other:    createTestUser(t, gdb, "outsider", db.RoleEditor),
		admin:    createTestUser(t, gdb, "boss", db.RoleAdmin),
		category: createTestCategory(t, gdb, "Engineering"),
	}
}

func (f *articleFixture) create(t *testing.T, title string, mutate func(*ArticleInput)) *db.Article {
	t.Helper()
	input := ArticleInput{
		Title:      title,
		Content:    "Some body text that is long enough.",
		CategoryID: f.category.ID,
	}
	if mutate != nil {
		mutate(&input)
	}
	article, err := f.svc.Create(input, actorOf(f.author))
	require.NoError(t, err)
	return article
}

func TestArticleCreateDerivesFields(t *testing.T) {
	f := newArticleFixture(t, "article-create")

	content := "![cover](https://example.com/cover.png)\n\n" + strings.Repeat("字", 401)
	article := f.create(t, "Hello World!", func(in *ArticleInput) {
		in.Content = content
		in.Tags = []string{"Go", " go ", "Web Dev", ""}
	})

	assert.Equal(t, "hello-world", article.Slug)
	assert.Equal(t, db.ArticleDraft, article.Status)
	assert.Nil(t, article.PublishedAt)
	assert.Equal(t, 2, article.ReadingTime)
	assert.Equal(t, "https://example.com/cover.png", article.ImageURL)
	assert.True(t, strings.HasSuffix(article.Excerpt, "…"))
	require.NotNil(t, article.Author)
	assert.Equal(t, "writer", article.Author.Username)
	require.Len(t, article.Tags, 2)

	versions, err := f.svc.Versions(article.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].VersionNumber)
	assert.Empty(t, f.recorder.Events())
}

func TestArticleCreateUniqueSlugAndPublish(t *testing.T) {
	f := newArticleFixture(t, "article-slug")

	first := f.create(t, "Same Title", nil)
	second := f.create(t, "Same Title", func(in *ArticleInput) { in.IsPublished = true })

	assert.Equal(t, "same-title", first.Slug)
	assert.Equal(t, "same-title-1", second.Slug)
	assert.Equal(t, db.ArticlePublished, second.Status)
	assert.NotNil(t, second.PublishedAt)

	recorded := f.recorder.Events()
	require.Len(t, recorded, 1)
	assert.Equal(t, events.ArticlePublished, recorded[0].Type)
	assert.Equal(t, second.ID, recorded[0].ResourceID)

	require.NoError(t, f.svc.Delete(first.ID, actorOf(f.author)))
	third := f.create(t, "Same Title", nil)
	assert.Equal(t, "same-title-2", third.Slug, "soft deleted slugs stay reserved")
}

func TestArticleCreateValidation(t *testing.T) {
	f := newArticleFixture(t, "article-validate")

	_, err := f.svc.Create(ArticleInput{Title: "ab", Content: "long enough content", CategoryID: f.category.ID}, actorOf(f.author))
	assert.True(t, IsValidation(err))

	_, err = f.svc.Create(ArticleInput{Title: "Valid title", Content: "short", CategoryID: f.category.ID}, actorOf(f.author))
	assert.True(t, IsValidation(err))

	_, err = f.svc.Create(ArticleInput{Title: "Valid title", Content: "long enough content", CategoryID: 9999}, actorOf(f.author))
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestArticleUpdateAppendsVersions(t *testing.T) {
	f := newArticleFixture(t, "article-update")
	article := f.create(t, "Original Title", nil)

	newTitle := "Renamed Title"
	_, err := f.svc.Update(article.ID, ArticleUpdateInput{Title: &newTitle}, actorOf(f.other))
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := f.svc.Update(article.ID, ArticleUpdateInput{Title: &newTitle, ChangeSummary: "rename"}, actorOf(f.author))
	require.NoError(t, err)
	assert.Equal(t, "renamed-title", updated.Slug)

	tags := []string{"Only"}
	updated, err = f.svc.Update(article.ID, ArticleUpdateInput{Tags: &tags}, actorOf(f.admin))
	require.NoError(t, err)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "only", updated.Tags[0].Slug)

	versions, err := f.svc.Versions(article.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2, "tag-only updates do not create versions")
	assert.Equal(t, 2, versions[0].VersionNumber)
	assert.Equal(t, "rename", versions[0].ChangeSummary)

	restored, err := f.svc.RestoreVersion(article.ID, 1, actorOf(f.author))
	require.NoError(t, err)
	assert.Equal(t, "Original Title", restored.Title)
	assert.Equal(t, "original-title", restored.Slug)

	v3, err := f.svc.Version(article.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, "Restored from version 1", v3.ChangeSummary)

	_, err = f.svc.Version(article.ID, 42)
	assert.ErrorIs(t, err, ErrVersionNotFound)
}

func TestArticlePublishUnpublish(t *testing.T) {
	f := newArticleFixture(t, "article-publish")
	article := f.create(t, "Draft Piece", nil)

	published, err := f.svc.Publish(article.ID, actorOf(f.author))
	require.NoError(t, err)
	assert.Equal(t, db.ArticlePublished, published.Status)
	require.NotNil(t, published.PublishedAt)
	firstPublished := *published.PublishedAt

	unpublished, err := f.svc.Unpublish(article.ID, actorOf(f.author))
	require.NoError(t, err)
	assert.Equal(t, db.ArticleDraft, unpublished.Status)

	f.svc.now = func() time.Time { return firstPublished.Add(time.Hour) }
	again, err := f.svc.Publish(article.ID, actorOf(f.author))
	require.NoError(t, err)
	assert.True(t, again.PublishedAt.Equal(firstPublished), "published_at is kept on republish")

	types := []string{}
	for _, e := range f.recorder.Events() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{events.ArticlePublished, events.ArticleUnpublished, events.ArticlePublished}, types)

	_, err = f.svc.Publish(article.ID, actorOf(f.other))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestArticleListFilters(t *testing.T) {
	f := newArticleFixture(t, "article-list")
	other := createTestCategory(t, f.db, "Design")

	f.create(t, "Go Generics", func(in *ArticleInput) {
		in.Tags = []string{"go"}
		in.IsPublished = true
	})
	f.create(t, "CSS Grid", func(in *ArticleInput) { in.CategoryID = other.ID })
	mine, err := f.svc.Create(ArticleInput{Title: "Admin Notes", Content: "admins write too sometimes", CategoryID: f.category.ID}, actorOf(f.admin))
	require.NoError(t, err)

	all, err := f.svc.List(ArticleFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Meta.TotalCount)

	byCategory, err := f.svc.List(ArticleFilter{CategoryID: other.ID})
	require.NoError(t, err)
	require.Len(t, byCategory.Data, 1)
	assert.Equal(t, "CSS Grid", byCategory.Data[0].Title)

	var goTag db.Tag
	require.NoError(t, f.db.Where("slug = ?", "go").First(&goTag).Error)
	byTag, err := f.svc.List(ArticleFilter{TagID: goTag.ID})
	require.NoError(t, err)
	require.Len(t, byTag.Data, 1)

	search, err := f.svc.List(ArticleFilter{Search: "grid"})
	require.NoError(t, err)
	require.Len(t, search.Data, 1)

	published, err := f.svc.ListPublished(ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, published.Data, 1)
	assert.Equal(t, "Go Generics", published.Data[0].Title)

	adminArticles, err := f.svc.ListByAuthor(f.admin.ID, ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, adminArticles.Data, 1)
	assert.Equal(t, mine.ID, adminArticles.Data[0].ID)
}

func TestArticleReadCountsViewsOncePerVisitor(t *testing.T) {
	f := newArticleFixture(t, "article-read")
	article := f.create(t, "Readable", func(in *ArticleInput) {
		in.Content = "# Heading\n\n<script>alert(1)</script>\n\nplain **bold** text"
	})

	detail, err := f.svc.ReadBySlug(article.Slug, "visitor-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.ViewCount)
	assert.Contains(t, detail.ContentHTML, "<strong>bold</strong>")
	assert.NotContains(t, detail.ContentHTML, "<script>")

	detail, err = f.svc.Read(article.ID, "visitor-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.ViewCount)

	detail, err = f.svc.Read(article.ID, "visitor-b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), detail.ViewCount)

	_, err = f.svc.ReadBySlug("missing", "visitor-a")
	assert.ErrorIs(t, err, ErrArticleNotFound)
}

func TestArticleDeleteCleansUp(t *testing.T) {
	f := newArticleFixture(t, "article-delete")
	article := f.create(t, "Doomed", func(in *ArticleInput) { in.Tags = []string{"temp"} })

	comments := NewCommentService(f.db)
	_, err := comments.Create(article.ID, "first!", nil, actorOf(f.other))
	require.NoError(t, err)

	articleID := article.ID
	attachment := db.Attachment{OriginalName: "a.txt", Filename: "a.txt", Path: "/tmp/a.txt", ArticleID: &articleID}
	require.NoError(t, f.db.Create(&attachment).Error)

	assert.ErrorIs(t, f.svc.Delete(article.ID, actorOf(f.other)), ErrForbidden)
	require.NoError(t, f.svc.Delete(article.ID, actorOf(f.admin)))

	_, err = f.svc.Get(article.ID)
	assert.ErrorIs(t, err, ErrArticleNotFound)

	var links int64
	require.NoError(t, f.db.Table("article_tags").Where("article_id = ?", article.ID).Count(&links).Error)
	assert.Zero(t, links)

	var remaining int64
	require.NoError(t, f.db.Model(&db.Comment{}).Where("article_id = ?", article.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)

	var reloaded db.Attachment
	require.NoError(t, f.db.First(&reloaded, attachment.ID).Error)
	assert.Nil(t, reloaded.ArticleID)

	recorded := f.recorder.Events()
	require.NotEmpty(t, recorded)
	assert.Equal(t, events.ArticleDeleted, recorded[len(recorded)-1].Type)
}

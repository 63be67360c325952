package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/knowshare/internal/db"
	"github.com/knowshare/internal/events"
	"github.com/knowshare/internal/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArticleService wraps article related database operations.
type ArticleService struct {
	db     *gorm.DB
	views  *ViewService
	events events.Publisher
	now    func() time.Time
}

// ArticleInput represents fields accepted when creating an article.
type ArticleInput struct {
	Title        string
	Content      string
	Excerpt      string
	CategoryID   uint
	Tags         []string
	Status       string
	IsPublished  bool
	ImageURL     string
	ThumbnailURL string
}

// ArticleUpdateInput carries optional changes; nil fields are left untouched.
type ArticleUpdateInput struct {
	Title         *string
	Content       *string
	Excerpt       *string
	CategoryID    *uint
	Tags          *[]string
	Status        *string
	ImageURL      *string
	ThumbnailURL  *string
	ChangeSummary string
}

// ArticleFilter describes filters for listing articles.
type ArticleFilter struct {
	Search     string
	CategoryID uint
	TagID      uint
	Status     string
	AuthorID   uint
	Pagination
}

// ArticleDetail 是带渲染后 HTML 的文章详情。
type ArticleDetail struct {
	db.Article
	ContentHTML string `json:"contentHtml"`
}

// NewArticleService creates an ArticleService. views and publisher may be nil.
func NewArticleService(gdb *gorm.DB, views *ViewService, publisher events.Publisher) *ArticleService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ArticleService{db: gdb, views: views, events: publisher, now: time.Now}
}

// Create persists an article, its tags and the first version snapshot in a transaction.
func (s *ArticleService) Create(input ArticleInput, author Actor) (*db.Article, error) {
	title := strings.TrimSpace(input.Title)
	if err := validateArticle(title, input.Content); err != nil {
		return nil, err
	}

	status := strings.TrimSpace(input.Status)
	if input.IsPublished {
		status = db.ArticlePublished
	}
	if status == "" {
		status = db.ArticleDraft
	}
	if !db.ValidArticleStatus(status) {
		return nil, invalid("status", "must be one of draft, review, published, archived")
	}

	excerpt := strings.TrimSpace(input.Excerpt)
	if excerpt == "" {
		excerpt = buildExcerpt(input.Content)
	}
	imageURL := strings.TrimSpace(input.ImageURL)
	if imageURL == "" {
		imageURL = firstImageURL(input.Content)
	}

	var article db.Article
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := ensureCategory(tx, input.CategoryID); err != nil {
			return err
		}

		articleSlug, err := uniqueArticleSlug(tx, title, 0)
		if err != nil {
			return err
		}

		tags, err := resolveTags(tx, input.Tags)
		if err != nil {
			return err
		}

		article = db.Article{
			Title:        title,
			Slug:         articleSlug,
			Content:      input.Content,
			Excerpt:      excerpt,
			Status:       status,
			ReadingTime:  calculateReadingTime(input.Content),
			ImageURL:     imageURL,
			ThumbnailURL: strings.TrimSpace(input.ThumbnailURL),
			AuthorID:     author.ID,
			CategoryID:   input.CategoryID,
			Tags:         tags,
		}
		if status == db.ArticlePublished {
			now := s.now()
			article.PublishedAt = &now
		}
		if err := tx.Omit("Tags.*").Create(&article).Error; err != nil {
			return err
		}

		return tx.Create(&db.Version{
			ArticleID:     article.ID,
			VersionNumber: 1,
			Title:         article.Title,
			Content:       article.Content,
			ChangeSummary: "Initial version",
			AuthorID:      author.ID,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if article.Status == db.ArticlePublished {
		s.publish(events.ArticlePublished, &article, author)
	}
	return s.Get(article.ID)
}

// Get fetches an article by id with author, category and tags preloaded.
func (s *ArticleService) Get(id uint) (*db.Article, error) {
	var article db.Article
	if err := s.preloaded(s.db).First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}
	return &article, nil
}

// GetBySlug fetches an article by slug.
func (s *ArticleService) GetBySlug(articleSlug string) (*db.Article, error) {
	var article db.Article
	if err := s.preloaded(s.db).Where("slug = ?", strings.TrimSpace(articleSlug)).First(&article).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}
	return &article, nil
}

// Read loads an article for display, counting the view for visitorID and rendering
// the markdown body.
func (s *ArticleService) Read(id uint, visitorID string) (*ArticleDetail, error) {
	article, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return s.detail(article, visitorID)
}

// ReadBySlug is Read keyed by slug.
func (s *ArticleService) ReadBySlug(articleSlug, visitorID string) (*ArticleDetail, error) {
	article, err := s.GetBySlug(articleSlug)
	if err != nil {
		return nil, err
	}
	return s.detail(article, visitorID)
}

func (s *ArticleService) detail(article *db.Article, visitorID string) (*ArticleDetail, error) {
	if s.views != nil && visitorID != "" {
		counted, err := s.views.RecordView(article.ID, visitorID, s.now())
		if err != nil {
			return nil, err
		}
		if counted {
			article.ViewCount++
		}
	}

	rendered, err := RenderMarkdown(article.Content)
	if err != nil {
		return nil, err
	}
	return &ArticleDetail{Article: *article, ContentHTML: rendered}, nil
}

// List provides paginated articles matching the filter, newest first.
func (s *ArticleService) List(filter ArticleFilter) (*Page[db.Article], error) {
	return s.list(filter, "created_at desc")
}

// ListPublished lists published articles ordered by publication time.
func (s *ArticleService) ListPublished(filter ArticleFilter) (*Page[db.Article], error) {
	filter.Status = db.ArticlePublished
	return s.list(filter, "published_at desc")
}

// ListByAuthor lists every article written by authorID.
func (s *ArticleService) ListByAuthor(authorID uint, filter ArticleFilter) (*Page[db.Article], error) {
	filter.AuthorID = authorID
	return s.list(filter, "created_at desc")
}

func (s *ArticleService) list(filter ArticleFilter, order string) (*Page[db.Article], error) {
	p := filter.Pagination.Normalize()

	var total int64
	if err := s.applyFilters(s.db.Model(&db.Article{}), filter).Count(&total).Error; err != nil {
		return nil, err
	}

	var articles []db.Article
	dataQuery := s.applyFilters(s.preloaded(s.db.Model(&db.Article{})), filter)
	if err := dataQuery.
		Order(order).Order("id desc").
		Limit(p.Limit).Offset(p.Offset()).
		Find(&articles).Error; err != nil {
		return nil, err
	}
	return newPage(articles, total, p), nil
}

func (s *ArticleService) applyFilters(query *gorm.DB, filter ArticleFilter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		cond, args := likeAny(containsPattern(search), "title", "content", "excerpt")
		query = query.Where(cond, args...)
	}
	if filter.CategoryID != 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.TagID != 0 {
		query = query.Where("id IN (?)", s.db.Table("article_tags").Select("article_id").Where("tag_id = ?", filter.TagID))
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.AuthorID != 0 {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	return query
}

// Update applies changes to an article. Title or content changes append a version.
func (s *ArticleService) Update(id uint, input ArticleUpdateInput, actor Actor) (*db.Article, error) {
	existing, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !actor.canModify(existing.AuthorID) {
		return nil, ErrForbidden
	}

	article := *existing
	article.Tags = nil
	article.Author = nil
	article.Category = nil
	wasPublished := existing.Status == db.ArticlePublished

	if input.Title != nil {
		article.Title = strings.TrimSpace(*input.Title)
	}
	if input.Content != nil {
		article.Content = *input.Content
	}
	if err := validateArticle(article.Title, article.Content); err != nil {
		return nil, err
	}
	titleChanged := article.Title != existing.Title
	contentChanged := article.Content != existing.Content

	if input.Excerpt != nil {
		article.Excerpt = strings.TrimSpace(*input.Excerpt)
	} else if contentChanged && existing.Excerpt == buildExcerpt(existing.Content) {
		article.Excerpt = buildExcerpt(article.Content)
	}
	if input.ImageURL != nil {
		article.ImageURL = strings.TrimSpace(*input.ImageURL)
	} else if contentChanged && existing.ImageURL == firstImageURL(existing.Content) {
		article.ImageURL = firstImageURL(article.Content)
	}
	if input.ThumbnailURL != nil {
		article.ThumbnailURL = strings.TrimSpace(*input.ThumbnailURL)
	}
	if contentChanged {
		article.ReadingTime = calculateReadingTime(article.Content)
	}
	if input.Status != nil {
		status := strings.TrimSpace(*input.Status)
		if !db.ValidArticleStatus(status) {
			return nil, invalid("status", "must be one of draft, review, published, archived")
		}
		article.Status = status
	}
	if article.Status == db.ArticlePublished && article.PublishedAt == nil {
		now := s.now()
		article.PublishedAt = &now
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if input.CategoryID != nil && *input.CategoryID != existing.CategoryID {
			if err := ensureCategory(tx, *input.CategoryID); err != nil {
				return err
			}
			article.CategoryID = *input.CategoryID
		}

		if titleChanged {
			articleSlug, err := uniqueArticleSlug(tx, article.Title, article.ID)
			if err != nil {
				return err
			}
			article.Slug = articleSlug
		}

		if err := tx.Omit(clause.Associations).Save(&article).Error; err != nil {
			return err
		}

		if input.Tags != nil {
			tags, err := resolveTags(tx, *input.Tags)
			if err != nil {
				return err
			}
			if err := tx.Model(&article).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}

		if !titleChanged && !contentChanged {
			return nil
		}
		summary := strings.TrimSpace(input.ChangeSummary)
		if summary == "" {
			summary = "Updated article"
		}
		return appendVersion(tx, &article, summary, actor.ID)
	})
	if err != nil {
		return nil, err
	}

	switch {
	case !wasPublished && article.Status == db.ArticlePublished:
		s.publish(events.ArticlePublished, &article, actor)
	case wasPublished && article.Status != db.ArticlePublished:
		s.publish(events.ArticleUnpublished, &article, actor)
	}
	return s.Get(id)
}

// Publish marks an article as published, stamping published_at on first publication.
func (s *ArticleService) Publish(id uint, actor Actor) (*db.Article, error) {
	return s.setPublished(id, actor, true)
}

// Unpublish moves an article back to draft.
func (s *ArticleService) Unpublish(id uint, actor Actor) (*db.Article, error) {
	return s.setPublished(id, actor, false)
}

func (s *ArticleService) setPublished(id uint, actor Actor, publish bool) (*db.Article, error) {
	article, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !actor.canModify(article.AuthorID) {
		return nil, ErrForbidden
	}

	updates := map[string]interface{}{"status": db.ArticleDraft}
	eventType := events.ArticleUnpublished
	if publish {
		updates["status"] = db.ArticlePublished
		if article.PublishedAt == nil {
			updates["published_at"] = s.now()
		}
		eventType = events.ArticlePublished
	}

	if err := s.db.Model(&db.Article{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	s.publish(eventType, article, actor)
	return s.Get(id)
}

// Delete removes an article with its versions, comments and tag links. Attachments
// are detached and kept.
func (s *ArticleService) Delete(id uint, actor Actor) error {
	article, err := s.Get(id)
	if err != nil {
		return err
	}
	if !actor.canModify(article.AuthorID) {
		return ErrForbidden
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&db.Attachment{}).Where("article_id = ?", id).Update("article_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", id).Delete(&db.Version{}).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", id).Delete(&db.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", id).Delete(&db.ArticleView{}).Error; err != nil {
			return err
		}
		if err := tx.Model(article).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&db.Article{}, id).Error
	})
	if err != nil {
		return err
	}

	if s.views != nil {
		s.views.Forget(id)
	}
	s.publish(events.ArticleDeleted, article, actor)
	return nil
}

// Versions lists the versions of an article, newest first.
func (s *ArticleService) Versions(articleID uint) ([]db.Version, error) {
	if _, err := s.Get(articleID); err != nil {
		return nil, err
	}

	var versions []db.Version
	if err := s.db.Preload("Author").
		Where("article_id = ?", articleID).
		Order("version_number desc").
		Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

// Version fetches one version of an article.
func (s *ArticleService) Version(articleID uint, number int) (*db.Version, error) {
	var version db.Version
	if err := s.db.Preload("Author").
		Where("article_id = ? AND version_number = ?", articleID, number).
		First(&version).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	return &version, nil
}

// RestoreVersion copies an old version back onto the article as a new version.
func (s *ArticleService) RestoreVersion(articleID uint, number int, actor Actor) (*db.Article, error) {
	version, err := s.Version(articleID, number)
	if err != nil {
		return nil, err
	}

	title, content := version.Title, version.Content
	return s.Update(articleID, ArticleUpdateInput{
		Title:         &title,
		Content:       &content,
		ChangeSummary: "Restored from version " + strconv.Itoa(number),
	}, actor)
}

// Popular returns the most viewed published articles.
func (s *ArticleService) Popular(limit int) ([]db.Article, error) {
	if s.views == nil {
		return NewViewService(s.db, nil, nil).Popular(limit)
	}
	return s.views.Popular(limit)
}

func (s *ArticleService) preloaded(query *gorm.DB) *gorm.DB {
	return query.Preload("Author").Preload("Category").Preload("Tags")
}

func (s *ArticleService) publish(eventType string, article *db.Article, actor Actor) {
	_ = s.events.Publish(context.Background(), events.Event{
		Type:       eventType,
		ResourceID: article.ID,
		ActorID:    actor.ID,
		Slug:       article.Slug,
	})
}

func appendVersion(tx *gorm.DB, article *db.Article, summary string, authorID uint) error {
	var last int
	if err := tx.Model(&db.Version{}).
		Where("article_id = ?", article.ID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&last).Error; err != nil {
		return err
	}

	return tx.Create(&db.Version{
		ArticleID:     article.ID,
		VersionNumber: last + 1,
		Title:         article.Title,
		Content:       article.Content,
		ChangeSummary: summary,
		AuthorID:      authorID,
	}).Error
}

func validateArticle(title, content string) error {
	if n := len([]rune(title)); n < 3 || n > 255 {
		return invalid("title", "must be between 3 and 255 characters")
	}
	if len([]rune(strings.TrimSpace(content))) < 10 {
		return invalid("content", "must be at least 10 characters")
	}
	return nil
}

func ensureCategory(tx *gorm.DB, id uint) error {
	if id == 0 {
		return invalid("categoryId", "is required")
	}
	var count int64
	if err := tx.Model(&db.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// uniqueArticleSlug 软删除的文章同样占用 slug。
func uniqueArticleSlug(tx *gorm.DB, title string, exceptID uint) (string, error) {
	return slug.Unique(slug.Generate(title), func(candidate string) (bool, error) {
		var count int64
		query := tx.Unscoped().Model(&db.Article{}).Where("slug = ?", candidate)
		if exceptID != 0 {
			query = query.Where("id <> ?", exceptID)
		}
		if err := query.Count(&count).Error; err != nil {
			return false, err
		}
		return count > 0, nil
	})
}

// resolveTags finds tags by slug and creates the missing ones. Names that reduce to
// the same slug collapse into one tag.
func resolveTags(tx *gorm.DB, names []string) ([]db.Tag, error) {
	tags := make([]db.Tag, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		tagSlug := slug.Generate(name)
		if _, ok := seen[tagSlug]; ok {
			continue
		}
		seen[tagSlug] = struct{}{}

		var tag db.Tag
		err := tx.Unscoped().Where("slug = ?", tagSlug).First(&tag).Error
		switch {
		case err == nil:
			if tag.DeletedAt.Valid {
				if err := tx.Unscoped().Model(&tag).Update("deleted_at", nil).Error; err != nil {
					return nil, err
				}
				tag.DeletedAt = gorm.DeletedAt{}
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			tag = db.Tag{Name: name, Slug: tagSlug}
			if err := tx.Create(&tag).Error; err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

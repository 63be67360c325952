package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/knowshare/internal/db"
	"github.com/knowshare/internal/events"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KnowledgeService manages knowledge documents and their revision history.
type KnowledgeService struct {
	db     *gorm.DB
	events events.Publisher
	now    func() time.Time
}

// KnowledgeInput represents fields accepted when creating a document.
type KnowledgeInput struct {
	Title       string
	Content     string
	Summary     string
	Category    string
	Tags        []string
	Status      string
	Visibility  string
	AccessLevel string
}

// KnowledgeUpdateInput carries optional changes; nil fields are left untouched.
type KnowledgeUpdateInput struct {
	Title       *string
	Content     *string
	Summary     *string
	Category    *string
	Tags        *[]string
	Status      *string
	Visibility  *string
	AccessLevel *string
	Changes     string
}

// KnowledgeFilter describes filters for listing documents.
type KnowledgeFilter struct {
	Category string
	Status   string
	Tag      string
	AuthorID uint
	Search   string
	Pagination
}

// ToggleResult reports the state after a like or bookmark toggle.
type ToggleResult struct {
	Active bool  `json:"active"`
	Count  int64 `json:"count"`
}

// NewKnowledgeService creates a KnowledgeService. publisher may be nil.
func NewKnowledgeService(gdb *gorm.DB, publisher events.Publisher) *KnowledgeService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &KnowledgeService{db: gdb, events: publisher, now: time.Now}
}

// Create stores a new document at version 1.
func (s *KnowledgeService) Create(input KnowledgeInput, author Actor) (*db.Knowledge, error) {
	doc := db.Knowledge{
		Title:       strings.TrimSpace(input.Title),
		Content:     input.Content,
		Summary:     strings.TrimSpace(input.Summary),
		AuthorID:    author.ID,
		Category:    strings.TrimSpace(input.Category),
		Tags:        cleanTags(input.Tags),
		Status:      defaultString(strings.TrimSpace(input.Status), db.KnowledgeDraft),
		Visibility:  defaultString(strings.TrimSpace(input.Visibility), db.VisibilityInternal),
		AccessLevel: defaultString(strings.TrimSpace(input.AccessLevel), db.AccessAuthenticated),
		Version:     1,
	}
	if err := validateKnowledge(&doc); err != nil {
		return nil, err
	}
	s.stampStatus(&doc)

	if err := s.db.Create(&doc).Error; err != nil {
		return nil, err
	}

	s.publishTransition("", &doc, author)
	return s.Get(doc.ID)
}

// Get fetches a document with author, attachments and counters.
func (s *KnowledgeService) Get(id uint) (*db.Knowledge, error) {
	var doc db.Knowledge
	if err := s.db.Preload("Author").Preload("Attachments").First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKnowledgeNotFound
		}
		return nil, err
	}
	if err := s.fillCounts(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// List provides paginated documents matching the filter, newest first.
func (s *KnowledgeService) List(filter KnowledgeFilter) (*Page[db.Knowledge], error) {
	p := filter.Pagination.Normalize()

	filtered := func() *gorm.DB {
		query := s.db.Model(&db.Knowledge{})
		if category := strings.TrimSpace(filter.Category); category != "" {
			query = query.Where("category = ?", category)
		}
		if status := strings.TrimSpace(filter.Status); status != "" {
			query = query.Where("status = ?", status)
		}
		if tag := strings.TrimSpace(filter.Tag); tag != "" {
			// tags 以 JSON 数组形式存储，按编码后的元素匹配
			encoded, _ := json.Marshal(tag)
			cond, args := likeAny(containsPattern(string(encoded)), "tags")
			query = query.Where(cond, args...)
		}
		if filter.AuthorID != 0 {
			query = query.Where("author_id = ?", filter.AuthorID)
		}
		if search := strings.TrimSpace(filter.Search); search != "" {
			cond, args := likeAny(containsPattern(search), "title", "content", "summary")
			query = query.Where(cond, args...)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, err
	}

	var docs []db.Knowledge
	if err := filtered().Preload("Author").
		Order("created_at desc").Order("id desc").
		Limit(p.Limit).Offset(p.Offset()).
		Find(&docs).Error; err != nil {
		return nil, err
	}
	for i := range docs {
		if err := s.fillCounts(&docs[i]); err != nil {
			return nil, err
		}
	}
	return newPage(docs, total, p), nil
}

// Update applies changes. A content change bumps the version and appends a revision
// holding the saved content.
func (s *KnowledgeService) Update(id uint, input KnowledgeUpdateInput, actor Actor) (*db.Knowledge, error) {
	var doc db.Knowledge
	if err := s.db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKnowledgeNotFound
		}
		return nil, err
	}
	if !canEditKnowledge(actor, doc.AuthorID) {
		return nil, ErrForbidden
	}

	previousStatus := doc.Status
	previousContent := doc.Content

	if input.Title != nil {
		doc.Title = strings.TrimSpace(*input.Title)
	}
	if input.Content != nil {
		doc.Content = *input.Content
	}
	if input.Summary != nil {
		doc.Summary = strings.TrimSpace(*input.Summary)
	}
	if input.Category != nil {
		doc.Category = strings.TrimSpace(*input.Category)
	}
	if input.Tags != nil {
		doc.Tags = cleanTags(*input.Tags)
	}
	if input.Status != nil {
		doc.Status = strings.TrimSpace(*input.Status)
	}
	if input.Visibility != nil {
		doc.Visibility = strings.TrimSpace(*input.Visibility)
	}
	if input.AccessLevel != nil {
		doc.AccessLevel = strings.TrimSpace(*input.AccessLevel)
	}
	if err := validateKnowledge(&doc); err != nil {
		return nil, err
	}

	editor := actor.ID
	doc.LastEditedByID = &editor
	s.stampStatus(&doc)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if doc.Content != previousContent {
			doc.Version++
			revision := db.KnowledgeRevision{
				KnowledgeID: doc.ID,
				Version:     doc.Version - 1,
				Content:     doc.Content,
				EditedByID:  doc.LastEditedByID,
				EditedAt:    s.now(),
				Changes:     strings.TrimSpace(input.Changes),
			}
			if err := tx.Create(&revision).Error; err != nil {
				return err
			}
		}
		return tx.Omit(clause.Associations).Save(&doc).Error
	})
	if err != nil {
		return nil, err
	}

	s.publishTransition(previousStatus, &doc, actor)
	return s.Get(id)
}

// Delete soft deletes a document and hard deletes its likes and bookmarks.
func (s *KnowledgeService) Delete(id uint, actor Actor) error {
	var doc db.Knowledge
	if err := s.db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrKnowledgeNotFound
		}
		return err
	}
	if !actor.canModify(doc.AuthorID) {
		return ErrForbidden
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("knowledge_id = ?", id).Delete(&db.KnowledgeLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("knowledge_id = ?", id).Delete(&db.KnowledgeBookmark{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&db.Attachment{}).Where("knowledge_id = ?", id).Update("knowledge_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&db.Knowledge{}, id).Error
	})
}

// History returns the revisions of a document, newest first.
func (s *KnowledgeService) History(id uint) ([]db.KnowledgeRevision, error) {
	if err := s.ensureExists(id); err != nil {
		return nil, err
	}

	var revisions []db.KnowledgeRevision
	if err := s.db.Where("knowledge_id = ?", id).
		Order("version desc").Order("id desc").
		Find(&revisions).Error; err != nil {
		return nil, err
	}
	return revisions, nil
}

// IncrementViews bumps the view counter and returns the new value.
func (s *KnowledgeService) IncrementViews(id uint) (int64, error) {
	result := s.db.Model(&db.Knowledge{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, ErrKnowledgeNotFound
	}

	var views int64
	if err := s.db.Model(&db.Knowledge{}).Where("id = ?", id).Pluck("views", &views).Error; err != nil {
		return 0, err
	}
	return views, nil
}

// ToggleLike likes the document for userID, or removes an existing like.
func (s *KnowledgeService) ToggleLike(id, userID uint) (*ToggleResult, error) {
	return s.toggle(id, userID, &db.KnowledgeLike{}, func() interface{} {
		return &db.KnowledgeLike{KnowledgeID: id, UserID: userID}
	})
}

// ToggleBookmark bookmarks the document for userID, or removes an existing bookmark.
func (s *KnowledgeService) ToggleBookmark(id, userID uint) (*ToggleResult, error) {
	return s.toggle(id, userID, &db.KnowledgeBookmark{}, func() interface{} {
		return &db.KnowledgeBookmark{KnowledgeID: id, UserID: userID}
	})
}

func (s *KnowledgeService) toggle(id, userID uint, model interface{}, newRow func() interface{}) (*ToggleResult, error) {
	if err := s.ensureExists(id); err != nil {
		return nil, err
	}

	result := &ToggleResult{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		removed := tx.Where("knowledge_id = ? AND user_id = ?", id, userID).Delete(model)
		if removed.Error != nil {
			return removed.Error
		}
		if removed.RowsAffected == 0 {
			if err := tx.Create(newRow()).Error; err != nil {
				return err
			}
			result.Active = true
		}
		return tx.Model(model).Where("knowledge_id = ?", id).Count(&result.Count).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *KnowledgeService) fillCounts(doc *db.Knowledge) error {
	if err := s.db.Model(&db.KnowledgeLike{}).Where("knowledge_id = ?", doc.ID).Count(&doc.LikeCount).Error; err != nil {
		return err
	}
	return s.db.Model(&db.KnowledgeBookmark{}).Where("knowledge_id = ?", doc.ID).Count(&doc.BookmarkCount).Error
}

func (s *KnowledgeService) ensureExists(id uint) error {
	var count int64
	if err := s.db.Model(&db.Knowledge{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrKnowledgeNotFound
	}
	return nil
}

// stampStatus 首次发布或归档时记录时间，已有时间不覆盖。
func (s *KnowledgeService) stampStatus(doc *db.Knowledge) {
	now := s.now()
	if doc.Status == db.KnowledgePublished && doc.PublishedAt == nil {
		doc.PublishedAt = &now
	}
	if doc.Status == db.KnowledgeArchived && doc.ArchivedAt == nil {
		doc.ArchivedAt = &now
	}
}

func (s *KnowledgeService) publishTransition(previous string, doc *db.Knowledge, actor Actor) {
	if previous == doc.Status {
		return
	}
	var eventType string
	switch doc.Status {
	case db.KnowledgePublished:
		eventType = events.KnowledgePublished
	case db.KnowledgeArchived:
		eventType = events.KnowledgeArchived
	default:
		return
	}
	_ = s.events.Publish(context.Background(), events.Event{
		Type:       eventType,
		ResourceID: doc.ID,
		ActorID:    actor.ID,
	})
}

func canEditKnowledge(actor Actor, authorID uint) bool {
	return actor.canModify(authorID) || db.RoleRank(actor.Role) >= db.RoleRank(db.RoleEditor)
}

func validateKnowledge(doc *db.Knowledge) error {
	if doc.Title == "" {
		return invalid("title", "is required")
	}
	if len([]rune(doc.Title)) > 200 {
		return invalid("title", "must be at most 200 characters")
	}
	if strings.TrimSpace(doc.Content) == "" {
		return invalid("content", "is required")
	}
	if len([]rune(doc.Summary)) > 500 {
		return invalid("summary", "must be at most 500 characters")
	}
	if doc.Category == "" {
		return invalid("category", "is required")
	}
	if len([]rune(doc.Category)) > 100 {
		return invalid("category", "must be at most 100 characters")
	}
	switch doc.Status {
	case db.KnowledgeDraft, db.KnowledgePublished, db.KnowledgeArchived, db.KnowledgeUnderReview:
	default:
		return invalid("status", "must be one of draft, published, archived, under_review")
	}
	switch doc.Visibility {
	case db.VisibilityPublic, db.VisibilityInternal, db.VisibilityRestricted:
	default:
		return invalid("visibility", "must be one of public, internal, restricted")
	}
	switch doc.AccessLevel {
	case db.AccessAll, db.AccessAuthenticated, db.AccessContributors, db.AccessEditors, db.AccessAdmins:
	default:
		return invalid("accessLevel", "must be one of all, authenticated, contributors, editors, admins")
	}
	return nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if t := strings.TrimSpace(tag); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

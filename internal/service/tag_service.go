package service

import (
	"errors"
	"strings"

	"github.com/knowshare/internal/db"
	"github.com/knowshare/internal/slug"
	"gorm.io/gorm"
)

const tagUsageSelect = "tags.*, (SELECT COUNT(*) FROM article_tags WHERE article_tags.tag_id = tags.id) AS usage_count"

// TagService wraps tag related operations.
type TagService struct {
	db *gorm.DB
}

// TagInput represents fields accepted when creating or updating a tag.
type TagInput struct {
	Name  string
	Color string
}

// TagFilter describes filters for listing tags.
type TagFilter struct {
	Search string
	Pagination
}

// NewTagService creates a TagService instance.
func NewTagService(gdb *gorm.DB) *TagService {
	return &TagService{db: gdb}
}

// List returns tags with usage counts ordered by name.
func (s *TagService) List(filter TagFilter) (*Page[db.Tag], error) {
	p := filter.Pagination.Normalize()

	filtered := func() *gorm.DB {
		query := s.db.Model(&db.Tag{})
		if search := strings.TrimSpace(filter.Search); search != "" {
			cond, args := likeAny(containsPattern(search), "tags.name")
			query = query.Where(cond, args...)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, err
	}

	var tags []db.Tag
	if err := filtered().
		Select(tagUsageSelect).
		Order("tags.name asc").
		Order("tags.id asc").
		Limit(p.Limit).Offset(p.Offset()).
		Find(&tags).Error; err != nil {
		return nil, err
	}
	return newPage(tags, total, p), nil
}

// Popular returns the most used tags.
func (s *TagService) Popular(limit int) ([]db.Tag, error) {
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}

	var tags []db.Tag
	if err := s.db.Model(&db.Tag{}).
		Select(tagUsageSelect).
		Order("usage_count desc").
		Order("tags.name asc").
		Limit(limit).
		Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// Get fetches a tag with its usage count.
func (s *TagService) Get(id uint) (*db.Tag, error) {
	var tag db.Tag
	if err := s.db.Model(&db.Tag{}).Select(tagUsageSelect).Where("tags.id = ?", id).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	return &tag, nil
}

// Create inserts a new tag with a unique slug.
func (s *TagService) Create(input TagInput) (*db.Tag, error) {
	name, err := validTagName(input.Name)
	if err != nil {
		return nil, err
	}

	tagSlug := slug.Generate(name)
	taken, err := s.slugTaken(tagSlug, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrTagExists
	}

	tag := db.Tag{Name: name, Slug: tagSlug, Color: strings.TrimSpace(input.Color)}
	if err := s.db.Create(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// Update changes the tag name and color while keeping the slug unique.
func (s *TagService) Update(id uint, input TagInput) (*db.Tag, error) {
	name, err := validTagName(input.Name)
	if err != nil {
		return nil, err
	}

	var tag db.Tag
	if err := s.db.First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}

	tagSlug := slug.Generate(name)
	taken, err := s.slugTaken(tagSlug, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrTagExists
	}

	if err := s.db.Model(&tag).Updates(map[string]interface{}{
		"name":  name,
		"slug":  tagSlug,
		"color": strings.TrimSpace(input.Color),
	}).Error; err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Delete removes a tag if it is not associated with articles.
func (s *TagService) Delete(id uint) error {
	tag, err := s.Get(id)
	if err != nil {
		return err
	}
	if tag.UsageCount > 0 {
		return ErrTagInUse
	}

	return s.db.Unscoped().Delete(&db.Tag{}, id).Error
}

func (s *TagService) slugTaken(tagSlug string, exceptID uint) (bool, error) {
	var count int64
	query := s.db.Unscoped().Model(&db.Tag{}).Where("slug = ?", tagSlug)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func validTagName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", invalid("name", "is required")
	}
	if len([]rune(name)) > 50 {
		return "", invalid("name", "must be at most 50 characters")
	}
	return name, nil
}

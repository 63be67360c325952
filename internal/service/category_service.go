package service

import (
	"errors"
	"strings"

	"github.com/knowshare/internal/db"
	"github.com/knowshare/internal/slug"
	"gorm.io/gorm"
)

const categoryCountSelect = "categories.*, (SELECT COUNT(*) FROM articles WHERE articles.category_id = categories.id AND articles.deleted_at IS NULL) AS article_count"

// CategoryService wraps category related operations.
type CategoryService struct {
	db *gorm.DB
}

// CategoryInput represents fields accepted when creating or updating a category.
// Nil pointers keep the current value on update.
type CategoryInput struct {
	Name        string
	Description *string
	Icon        *string
	Color       *string
	IsActive    *bool
	SortOrder   *int
	ParentID    *uint
	ClearParent bool
}

// CategoryFilter describes filters for listing categories.
type CategoryFilter struct {
	Search string
	Active *bool
	Pagination
}

// NewCategoryService creates a CategoryService instance.
func NewCategoryService(gdb *gorm.DB) *CategoryService {
	return &CategoryService{db: gdb}
}

// List returns categories ordered by sort order then name.
func (s *CategoryService) List(filter CategoryFilter) (*Page[db.Category], error) {
	p := filter.Pagination.Normalize()

	filtered := func() *gorm.DB {
		query := s.db.Model(&db.Category{})
		if search := strings.TrimSpace(filter.Search); search != "" {
			cond, args := likeAny(containsPattern(search), "categories.name", "categories.description")
			query = query.Where(cond, args...)
		}
		if filter.Active != nil {
			query = query.Where("categories.is_active = ?", *filter.Active)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, err
	}

	var categories []db.Category
	if err := filtered().
		Select(categoryCountSelect).
		Order("categories.sort_order asc").
		Order("categories.name asc").
		Limit(p.Limit).Offset(p.Offset()).
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return newPage(categories, total, p), nil
}

// Tree returns the active categories nested under their parents.
func (s *CategoryService) Tree() ([]db.Category, error) {
	var all []db.Category
	if err := s.db.Model(&db.Category{}).
		Select(categoryCountSelect).
		Where("categories.is_active = ?", true).
		Order("categories.sort_order asc").
		Order("categories.name asc").
		Find(&all).Error; err != nil {
		return nil, err
	}

	childrenOf := make(map[uint][]db.Category)
	known := make(map[uint]struct{}, len(all))
	for _, c := range all {
		known[c.ID] = struct{}{}
	}
	var roots []db.Category
	for _, c := range all {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		if _, ok := known[*c.ParentID]; !ok {
			// 父分类被停用时，子分类提升为顶级节点
			roots = append(roots, c)
			continue
		}
		childrenOf[*c.ParentID] = append(childrenOf[*c.ParentID], c)
	}

	var attach func(nodes []db.Category) []db.Category
	attach = func(nodes []db.Category) []db.Category {
		for i := range nodes {
			if kids, ok := childrenOf[nodes[i].ID]; ok {
				nodes[i].Children = attach(kids)
			}
		}
		return nodes
	}

	if roots == nil {
		return []db.Category{}, nil
	}
	return attach(roots), nil
}

// Get fetches a category with its direct children and article count.
func (s *CategoryService) Get(id uint) (*db.Category, error) {
	return s.first(s.db.Where("categories.id = ?", id))
}

// GetBySlug fetches a category by slug.
func (s *CategoryService) GetBySlug(categorySlug string) (*db.Category, error) {
	return s.first(s.db.Where("categories.slug = ?", strings.TrimSpace(categorySlug)))
}

func (s *CategoryService) first(query *gorm.DB) (*db.Category, error) {
	var category db.Category
	if err := query.Model(&db.Category{}).
		Select(categoryCountSelect).
		Preload("Children", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("sort_order asc").Order("name asc")
		}).
		First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

// Create inserts a category with a unique slug.
func (s *CategoryService) Create(input CategoryInput) (*db.Category, error) {
	name, err := validCategoryName(input.Name)
	if err != nil {
		return nil, err
	}

	category := db.Category{
		Name:     name,
		IsActive: true,
	}
	applyCategoryInput(&category, input)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if input.ParentID != nil && !input.ClearParent {
			if err := ensureParentCategory(tx, *input.ParentID); err != nil {
				return err
			}
			category.ParentID = input.ParentID
		}

		categorySlug, err := uniqueCategorySlug(tx, name, 0)
		if err != nil {
			return err
		}
		category.Slug = categorySlug
		return tx.Create(&category).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(category.ID)
}

// Update changes a category. A new parent must exist and must not be a descendant.
func (s *CategoryService) Update(id uint, input CategoryInput) (*db.Category, error) {
	var category db.Category
	if err := s.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if strings.TrimSpace(input.Name) != "" {
			name, err := validCategoryName(input.Name)
			if err != nil {
				return err
			}
			if name != category.Name {
				categorySlug, err := uniqueCategorySlug(tx, name, category.ID)
				if err != nil {
					return err
				}
				category.Name = name
				category.Slug = categorySlug
			}
		}
		applyCategoryInput(&category, input)

		switch {
		case input.ClearParent:
			category.ParentID = nil
		case input.ParentID != nil:
			if err := ensureParentCategory(tx, *input.ParentID); err != nil {
				return err
			}
			if err := checkCategoryCycle(tx, category.ID, *input.ParentID); err != nil {
				return err
			}
			category.ParentID = input.ParentID
		}

		return tx.Model(&category).Select("name", "slug", "description", "icon", "color", "is_active", "sort_order", "parent_id").Updates(&category).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Delete soft deletes a category that has neither articles nor children.
func (s *CategoryService) Delete(id uint) error {
	category, err := s.Get(id)
	if err != nil {
		return err
	}
	if category.ArticleCount > 0 || len(category.Children) > 0 {
		return ErrCategoryInUse
	}
	return s.db.Delete(&db.Category{}, id).Error
}

// Reorder updates category sort order based on the provided ids sequence.
func (s *CategoryService) Reorder(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			return ErrCategoryOrder
		}
		if _, ok := seen[id]; ok {
			return ErrCategoryOrder
		}
		seen[id] = struct{}{}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for idx, id := range ids {
			result := tx.Model(&db.Category{}).Where("id = ?", id).Update("sort_order", idx)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrCategoryNotFound
			}
		}
		return nil
	})
}

func applyCategoryInput(category *db.Category, input CategoryInput) {
	if input.Description != nil {
		category.Description = strings.TrimSpace(*input.Description)
	}
	if input.Icon != nil {
		category.Icon = strings.TrimSpace(*input.Icon)
	}
	if input.Color != nil {
		category.Color = strings.TrimSpace(*input.Color)
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	if input.SortOrder != nil {
		category.SortOrder = *input.SortOrder
	}
}

func ensureParentCategory(tx *gorm.DB, parentID uint) error {
	var count int64
	if err := tx.Model(&db.Category{}).Where("id = ?", parentID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// checkCategoryCycle 沿着 parentID 向上查找，遇到自身即说明形成了环。
func checkCategoryCycle(tx *gorm.DB, id, parentID uint) error {
	visited := make(map[uint]struct{})
	current := &parentID
	for current != nil {
		if *current == id {
			return ErrCategoryCycle
		}
		if _, ok := visited[*current]; ok {
			return ErrCategoryCycle
		}
		visited[*current] = struct{}{}

		var parent db.Category
		if err := tx.Select("id", "parent_id").First(&parent, *current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		current = parent.ParentID
	}
	return nil
}

func uniqueCategorySlug(tx *gorm.DB, name string, exceptID uint) (string, error) {
	return slug.Unique(slug.Generate(name), func(candidate string) (bool, error) {
		var count int64
		query := tx.Unscoped().Model(&db.Category{}).Where("slug = ?", candidate)
		if exceptID != 0 {
			query = query.Where("id <> ?", exceptID)
		}
		if err := query.Count(&count).Error; err != nil {
			return false, err
		}
		return count > 0, nil
	})
}

func validCategoryName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if n := len([]rune(name)); n < 2 || n > 100 {
		return "", invalid("name", "must be between 2 and 100 characters")
	}
	return name, nil
}

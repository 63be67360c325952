package service

import (
	"errors"

	"github.com/knowshare/internal/db"
	"gorm.io/gorm"
)

// CommentService wraps comment related operations.
type CommentService struct {
	db *gorm.DB
}

// NewCommentService creates a CommentService instance.
func NewCommentService(gdb *gorm.DB) *CommentService {
	return &CommentService{db: gdb}
}

// ListByArticle returns the comments of an article as a tree, oldest first.
func (s *CommentService) ListByArticle(articleID uint) ([]db.Comment, error) {
	if err := s.ensureArticle(articleID); err != nil {
		return nil, err
	}

	var all []db.Comment
	if err := s.db.Preload("Author").
		Where("article_id = ?", articleID).
		Order("created_at asc").Order("id asc").
		Find(&all).Error; err != nil {
		return nil, err
	}

	repliesOf := make(map[uint][]db.Comment)
	var roots []db.Comment
	for _, c := range all {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		repliesOf[*c.ParentID] = append(repliesOf[*c.ParentID], c)
	}

	var attach func(nodes []db.Comment) []db.Comment
	attach = func(nodes []db.Comment) []db.Comment {
		for i := range nodes {
			if replies, ok := repliesOf[nodes[i].ID]; ok {
				nodes[i].Replies = attach(replies)
			}
		}
		return nodes
	}

	if roots == nil {
		return []db.Comment{}, nil
	}
	return attach(roots), nil
}

// Create adds a comment. A parent comment must belong to the same article.
func (s *CommentService) Create(articleID uint, content string, parentID *uint, author Actor) (*db.Comment, error) {
	text := SanitizeText(content)
	if text == "" {
		return nil, invalid("content", "is required")
	}
	if err := s.ensureArticle(articleID); err != nil {
		return nil, err
	}

	if parentID != nil {
		parent, err := s.Get(*parentID)
		if err != nil {
			return nil, err
		}
		if parent.ArticleID != articleID {
			return nil, ErrCommentParent
		}
	}

	comment := db.Comment{
		Content:   text,
		ArticleID: articleID,
		AuthorID:  author.ID,
		ParentID:  parentID,
	}
	if err := s.db.Create(&comment).Error; err != nil {
		return nil, err
	}
	return s.Get(comment.ID)
}

// Get fetches a comment with its author.
func (s *CommentService) Get(id uint) (*db.Comment, error) {
	var comment db.Comment
	if err := s.db.Preload("Author").First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return &comment, nil
}

// Update rewrites a comment. Only its author may edit it.
func (s *CommentService) Update(id uint, content string, actor Actor) (*db.Comment, error) {
	comment, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actor.ID {
		return nil, ErrForbidden
	}

	text := SanitizeText(content)
	if text == "" {
		return nil, invalid("content", "is required")
	}

	if err := s.db.Model(&db.Comment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"content":   text,
		"is_edited": true,
	}).Error; err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Delete removes a comment together with every reply below it.
func (s *CommentService) Delete(id uint, actor Actor) error {
	comment, err := s.Get(id)
	if err != nil {
		return err
	}
	if !actor.canModify(comment.AuthorID) {
		return ErrForbidden
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		ids := []uint{id}
		frontier := []uint{id}
		for len(frontier) > 0 {
			var children []uint
			if err := tx.Model(&db.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
				return err
			}
			ids = append(ids, children...)
			frontier = children
		}
		return tx.Where("id IN ?", ids).Delete(&db.Comment{}).Error
	})
}

func (s *CommentService) ensureArticle(articleID uint) error {
	var count int64
	if err := s.db.Model(&db.Article{}).Where("id = ?", articleID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrArticleNotFound
	}
	return nil
}

package db

import "time"

// Article statuses.
const (
	ArticleDraft     = "draft"
	ArticleReview    = "review"
	ArticlePublished = "published"
	ArticleArchived  = "archived"
)

// Article 定义了文章模型
type Article struct {
	Model
	Title        string       `gorm:"size:255;not null" json:"title"`
	Slug         string       `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Content      string       `gorm:"type:text;not null" json:"content"`
	Excerpt      string       `gorm:"type:text" json:"excerpt"`
	Status       string       `gorm:"size:20;index;not null" json:"status"`
	ViewCount    int64        `gorm:"default:0" json:"viewCount"`
	ReadingTime  int          `json:"readingTime"`
	ImageURL     string       `json:"imageUrl,omitempty"`
	ThumbnailURL string       `json:"thumbnailUrl,omitempty"`
	PublishedAt  *time.Time   `gorm:"index" json:"publishedAt,omitempty"`
	AuthorID     uint         `gorm:"index;not null" json:"authorId"`
	Author       *User        `json:"author,omitempty"`
	CategoryID   uint         `gorm:"index;not null" json:"categoryId"`
	Category     *Category    `json:"category,omitempty"`
	Tags         []Tag        `gorm:"many2many:article_tags;" json:"tags"`
	Versions     []Version    `json:"versions,omitempty"`
	Comments     []Comment    `json:"comments,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty"`
}

// ValidArticleStatus reports whether status is a known article status.
func ValidArticleStatus(status string) bool {
	switch status {
	case ArticleDraft, ArticleReview, ArticlePublished, ArticleArchived:
		return true
	}
	return false
}

// ArticleView 记录访客层面的浏览历史，用于 view_count 去重。
type ArticleView struct {
	ID            uint   `gorm:"primaryKey"`
	ArticleID     uint   `gorm:"uniqueIndex:idx_article_view_visitor"`
	VisitorID     string `gorm:"size:64;uniqueIndex:idx_article_view_visitor"`
	LastViewedAt  time.Time
	LastCountedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName 指定自定义表名。
func (ArticleView) TableName() string {
	return "article_views"
}

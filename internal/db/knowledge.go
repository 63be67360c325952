package db

import "time"

// Knowledge statuses.
const (
	KnowledgeDraft       = "draft"
	KnowledgePublished   = "published"
	KnowledgeArchived    = "archived"
	KnowledgeUnderReview = "under_review"
)

// Knowledge visibilities.
const (
	VisibilityPublic     = "public"
	VisibilityInternal   = "internal"
	VisibilityRestricted = "restricted"
)

// Knowledge access levels.
const (
	AccessAll           = "all"
	AccessAuthenticated = "authenticated"
	AccessContributors  = "contributors"
	AccessEditors       = "editors"
	AccessAdmins        = "admins"
)

// Knowledge 是独立于文章之外的知识文档，正文每次变更都会留下一条修订记录。
type Knowledge struct {
	Model
	Title          string              `gorm:"size:200;not null" json:"title"`
	Content        string              `gorm:"type:text;not null" json:"content"`
	Summary        string              `gorm:"size:500" json:"summary,omitempty"`
	AuthorID       uint                `gorm:"not null;index:idx_knowledge_author_status" json:"authorId"`
	Author         *User               `json:"author,omitempty"`
	Category       string              `gorm:"size:100;not null;index:idx_knowledge_category_status" json:"category"`
	Tags           []string            `gorm:"serializer:json;type:text" json:"tags"`
	Status         string              `gorm:"size:20;not null;index:idx_knowledge_category_status;index:idx_knowledge_author_status" json:"status"`
	Visibility     string              `gorm:"size:20;not null" json:"visibility"`
	AccessLevel    string              `gorm:"size:20;not null" json:"accessLevel"`
	Version        int                 `gorm:"not null;default:1" json:"version"`
	Views          int64               `gorm:"default:0;index" json:"views"`
	LastEditedByID *uint               `json:"lastEditedBy,omitempty"`
	PublishedAt    *time.Time          `json:"publishedAt,omitempty"`
	ArchivedAt     *time.Time          `json:"archivedAt,omitempty"`
	History        []KnowledgeRevision `json:"history,omitempty"`
	Attachments    []Attachment        `json:"attachments,omitempty"`
	LikeCount      int64               `gorm:"-" json:"likeCount"`
	BookmarkCount  int64               `gorm:"-" json:"bookmarkCount"`
}

// TableName 避免 knowledge 被复数化成 knowledges。
func (Knowledge) TableName() string {
	return "knowledge"
}

// KnowledgeRevision 记录一次正文修改。
type KnowledgeRevision struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	KnowledgeID uint      `gorm:"index;not null" json:"knowledgeId"`
	Version     int       `gorm:"not null" json:"version"`
	Content     string    `gorm:"type:text" json:"content"`
	EditedByID  *uint     `json:"editedBy,omitempty"`
	EditedAt    time.Time `json:"editedAt"`
	Changes     string    `gorm:"size:500" json:"changes,omitempty"`
}

// KnowledgeLike 记录用户点赞，同一用户对同一文档只保留一条。
type KnowledgeLike struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	KnowledgeID uint      `gorm:"uniqueIndex:idx_knowledge_like_user" json:"knowledgeId"`
	UserID      uint      `gorm:"uniqueIndex:idx_knowledge_like_user" json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// KnowledgeBookmark 记录用户收藏。
type KnowledgeBookmark struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	KnowledgeID uint      `gorm:"uniqueIndex:idx_knowledge_bookmark_user" json:"knowledgeId"`
	UserID      uint      `gorm:"uniqueIndex:idx_knowledge_bookmark_user" json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
}

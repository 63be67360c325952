package db

// Comment 支持通过 ParentID 形成的嵌套回复。
type Comment struct {
	Model
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsEdited  bool      `json:"isEdited"`
	ArticleID uint      `gorm:"index;not null" json:"articleId"`
	AuthorID  uint      `gorm:"index;not null" json:"authorId"`
	Author    *User     `json:"author,omitempty"`
	ParentID  *uint     `gorm:"index" json:"parentId,omitempty"`
	Replies   []Comment `gorm:"foreignKey:ParentID" json:"replies,omitempty"`
}

package db

// Category 定义了分类模型，ParentID 为空表示顶级分类。
type Category struct {
	Model
	Name         string     `gorm:"size:100;not null" json:"name"`
	Slug         string     `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	Description  string     `gorm:"type:text" json:"description,omitempty"`
	Icon         string     `gorm:"size:50" json:"icon,omitempty"`
	Color        string     `gorm:"size:20" json:"color,omitempty"`
	IsActive     bool       `json:"isActive"`
	SortOrder    int        `gorm:"default:0" json:"sortOrder"`
	ParentID     *uint      `gorm:"index" json:"parentId,omitempty"`
	Children     []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	ArticleCount int64      `gorm:"->;-:migration" json:"articleCount"`
}

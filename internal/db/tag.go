package db

// Tag 定义了标签模型
type Tag struct {
	Model
	Name       string `gorm:"size:50;not null" json:"name"`
	Slug       string `gorm:"size:60;uniqueIndex;not null" json:"slug"`
	Color      string `gorm:"size:20" json:"color,omitempty"`
	UsageCount int64  `gorm:"->;-:migration" json:"usageCount"`
}

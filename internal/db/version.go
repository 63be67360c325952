package db

// Version 记录文章标题与正文的历史快照。
type Version struct {
	Model
	ArticleID     uint   `gorm:"not null;uniqueIndex:idx_article_version_number" json:"articleId"`
	VersionNumber int    `gorm:"not null;uniqueIndex:idx_article_version_number" json:"versionNumber"`
	Title         string `gorm:"size:255;not null" json:"title"`
	Content       string `gorm:"type:text;not null" json:"content"`
	ChangeSummary string `gorm:"size:500" json:"changeSummary,omitempty"`
	AuthorID      uint   `gorm:"index" json:"authorId"`
	Author        *User  `json:"author,omitempty"`
}

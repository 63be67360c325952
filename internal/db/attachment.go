package db

// Attachment 记录上传到磁盘的文件。
type Attachment struct {
	Model
	OriginalName  string `gorm:"size:255;not null" json:"originalName"`
	Filename      string `gorm:"size:255;uniqueIndex;not null" json:"filename"`
	Mimetype      string `gorm:"size:100" json:"mimetype"`
	Size          int64  `json:"size"`
	Path          string `gorm:"size:500;not null" json:"-"`
	DownloadCount int64  `gorm:"default:0" json:"downloadCount"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	ArticleID     *uint  `gorm:"index" json:"articleId,omitempty"`
	KnowledgeID   *uint  `gorm:"index" json:"knowledgeId,omitempty"`
	UploadedByID  *uint  `gorm:"index" json:"uploadedById,omitempty"`
	UploadedBy    *User  `json:"uploadedBy,omitempty"`
	URL           string `gorm:"-" json:"url"`
}

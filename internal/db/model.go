package db

import (
	"time"

	"gorm.io/gorm"
)

// Model 与 gorm.Model 字段一致，但带上 API 使用的 JSON 名称。
type Model struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultPath is used when no database path is configured.
const DefaultPath = "knowledge_sharing.db"

// Models 列出需要自动迁移的全部模型，测试也复用这份列表。
func Models() []any {
	return []any{
		&User{},
		&Category{},
		&Tag{},
		&Article{},
		&ArticleView{},
		&Version{},
		&Comment{},
		&Attachment{},
		&Knowledge{},
		&KnowledgeRevision{},
		&KnowledgeLike{},
		&KnowledgeBookmark{},
	}
}

// Open 打开 sqlite 数据库并执行自动迁移。
// databasePath 为空时将回退到默认值 knowledge_sharing.db。
func Open(databasePath string, gormLogger logger.Interface) (*gorm.DB, error) {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = DefaultPath
	}

	if !strings.HasPrefix(path, "file:") {
		if err := ensureParentDir(path); err != nil {
			return nil, err
		}
	}

	cfg := &gorm.Config{}
	if gormLogger != nil {
		cfg.Logger = gormLogger
	}

	gdb, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, err
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate 自动迁移模式，为核心模型创建表。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(Models()...)
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}

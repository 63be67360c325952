package db

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm/logger"
)

func TestOpenCreatesParentDirAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "ks.db")

	gdb, err := Open(path, logger.Default.LogMode(logger.Silent))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	for _, table := range []string{"users", "articles", "article_tags", "versions", "knowledge", "knowledge_revisions"} {
		assert.True(t, gdb.Migrator().HasTable(table), "expected table %s", table)
	}
}

func TestKnowledgeTagsRoundTripAsJSON(t *testing.T) {
	dsn := fmt.Sprintf("file:db-knowledge-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := Open(dsn, logger.Default.LogMode(logger.Silent))
	require.NoError(t, err)

	author := User{Username: "writer", Email: "writer@example.com", Password: "x", Role: RoleEditor}
	require.NoError(t, gdb.Create(&author).Error)

	doc := Knowledge{
		Title: "Runbook", Content: "steps", AuthorID: author.ID, Category: "ops",
		Tags: []string{"oncall", "db"}, Status: KnowledgeDraft, Visibility: VisibilityInternal,
		AccessLevel: AccessAuthenticated, Version: 1,
	}
	require.NoError(t, gdb.Create(&doc).Error)

	var loaded Knowledge
	require.NoError(t, gdb.First(&loaded, doc.ID).Error)
	assert.Equal(t, []string{"oncall", "db"}, loaded.Tags)
}

func TestRoleRank(t *testing.T) {
	assert.Less(t, RoleRank(RoleViewer), RoleRank(RoleEditor))
	assert.Less(t, RoleRank(RoleEditor), RoleRank(RoleAdmin))
	assert.False(t, ValidRole("root"))
}

func TestZapLoggerReportsFailedQueries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core))

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, fmt.Errorf("boom"))
	assert.Equal(t, 1, logs.FilterMessage("query failed").Len())

	silent := l.LogMode(logger.Silent)
	silent.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, fmt.Errorf("boom"))
	assert.Equal(t, 1, logs.Len())
}

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/permbase/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.AuditLog{}))
	return db
}

func seedLog(t *testing.T, db *gorm.DB, action model.AuditAction, resourceType string, actorID int64, age time.Duration) {
	t.Helper()
	entry := model.AuditLog{
		ActorUserID:  actorID,
		ActorName:    "admin",
		Action:       action,
		ResourceType: resourceType,
		Description:  "测试记录",
	}
	require.NoError(t, db.Create(&entry).Error)
	if age > 0 {
		require.NoError(t, db.Model(&model.AuditLog{}).
			Where("id = ?", entry.ID).
			Update("created_at", time.Now().Add(-age)).Error)
	}
}

func TestSearchFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepositoryWithDB(db)
	ctx := context.Background()

	seedLog(t, db, model.ActionCreate, model.ResourceRole, 1, 0)
	seedLog(t, db, model.ActionDelete, model.ResourceRole, 1, 0)
	seedLog(t, db, model.ActionAssign, model.ResourceGrant, 2, 0)

	result, err := repo.Search(ctx, &ListRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.Total)
	// 倒序：最新在前
	assert.Equal(t, model.ActionAssign, result.List[0].Action)

	result, err = repo.Search(ctx, &ListRequest{Action: string(model.ActionDelete)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Total)

	result, err = repo.Search(ctx, &ListRequest{ResourceType: model.ResourceGrant})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Total)

	result, err = repo.Search(ctx, &ListRequest{ActorUserID: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.Total)

	// 未来起始日期过滤掉全部
	future := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	result, err = repo.Search(ctx, &ListRequest{StartDate: future})
	require.NoError(t, err)
	assert.Zero(t, result.Total)
}

func TestStats(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepositoryWithDB(db)

	seedLog(t, db, model.ActionCreate, model.ResourceRole, 1, 0)
	seedLog(t, db, model.ActionCreate, model.ResourceMenu, 1, 0)
	seedLog(t, db, model.ActionAssign, model.ResourceGrant, 2, 48*time.Hour)

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Total)
	assert.EqualValues(t, 2, stats.Today)
	assert.EqualValues(t, 2, stats.ByAction[string(model.ActionCreate)])
	assert.EqualValues(t, 1, stats.ByAction[string(model.ActionAssign)])
	require.NotEmpty(t, stats.ByActor)
	assert.EqualValues(t, 1, stats.ByActor[0].ActorUserID, "按数量倒序，操作最多的在前")
}

func TestPurgeBoundary(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepositoryWithDB(db)

	seedLog(t, db, model.ActionCreate, model.ResourceRole, 1, 0)
	seedLog(t, db, model.ActionCreate, model.ResourceRole, 1, 10*24*time.Hour)
	seedLog(t, db, model.ActionCreate, model.ResourceRole, 1, 40*24*time.Hour)

	cutoff := time.Now().AddDate(0, 0, -30)
	deleted, err := repo.Purge(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var remaining int64
	require.NoError(t, db.Model(&model.AuditLog{}).Count(&remaining).Error)
	assert.EqualValues(t, 2, remaining, "晚于界限的记录保留")

	// 再次执行无可删对象
	deleted, err = repo.Purge(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestPurgeHonorsCancellation(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepositoryWithDB(db)
	seedLog(t, db, model.ActionCreate, model.ResourceRole, 1, 40*24*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := repo.Purge(ctx, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}

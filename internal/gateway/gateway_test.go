package gateway

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/permbase/internal/model"
	apperrors "github.com/permbase/pkg/errors"
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
	require.NoError(t, db.AutoMigrate(&model.Role{}, &model.AuditLog{}))
	return db
}

func testActor() Actor {
	return Actor{UserID: 1, Username: "admin", IP: "127.0.0.1", UserAgent: "go-test"}
}

func TestExecuteWritesAuditInSameTransaction(t *testing.T) {
	db := newTestDB(t)
	gw := New(db)

	role := &model.Role{Name: "TEST_ROLE", DisplayName: "测试角色", IsActive: true}
	err := gw.Execute(context.Background(), testActor(), func(tx *gorm.DB) (*Mutation, error) {
		if err := tx.Create(role).Error; err != nil {
			return nil, err
		}
		return &Mutation{
			Action:       model.ActionCreate,
			ResourceType: model.ResourceRole,
			ResourceID:   role.ID,
			Description:  "创建角色 TEST_ROLE",
			After:        role,
		}, nil
	})
	require.NoError(t, err)

	var logs []model.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, model.ActionCreate, logs[0].Action)
	assert.Equal(t, model.ResourceRole, logs[0].ResourceType)
	assert.Equal(t, role.ID, logs[0].ResourceID)
	assert.Equal(t, int64(1), logs[0].ActorUserID)
	assert.Equal(t, "admin", logs[0].ActorName)
	assert.Equal(t, "127.0.0.1", logs[0].IP)
	assert.Empty(t, logs[0].BeforeData)
	assert.Contains(t, logs[0].AfterData, `"name":"TEST_ROLE"`)
}

func TestExecuteRollsBackMutationAndAudit(t *testing.T) {
	db := newTestDB(t)
	gw := New(db)

	err := gw.Execute(context.Background(), testActor(), func(tx *gorm.DB) (*Mutation, error) {
		if err := tx.Create(&model.Role{Name: "DOOMED", DisplayName: "回滚角色"}).Error; err != nil {
			return nil, err
		}
		return nil, apperrors.Conflict("制造回滚")
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	var roleCount, logCount int64
	require.NoError(t, db.Model(&model.Role{}).Count(&roleCount).Error)
	require.NoError(t, db.Model(&model.AuditLog{}).Count(&logCount).Error)
	assert.Zero(t, roleCount, "业务变更应随审计一起回滚")
	assert.Zero(t, logCount, "失败的变更不应留下审计记录")
}

func TestExecuteRejectsNilMutation(t *testing.T) {
	db := newTestDB(t)
	gw := New(db)

	err := gw.Execute(context.Background(), testActor(), func(tx *gorm.DB) (*Mutation, error) {
		return nil, nil
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInternal))
}

func TestSnapshotStableOutput(t *testing.T) {
	role := &model.Role{Name: "A", DisplayName: "甲"}
	assert.Equal(t, Snapshot(role), Snapshot(role))
	assert.Empty(t, Snapshot(nil))
}

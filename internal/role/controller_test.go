package role

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/permbase/internal/gateway"
	"github.com/permbase/internal/model"
	apperrors "github.com/permbase/pkg/errors"
	"github.com/permbase/pkg/utils"
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
	require.NoError(t, db.AutoMigrate(
		&model.Role{}, &model.User{}, &model.AuditLog{},
		&model.RoleMenuGrant{}, &model.RoleButtonGrant{},
	))
	return db
}

func newTestController(t *testing.T) (*Controller, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewController(NewRepositoryWithDB(db), gateway.New(db)), db
}

func testActor() gateway.Actor {
	return gateway.Actor{UserID: 1, Username: "admin", IP: "127.0.0.1"}
}

func auditCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.AuditLog{}).Count(&n).Error)
	return n
}

func TestCreateRole(t *testing.T) {
	c, db := newTestController(t)
	ctx := context.Background()

	created, err := c.create(ctx, testActor(), &CreateRequest{
		Name:        "AUDITOR",
		DisplayName: "审计员",
		Description: "只读审计",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsActive)
	assert.False(t, created.IsSystem)
	assert.EqualValues(t, 1, auditCount(t, db))

	// 名称重复
	_, err = c.create(ctx, testActor(), &CreateRequest{Name: "AUDITOR", DisplayName: "审计员2"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	// 标识符不合法
	_, err = c.create(ctx, testActor(), &CreateRequest{Name: "9bad name", DisplayName: "非法"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestCreateRoleRejectsProtectedName(t *testing.T) {
	c, db := newTestController(t)

	_, err := c.create(context.Background(), testActor(), &CreateRequest{
		Name:        "SUPER_ADMIN",
		DisplayName: "伪装超管",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindProtected))
	assert.Zero(t, auditCount(t, db))
}

func TestUpdateProtectedRoleRejected(t *testing.T) {
	c, db := newTestController(t)
	admin := model.Role{Name: "ADMIN", DisplayName: "管理员", IsSystem: true, IsActive: true}
	require.NoError(t, db.Create(&admin).Error)

	active := false
	_, err := c.update(context.Background(), testActor(), admin.ID, &UpdateRequest{IsActive: &active})
	assert.True(t, apperrors.IsKind(err, apperrors.KindProtected))

	// 即使 IsSystem 标记丢失，名称仍在保护集合内
	rogue := model.Role{Name: "FINANCE", DisplayName: "财务", IsSystem: false, IsActive: true}
	require.NoError(t, db.Create(&rogue).Error)
	_, err = c.update(context.Background(), testActor(), rogue.ID, &UpdateRequest{DisplayName: "改名"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindProtected))
}

func TestDeleteRoleBlockedByUsers(t *testing.T) {
	c, db := newTestController(t)
	r := model.Role{Name: "TEMP", DisplayName: "临时", IsActive: true}
	require.NoError(t, db.Create(&r).Error)
	require.NoError(t, db.Create(&model.User{
		Username: "u1", Password: "x", IsActive: true, RoleID: r.ID,
	}).Error)

	err := c.delete(context.Background(), testActor(), r.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	// 用户移走后可删
	require.NoError(t, db.Model(&model.User{}).Where("role_id = ?", r.ID).Update("role_id", 0).Error)
	require.NoError(t, c.delete(context.Background(), testActor(), r.ID))

	got, err := c.repo.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteRoleCascadesGrants(t *testing.T) {
	c, db := newTestController(t)
	r := model.Role{Name: "TEMP", DisplayName: "临时", IsActive: true}
	require.NoError(t, db.Create(&r).Error)
	require.NoError(t, db.Create(&model.RoleMenuGrant{RoleID: r.ID, MenuID: 10}).Error)
	require.NoError(t, db.Create(&model.RoleButtonGrant{RoleID: r.ID, ButtonID: 20}).Error)

	require.NoError(t, c.delete(context.Background(), testActor(), r.ID))

	var menuGrants, buttonGrants int64
	require.NoError(t, db.Model(&model.RoleMenuGrant{}).Where("role_id = ?", r.ID).Count(&menuGrants).Error)
	require.NoError(t, db.Model(&model.RoleButtonGrant{}).Where("role_id = ?", r.ID).Count(&buttonGrants).Error)
	assert.Zero(t, menuGrants)
	assert.Zero(t, buttonGrants)
}

func TestDeleteRoleFreesNameForReuse(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()

	first, err := c.create(ctx, testActor(), &CreateRequest{Name: "AUDITOR", DisplayName: "审计员"})
	require.NoError(t, err)
	require.NoError(t, c.delete(ctx, testActor(), first.ID))

	// 删除后名称可立即重建
	second, err := c.create(ctx, testActor(), &CreateRequest{Name: "AUDITOR", DisplayName: "审计员二期"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestDeleteProtectedRoleRejected(t *testing.T) {
	c, db := newTestController(t)
	admin := model.Role{Name: "SUPER_ADMIN", DisplayName: "超级管理员", IsSystem: true, IsActive: true}
	require.NoError(t, db.Create(&admin).Error)

	err := c.delete(context.Background(), testActor(), admin.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindProtected))
	assert.Zero(t, auditCount(t, db))
}

func TestBatchSetActive(t *testing.T) {
	c, db := newTestController(t)
	r1 := model.Role{Name: "R1", DisplayName: "一", IsActive: true}
	r2 := model.Role{Name: "R2", DisplayName: "二", IsActive: true}
	require.NoError(t, db.Create(&r1).Error)
	require.NoError(t, db.Create(&r2).Error)

	count, err := c.batchSetActive(context.Background(), testActor(), &BatchActiveRequest{
		RoleIDs:  []int64{r1.ID, r2.ID},
		IsActive: false,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	var inactive int64
	require.NoError(t, db.Model(&model.Role{}).Where("is_active = ?", false).Count(&inactive).Error)
	assert.EqualValues(t, 2, inactive)

	// 整批一条审计记录，ResourceID 为 0
	var logs []model.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, model.ActionBatchUpdate, logs[0].Action)
	assert.Zero(t, logs[0].ResourceID)
}

func TestBatchSetActiveRejectsProtectedTarget(t *testing.T) {
	c, db := newTestController(t)
	r1 := model.Role{Name: "R1", DisplayName: "一", IsActive: true}
	admin := model.Role{Name: "ADMIN", DisplayName: "管理员", IsSystem: true, IsActive: true}
	require.NoError(t, db.Create(&r1).Error)
	require.NoError(t, db.Create(&admin).Error)

	_, err := c.batchSetActive(context.Background(), testActor(), &BatchActiveRequest{
		RoleIDs:  []int64{r1.ID, admin.ID},
		IsActive: false,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindProtected))

	// 整批拒绝，普通角色也不受影响
	var got model.Role
	require.NoError(t, db.First(&got, r1.ID).Error)
	assert.True(t, got.IsActive)
	assert.Zero(t, auditCount(t, db))
}

func TestBatchSetActiveRejectsMissingTarget(t *testing.T) {
	c, db := newTestController(t)
	r1 := model.Role{Name: "R1", DisplayName: "一", IsActive: true}
	require.NoError(t, db.Create(&r1).Error)

	_, err := c.batchSetActive(context.Background(), testActor(), &BatchActiveRequest{
		RoleIDs:  []int64{r1.ID, 9999},
		IsActive: false,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindReferential))
	assert.Zero(t, auditCount(t, db))
}

func TestListFillsUserCount(t *testing.T) {
	c, db := newTestController(t)
	r := model.Role{Name: "SALES", DisplayName: "销售", IsActive: true}
	require.NoError(t, db.Create(&r).Error)
	for _, name := range []string{"u1", "u2"} {
		hash, err := utils.HashPassword("pw")
		require.NoError(t, err)
		require.NoError(t, db.Create(&model.User{
			Username: name, Password: hash, IsActive: true, RoleID: r.ID,
		}).Error)
	}

	result, err := c.list(context.Background(), &ListRequest{})
	require.NoError(t, err)
	require.Len(t, result.List, 1)
	assert.EqualValues(t, 2, result.List[0].UserCount)
}

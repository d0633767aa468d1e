package matrix

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/permbase/internal/gateway"
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
	require.NoError(t, db.AutoMigrate(
		&model.Role{}, &model.Menu{}, &model.ButtonPermission{},
		&model.RoleMenuGrant{}, &model.RoleButtonGrant{}, &model.AuditLog{},
	))
	return db
}

// fixture 角色一个 + 菜单三个 + 按钮两个
func newFixture(t *testing.T) (*Controller, *gorm.DB, *model.Role, []model.Menu, []model.ButtonPermission) {
	t.Helper()
	db := newTestDB(t)
	c := NewController(NewRepositoryWithDB(db), gateway.New(db), nil)

	role := &model.Role{Name: "SALES", DisplayName: "销售", IsActive: true}
	require.NoError(t, db.Create(role).Error)

	menus := []model.Menu{
		{Name: "home", DisplayName: "首页", IsActive: true},
		{Name: "orders", DisplayName: "订单", IsActive: true},
		{Name: "reports", DisplayName: "报表", IsActive: true},
	}
	require.NoError(t, db.Create(&menus).Error)

	buttons := []model.ButtonPermission{
		{Name: "order_export", DisplayName: "订单导出", Category: model.CategoryExport, IsActive: true},
		{Name: "order_delete", DisplayName: "订单删除", Category: model.CategoryDelete, IsActive: true},
	}
	require.NoError(t, db.Create(&buttons).Error)

	return c, db, role, menus, buttons
}

func testActor() gateway.Actor {
	return gateway.Actor{UserID: 1, Username: "admin"}
}

func menuGrantIDs(t *testing.T, db *gorm.DB, roleID int64) []int64 {
	t.Helper()
	var ids []int64
	require.NoError(t, db.Model(&model.RoleMenuGrant{}).
		Where("role_id = ?", roleID).Order("menu_id ASC").Pluck("menu_id", &ids).Error)
	return ids
}

func auditLogs(t *testing.T, db *gorm.DB) []model.AuditLog {
	t.Helper()
	var logs []model.AuditLog
	require.NoError(t, db.Order("id ASC").Find(&logs).Error)
	return logs
}

func TestSetMenuGrantsReplacesFullSet(t *testing.T) {
	c, db, role, menus, _ := newFixture(t)
	ctx := context.Background()

	// 初始授予前两个
	grants, err := c.setMenuGrants(ctx, testActor(), role.ID, []int64{menus[0].ID, menus[1].ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{menus[0].ID, menus[1].ID}, grants.MenuIDs)

	// 替换为后两个：新增一项、移除一项、保留一项
	grants, err = c.setMenuGrants(ctx, testActor(), role.ID, []int64{menus[1].ID, menus[2].ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{menus[1].ID, menus[2].ID}, grants.MenuIDs)
	assert.Equal(t, []int64{menus[1].ID, menus[2].ID}, menuGrantIDs(t, db, role.ID))

	logs := auditLogs(t, db)
	require.Len(t, logs, 2)
	assert.Equal(t, model.ActionAssign, logs[1].Action)
	assert.Equal(t, model.ResourceGrant, logs[1].ResourceType)
	assert.Equal(t, role.ID, logs[1].ResourceID)
}

func TestSetMenuGrantsIdempotentButAlwaysAudited(t *testing.T) {
	c, db, role, menus, _ := newFixture(t)
	ctx := context.Background()
	target := []int64{menus[0].ID, menus[1].ID}

	_, err := c.setMenuGrants(ctx, testActor(), role.ID, target)
	require.NoError(t, err)
	// 原样重放：结束状态不变，仍各留一条审计
	_, err = c.setMenuGrants(ctx, testActor(), role.ID, target)
	require.NoError(t, err)

	assert.Equal(t, target, menuGrantIDs(t, db, role.ID))
	assert.Len(t, auditLogs(t, db), 2)
}

func TestSetMenuGrantsEmptySetRecordsRevoke(t *testing.T) {
	c, db, role, menus, _ := newFixture(t)
	ctx := context.Background()

	_, err := c.setMenuGrants(ctx, testActor(), role.ID, []int64{menus[0].ID})
	require.NoError(t, err)
	_, err = c.setMenuGrants(ctx, testActor(), role.ID, []int64{})
	require.NoError(t, err)

	assert.Empty(t, menuGrantIDs(t, db, role.ID))
	logs := auditLogs(t, db)
	require.Len(t, logs, 2)
	assert.Equal(t, model.ActionRevoke, logs[1].Action)
}

func TestSetMenuGrantsDeduplicatesTarget(t *testing.T) {
	c, db, role, menus, _ := newFixture(t)

	grants, err := c.setMenuGrants(context.Background(), testActor(), role.ID,
		[]int64{menus[0].ID, menus[0].ID, menus[1].ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{menus[0].ID, menus[1].ID}, grants.MenuIDs)
	assert.Equal(t, []int64{menus[0].ID, menus[1].ID}, menuGrantIDs(t, db, role.ID))
}

func TestSetMenuGrantsRejectsUnknownIDs(t *testing.T) {
	c, db, role, menus, _ := newFixture(t)
	ctx := context.Background()

	_, err := c.setMenuGrants(ctx, testActor(), role.ID, []int64{menus[0].ID})
	require.NoError(t, err)

	// 含不存在ID：整体拒绝，原集合不变，无新增审计
	_, err = c.setMenuGrants(ctx, testActor(), role.ID, []int64{menus[1].ID, 9999})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindReferential))
	assert.Equal(t, []int64{menus[0].ID}, menuGrantIDs(t, db, role.ID))
	assert.Len(t, auditLogs(t, db), 1)
}

func TestSetMenuGrantsUnknownRole(t *testing.T) {
	c, _, _, menus, _ := newFixture(t)

	_, err := c.setMenuGrants(context.Background(), testActor(), 9999, []int64{menus[0].ID})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestSetButtonGrantsReplacesFullSet(t *testing.T) {
	c, db, role, _, buttons := newFixture(t)
	ctx := context.Background()

	grants, err := c.setButtonGrants(ctx, testActor(), role.ID, []int64{buttons[0].ID, buttons[1].ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{buttons[0].ID, buttons[1].ID}, grants.ButtonIDs)

	grants, err = c.setButtonGrants(ctx, testActor(), role.ID, []int64{buttons[1].ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{buttons[1].ID}, grants.ButtonIDs)

	var rows int64
	require.NoError(t, db.Model(&model.RoleButtonGrant{}).Where("role_id = ?", role.ID).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestApplyBatchIsolatesFailures(t *testing.T) {
	c, db, role, menus, _ := newFixture(t)
	ctx := context.Background()

	other := &model.Role{Name: "FIN_OPS", DisplayName: "财务运营", IsActive: true}
	require.NoError(t, db.Create(other).Error)

	results, err := c.applyBatch(ctx, testActor(), &BatchRequest{Items: []BatchItem{
		{RoleID: role.ID, MenuIDs: &[]int64{menus[0].ID}},
		{RoleID: 9999, MenuIDs: &[]int64{menus[0].ID}},
		{RoleID: other.ID, MenuIDs: &[]int64{menus[1].ID, menus[2].ID}},
	}})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.NotEmpty(t, results[1].Error)
	assert.True(t, results[2].Success, "失败条目不影响后续角色")

	assert.Equal(t, []int64{menus[0].ID}, menuGrantIDs(t, db, role.ID))
	assert.Equal(t, []int64{menus[1].ID, menus[2].ID}, menuGrantIDs(t, db, other.ID))
}

func TestGetGrantsSortedAndEmpty(t *testing.T) {
	c, _, role, menus, buttons := newFixture(t)
	ctx := context.Background()

	grants, err := c.getGrants(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{}, grants.MenuIDs)
	assert.Equal(t, []int64{}, grants.ButtonIDs)

	_, err = c.setMenuGrants(ctx, testActor(), role.ID, []int64{menus[2].ID, menus[0].ID})
	require.NoError(t, err)
	_, err = c.setButtonGrants(ctx, testActor(), role.ID, []int64{buttons[1].ID})
	require.NoError(t, err)

	grants, err = c.getGrants(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{menus[0].ID, menus[2].ID}, grants.MenuIDs, "集合按ID升序返回")
	assert.Equal(t, []int64{buttons[1].ID}, grants.ButtonIDs)
}

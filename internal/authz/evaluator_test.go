package authz

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/permbase/internal/model"
	"github.com/permbase/pkg/database"
	redis "github.com/redis/go-redis/v9"
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
		&model.RoleMenuGrant{}, &model.RoleButtonGrant{}, &model.User{},
	))
	return db
}

func newTestCache(t *testing.T) *database.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return database.NewCacheWithClient(client, "authz")
}

// fixture 用户→角色→菜单/按钮授权的完整链路
type fixture struct {
	db        *gorm.DB
	evaluator *Evaluator
	user      model.User
	role      model.Role
	menus     []model.Menu
	buttons   []model.ButtonPermission
}

func newFixture(t *testing.T, withCache bool) *fixture {
	t.Helper()
	db := newTestDB(t)

	f := &fixture{db: db}
	f.role = model.Role{Name: "SALES", DisplayName: "销售", IsActive: true}
	require.NoError(t, db.Create(&f.role).Error)

	f.menus = []model.Menu{
		{Name: "home", DisplayName: "首页", IsActive: true},
		{Name: "orders", DisplayName: "订单", IsActive: true},
	}
	require.NoError(t, db.Create(&f.menus).Error)
	// orders 挂在 home 之下
	require.NoError(t, db.Model(&f.menus[1]).Update("parent_id", f.menus[0].ID).Error)

	f.buttons = []model.ButtonPermission{
		{Name: "order_export", DisplayName: "订单导出", Category: model.CategoryExport, IsActive: true},
		{Name: "order_delete", DisplayName: "订单删除", Category: model.CategoryDelete, IsActive: true},
	}
	require.NoError(t, db.Create(&f.buttons).Error)

	f.user = model.User{Username: "sales01", Password: "x", IsActive: true, RoleID: f.role.ID}
	require.NoError(t, db.Create(&f.user).Error)

	require.NoError(t, db.Create(&model.RoleMenuGrant{RoleID: f.role.ID, MenuID: f.menus[0].ID}).Error)
	require.NoError(t, db.Create(&model.RoleMenuGrant{RoleID: f.role.ID, MenuID: f.menus[1].ID}).Error)
	require.NoError(t, db.Create(&model.RoleButtonGrant{RoleID: f.role.ID, ButtonID: f.buttons[0].ID}).Error)

	var cache *database.Cache
	if withCache {
		cache = newTestCache(t)
	}
	f.evaluator = NewEvaluator(NewRepositoryWithDB(db), cache)
	return f
}

func TestHasMenuAccess(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	allowed, err := f.evaluator.HasMenuAccess(ctx, f.user.ID, f.menus[0].ID)
	require.NoError(t, err)
	assert.True(t, allowed)

	// 未授权菜单
	extra := model.Menu{Name: "secret", DisplayName: "机密", IsActive: true}
	require.NoError(t, f.db.Create(&extra).Error)
	allowed, err = f.evaluator.HasMenuAccess(ctx, f.user.ID, extra.ID)
	require.NoError(t, err)
	assert.False(t, allowed)

	// 已授权但被停用的菜单
	require.NoError(t, f.db.Model(&f.menus[0]).Update("is_active", false).Error)
	allowed, err = f.evaluator.HasMenuAccess(ctx, f.user.ID, f.menus[0].ID)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestHasButtonAccessByName(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	allowed, err := f.evaluator.HasButtonAccess(ctx, f.user.ID, "order_export")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = f.evaluator.HasButtonAccess(ctx, f.user.ID, "order_delete")
	require.NoError(t, err)
	assert.False(t, allowed, "存在但未授权")

	allowed, err = f.evaluator.HasButtonAccess(ctx, f.user.ID, "no_such_button")
	require.NoError(t, err)
	assert.False(t, allowed, "不存在的按钮拒绝而非报错")
}

func TestEvaluatorFailsClosed(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	// 用户不存在
	allowed, err := f.evaluator.HasMenuAccess(ctx, 9999, f.menus[0].ID)
	require.NoError(t, err)
	assert.False(t, allowed)

	// 用户停用
	require.NoError(t, f.db.Model(&f.user).Update("is_active", false).Error)
	allowed, err = f.evaluator.HasMenuAccess(ctx, f.user.ID, f.menus[0].ID)
	require.NoError(t, err)
	assert.False(t, allowed)
	require.NoError(t, f.db.Model(&f.user).Update("is_active", true).Error)

	// 角色停用
	require.NoError(t, f.db.Model(&f.role).Update("is_active", false).Error)
	allowed, err = f.evaluator.HasMenuAccess(ctx, f.user.ID, f.menus[0].ID)
	require.NoError(t, err)
	assert.False(t, allowed)

	tree, err := f.evaluator.EffectiveMenuTree(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, tree)

	buttons, err := f.evaluator.EffectiveButtons(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, buttons)
}

func TestEffectiveMenuTreePruning(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	tree, err := f.evaluator.EffectiveMenuTree(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, f.menus[0].ID, tree[0].ID)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, f.menus[1].ID, tree[0].Children[0].ID)

	// 父节点授权被收回后，子节点随之从树中消失
	require.NoError(t, f.db.Where("role_id = ? AND menu_id = ?", f.role.ID, f.menus[0].ID).
		Delete(&model.RoleMenuGrant{}).Error)
	tree, err = f.evaluator.EffectiveMenuTree(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, tree)
}

func TestEffectiveButtonsExcludesInactive(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	buttons, err := f.evaluator.EffectiveButtons(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"order_export"}, buttons)

	require.NoError(t, f.db.Model(&f.buttons[0]).Update("is_active", false).Error)
	buttons, err = f.evaluator.EffectiveButtons(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, buttons)
}

func TestGrantsCacheInvalidation(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	allowed, err := f.evaluator.HasMenuAccess(ctx, f.user.ID, f.menus[0].ID)
	require.NoError(t, err)
	assert.True(t, allowed)

	// 底层授权被删，缓存未失效前仍放行
	require.NoError(t, f.db.Where("role_id = ? AND menu_id = ?", f.role.ID, f.menus[0].ID).
		Delete(&model.RoleMenuGrant{}).Error)
	allowed, err = f.evaluator.HasMenuAccess(ctx, f.user.ID, f.menus[0].ID)
	require.NoError(t, err)
	assert.True(t, allowed, "短TTL窗口内允许读到旧集合")

	// 失效后立即反映新集合
	f.evaluator.InvalidateRole(ctx, f.role.ID)
	allowed, err = f.evaluator.HasMenuAccess(ctx, f.user.ID, f.menus[0].ID)
	require.NoError(t, err)
	assert.False(t, allowed)
}

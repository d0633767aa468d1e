package button

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

func newTestController(t *testing.T) (*Controller, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&model.ButtonPermission{}, &model.RoleButtonGrant{}, &model.AuditLog{},
	))
	return NewController(NewRepositoryWithDB(db), gateway.New(db)), db
}

func testActor() gateway.Actor {
	return gateway.Actor{UserID: 1, Username: "admin"}
}

func TestCreateButton(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()

	btn, err := c.create(ctx, testActor(), &CreateRequest{
		Name:        "order_export",
		DisplayName: "订单导出",
		Category:    model.CategoryExport,
	})
	require.NoError(t, err)
	assert.NotZero(t, btn.ID)
	assert.True(t, btn.IsActive)

	_, err = c.create(ctx, testActor(), &CreateRequest{
		Name: "order_export", DisplayName: "重复", Category: model.CategoryExport,
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestCreateButtonRejectsUnknownCategory(t *testing.T) {
	c, _ := newTestController(t)

	_, err := c.create(context.Background(), testActor(), &CreateRequest{
		Name:        "order_export",
		DisplayName: "订单导出",
		Category:    model.ButtonCategory("download"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestUpdateButtonCategory(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()

	btn, err := c.create(ctx, testActor(), &CreateRequest{
		Name: "order_export", DisplayName: "订单导出", Category: model.CategoryExport,
	})
	require.NoError(t, err)

	updated, err := c.update(ctx, testActor(), btn.ID, &UpdateRequest{Category: model.CategoryOther})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryOther, updated.Category)

	_, err = c.update(ctx, testActor(), btn.ID, &UpdateRequest{Category: model.ButtonCategory("bogus")})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestDeleteButtonFreesNameForReuse(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()

	first, err := c.create(ctx, testActor(), &CreateRequest{
		Name: "order_export", DisplayName: "订单导出", Category: model.CategoryExport,
	})
	require.NoError(t, err)
	require.NoError(t, c.delete(ctx, testActor(), first.ID))

	// 删除后名称可立即重建
	second, err := c.create(ctx, testActor(), &CreateRequest{
		Name: "order_export", DisplayName: "订单导出二期", Category: model.CategoryExport,
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestDeleteButtonCascadesGrants(t *testing.T) {
	c, db := newTestController(t)
	ctx := context.Background()

	btn, err := c.create(ctx, testActor(), &CreateRequest{
		Name: "order_delete", DisplayName: "订单删除", Category: model.CategoryDelete,
	})
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.RoleButtonGrant{RoleID: 1, ButtonID: btn.ID}).Error)
	require.NoError(t, db.Create(&model.RoleButtonGrant{RoleID: 2, ButtonID: btn.ID}).Error)

	require.NoError(t, c.delete(ctx, testActor(), btn.ID))

	var grants int64
	require.NoError(t, db.Model(&model.RoleButtonGrant{}).Where("button_id = ?", btn.ID).Count(&grants).Error)
	assert.Zero(t, grants)

	err = c.delete(ctx, testActor(), btn.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

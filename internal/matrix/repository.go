package matrix

import (
	"context"

	"github.com/permbase/internal/model"
	"github.com/permbase/pkg/database"
	"gorm.io/gorm"
)

// Repository 授权矩阵仓储接口，跨角色/菜单/按钮/授权四张表
type Repository interface {
	FindRole(ctx context.Context, id int64) (*model.Role, error)
	MenuGrantIDs(ctx context.Context, roleID int64) ([]int64, error)
	ButtonGrantIDs(ctx context.Context, roleID int64) ([]int64, error)
	ExistingMenuIDs(ctx context.Context, ids []int64) ([]int64, error)
	ExistingButtonIDs(ctx context.Context, ids []int64) ([]int64, error)
	DB() *gorm.DB
}

// repository 授权矩阵仓储实现
type repository struct {
	db *gorm.DB
}

// NewRepository 创建授权矩阵仓储
func NewRepository() Repository {
	return &repository{db: database.Get()}
}

// NewRepositoryWithDB 使用指定DB创建授权矩阵仓储
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{db: db}
}

// DB 返回底层连接
func (r *repository) DB() *gorm.DB {
	return r.db
}

// FindRole 根据ID查找角色
func (r *repository) FindRole(ctx context.Context, id int64) (*model.Role, error) {
	var role model.Role
	err := r.db.WithContext(ctx).First(&role, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// MenuGrantIDs 角色当前持有的菜单ID集合，升序
func (r *repository) MenuGrantIDs(ctx context.Context, roleID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.RoleMenuGrant{}).
		Where("role_id = ?", roleID).
		Order("menu_id ASC").
		Pluck("menu_id", &ids).Error
	return ids, err
}

// ButtonGrantIDs 角色当前持有的按钮ID集合，升序
func (r *repository) ButtonGrantIDs(ctx context.Context, roleID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.RoleButtonGrant{}).
		Where("role_id = ?", roleID).
		Order("button_id ASC").
		Pluck("button_id", &ids).Error
	return ids, err
}

// ExistingMenuIDs 返回给定集合中实际存在的菜单ID
func (r *repository) ExistingMenuIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []int64
	err := r.db.WithContext(ctx).Model(&model.Menu{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error
	return found, err
}

// ExistingButtonIDs 返回给定集合中实际存在的按钮ID
func (r *repository) ExistingButtonIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []int64
	err := r.db.WithContext(ctx).Model(&model.ButtonPermission{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error
	return found, err
}

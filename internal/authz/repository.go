package authz

import (
	"context"

	"github.com/permbase/internal/model"
	"github.com/permbase/pkg/database"
	"gorm.io/gorm"
)

// Repository 鉴权仓储接口
type Repository interface {
	FindUser(ctx context.Context, id int64) (*model.User, error)
	FindMenu(ctx context.Context, id int64) (*model.Menu, error)
	FindButtonByName(ctx context.Context, name string) (*model.ButtonPermission, error)
	MenuGrantIDs(ctx context.Context, roleID int64) ([]int64, error)
	ButtonGrantIDs(ctx context.Context, roleID int64) ([]int64, error)
	LoadActiveMenus(ctx context.Context) ([]model.Menu, error)
	ActiveButtonNames(ctx context.Context, ids []int64) ([]string, error)
}

// repository 鉴权仓储实现
type repository struct {
	db *gorm.DB
}

// NewRepository 创建鉴权仓储
func NewRepository() Repository {
	return &repository{db: database.Get()}
}

// NewRepositoryWithDB 使用指定DB创建鉴权仓储
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{db: db}
}

// FindUser 根据ID查找用户，预加载其角色
func (r *repository) FindUser(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Preload("Role").First(&user, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindMenu 根据ID查找菜单
func (r *repository) FindMenu(ctx context.Context, id int64) (*model.Menu, error) {
	var m model.Menu
	err := r.db.WithContext(ctx).First(&m, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FindButtonByName 根据名称查找按钮权限
func (r *repository) FindButtonByName(ctx context.Context, name string) (*model.ButtonPermission, error) {
	var btn model.ButtonPermission
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&btn).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &btn, nil
}

// MenuGrantIDs 角色持有的菜单ID集合
func (r *repository) MenuGrantIDs(ctx context.Context, roleID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.RoleMenuGrant{}).
		Where("role_id = ?", roleID).
		Pluck("menu_id", &ids).Error
	return ids, err
}

// ButtonGrantIDs 角色持有的按钮ID集合
func (r *repository) ButtonGrantIDs(ctx context.Context, roleID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.RoleButtonGrant{}).
		Where("role_id = ?", roleID).
		Pluck("button_id", &ids).Error
	return ids, err
}

// LoadActiveMenus 加载全部启用菜单
func (r *repository) LoadActiveMenus(ctx context.Context) ([]model.Menu, error) {
	var menus []model.Menu
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&menus).Error
	return menus, err
}

// ActiveButtonNames 给定按钮ID集合中启用按钮的名称，升序
func (r *repository) ActiveButtonNames(ctx context.Context, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var names []string
	err := r.db.WithContext(ctx).Model(&model.ButtonPermission{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Order("name ASC").
		Pluck("name", &names).Error
	return names, err
}

package menu

import (
	"context"

	"github.com/permbase/internal/model"
	"github.com/permbase/pkg/dal"
	"gorm.io/gorm"
)

// Repository 菜单仓储接口
type Repository interface {
	dal.Repository[model.Menu]
	FindByName(ctx context.Context, name string) (*model.Menu, error)
	LoadAll(ctx context.Context) ([]model.Menu, error)
	LoadActive(ctx context.Context) ([]model.Menu, error)
}

// repository 菜单仓储实现
type repository struct {
	*dal.BaseRepository[model.Menu]
}

// NewRepository 创建菜单仓储
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Menu](),
	}
}

// NewRepositoryWithDB 使用指定DB创建菜单仓储
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.Menu](db),
	}
}

// FindByName 根据名称查找
func (r *repository) FindByName(ctx context.Context, name string) (*model.Menu, error) {
	return r.FindOne(ctx, map[string]interface{}{"name": name})
}

// LoadAll 加载全部菜单
func (r *repository) LoadAll(ctx context.Context) ([]model.Menu, error) {
	return r.FindAll(ctx, nil, dal.WithOrder("sort_order ASC, id ASC"))
}

// LoadActive 加载全部启用菜单
func (r *repository) LoadActive(ctx context.Context) ([]model.Menu, error) {
	return r.FindAll(ctx, map[string]interface{}{"is_active": true}, dal.WithOrder("sort_order ASC, id ASC"))
}

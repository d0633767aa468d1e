package button

import (
	"context"

	"github.com/permbase/internal/model"
	"github.com/permbase/pkg/dal"
	"gorm.io/gorm"
)

// Repository 按钮权限仓储接口
type Repository interface {
	dal.Repository[model.ButtonPermission]
	FindByName(ctx context.Context, name string) (*model.ButtonPermission, error)
}

// repository 按钮权限仓储实现
type repository struct {
	*dal.BaseRepository[model.ButtonPermission]
}

// NewRepository 创建按钮权限仓储
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.ButtonPermission](),
	}
}

// NewRepositoryWithDB 使用指定DB创建按钮权限仓储
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.ButtonPermission](db),
	}
}

// FindByName 根据名称查找
func (r *repository) FindByName(ctx context.Context, name string) (*model.ButtonPermission, error) {
	return r.FindOne(ctx, map[string]interface{}{"name": name})
}

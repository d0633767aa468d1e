package role

import (
	"context"

	"github.com/permbase/internal/model"
	"github.com/permbase/pkg/dal"
	"gorm.io/gorm"
)

// Repository 角色仓储接口
type Repository interface {
	dal.Repository[model.Role]
	FindByName(ctx context.Context, name string) (*model.Role, error)
	CountUsers(ctx context.Context, roleID int64) (int64, error)
	UserCounts(ctx context.Context, roleIDs []int64) (map[int64]int64, error)
}

// repository 角色仓储实现
type repository struct {
	*dal.BaseRepository[model.Role]
}

// NewRepository 创建角色仓储
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Role](),
	}
}

// NewRepositoryWithDB 使用指定DB创建角色仓储
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.Role](db),
	}
}

// FindByName 根据名称查找
func (r *repository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	return r.FindOne(ctx, map[string]interface{}{"name": name})
}

// CountUsers 统计当前持有该角色的用户数
func (r *repository) CountUsers(ctx context.Context, roleID int64) (int64, error) {
	var count int64
	err := r.DB().WithContext(ctx).Model(&model.User{}).
		Where("role_id = ?", roleID).
		Count(&count).Error
	return count, err
}

// UserCounts 批量统计角色的用户数
func (r *repository) UserCounts(ctx context.Context, roleIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(roleIDs))
	if len(roleIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		RoleID int64
		Count  int64
	}
	err := r.DB().WithContext(ctx).Model(&model.User{}).
		Select("role_id, COUNT(*) AS count").
		Where("role_id IN ?", roleIDs).
		Group("role_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.RoleID] = row.Count
	}
	return counts, nil
}

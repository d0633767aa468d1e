package audit

import (
	"context"
	"time"

	"github.com/permbase/internal/model"
	"github.com/permbase/pkg/dal"
	"gorm.io/gorm"
)

// purgeBatchSize 单批清理行数，批次之间检查取消信号
const purgeBatchSize = 500

// Repository 审计日志仓储接口
type Repository interface {
	dal.Repository[model.AuditLog]
	Search(ctx context.Context, req *ListRequest) (*dal.PagedResult[model.AuditLog], error)
	Stats(ctx context.Context) (*Stats, error)
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// repository 审计日志仓储实现
type repository struct {
	*dal.BaseRepository[model.AuditLog]
}

// NewRepository 创建审计日志仓储
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.AuditLog](),
	}
}

// NewRepositoryWithDB 使用指定DB创建审计日志仓储
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.AuditLog](db),
	}
}

// Search 按条件分页查询审计日志
func (r *repository) Search(ctx context.Context, req *ListRequest) (*dal.PagedResult[model.AuditLog], error) {
	pagination := dal.NewPagination(req.Page, req.PageSize)
	qb := dal.NewQueryBuilder[model.AuditLog](r.DB())

	qb.WhereIf(req.Action != "", "action = ?", req.Action)
	qb.WhereIf(req.ResourceType != "", "resource_type = ?", req.ResourceType)
	qb.WhereIf(req.ActorUserID > 0, "actor_user_id = ?", req.ActorUserID)
	qb.WhereIf(req.Search != "", "description LIKE ?", "%"+req.Search+"%")

	if req.StartDate != "" {
		if t, err := time.ParseInLocation("2006-01-02", req.StartDate, time.Local); err == nil {
			qb.Where("created_at >= ?", t)
		}
	}
	if req.EndDate != "" {
		if t, err := time.ParseInLocation("2006-01-02", req.EndDate, time.Local); err == nil {
			qb.Where("created_at < ?", t.AddDate(0, 0, 1))
		}
	}

	qb.Order("id DESC")

	return qb.Paged(ctx, pagination)
}

// Stats 聚合统计：总数、今日数、按动作分组、按操作人分组。
// 统计覆盖全表，不随列表筛选条件变化
func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByAction: make(map[string]int64)}
	db := r.DB().WithContext(ctx).Model(&model.AuditLog{})

	if err := db.Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := r.DB().WithContext(ctx).Model(&model.AuditLog{}).
		Where("created_at >= ?", todayStart).
		Count(&stats.Today).Error; err != nil {
		return nil, err
	}

	var actionRows []struct {
		Action string
		Count  int64
	}
	if err := r.DB().WithContext(ctx).Model(&model.AuditLog{}).
		Select("action, COUNT(*) AS count").
		Group("action").
		Scan(&actionRows).Error; err != nil {
		return nil, err
	}
	for _, row := range actionRows {
		stats.ByAction[row.Action] = row.Count
	}

	if err := r.DB().WithContext(ctx).Model(&model.AuditLog{}).
		Select("actor_user_id, actor_name, COUNT(*) AS count").
		Group("actor_user_id").
		Group("actor_name").
		Order("count DESC").
		Scan(&stats.ByActor).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// Purge 删除早于 cutoff 的全部日志，分批执行，批间响应取消。
// 不可逆，且本身不产生审计记录
func (r *repository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	for {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}

		var ids []int64
		if err := r.DB().WithContext(ctx).Model(&model.AuditLog{}).
			Where("created_at < ?", cutoff).
			Order("id ASC").
			Limit(purgeBatchSize).
			Pluck("id", &ids).Error; err != nil {
			return deleted, err
		}
		if len(ids) == 0 {
			return deleted, nil
		}

		res := r.DB().WithContext(ctx).Where("id IN ?", ids).Delete(&model.AuditLog{})
		if res.Error != nil {
			return deleted, res.Error
		}
		deleted += res.RowsAffected

		if len(ids) < purgeBatchSize {
			return deleted, nil
		}
	}
}

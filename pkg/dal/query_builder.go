package dal

import (
	"context"

	"gorm.io/gorm"
)

// QueryBuilder 查询构建器
type QueryBuilder[T any] struct {
	db         *gorm.DB
	conditions []interface{}
	args       []interface{}
	orders     []string
	selects    []string
	groups     []string
	unscoped   bool
}

// NewQueryBuilder 创建查询构建器
func NewQueryBuilder[T any](db *gorm.DB) *QueryBuilder[T] {
	return &QueryBuilder[T]{
		db:         db,
		conditions: make([]interface{}, 0),
		args:       make([]interface{}, 0),
		orders:     make([]string, 0),
	}
}

// Where 添加条件
func (qb *QueryBuilder[T]) Where(query interface{}, args ...interface{}) *QueryBuilder[T] {
	qb.conditions = append(qb.conditions, query)
	qb.args = append(qb.args, args...)
	return qb
}

// WhereIf 按条件添加条件
func (qb *QueryBuilder[T]) WhereIf(condition bool, query interface{}, args ...interface{}) *QueryBuilder[T] {
	if condition {
		return qb.Where(query, args...)
	}
	return qb
}

// Order 添加排序
func (qb *QueryBuilder[T]) Order(order string) *QueryBuilder[T] {
	if order != "" {
		qb.orders = append(qb.orders, order)
	}
	return qb
}

// Select 选择字段
func (qb *QueryBuilder[T]) Select(fields ...string) *QueryBuilder[T] {
	qb.selects = append(qb.selects, fields...)
	return qb
}

// Group 分组
func (qb *QueryBuilder[T]) Group(name string) *QueryBuilder[T] {
	qb.groups = append(qb.groups, name)
	return qb
}

// Unscoped 包含软删除数据
func (qb *QueryBuilder[T]) Unscoped() *QueryBuilder[T] {
	qb.unscoped = true
	return qb
}

// Build 构建查询
func (qb *QueryBuilder[T]) Build(ctx context.Context) *gorm.DB {
	var entity T
	db := qb.db.WithContext(ctx).Model(&entity)

	if qb.unscoped {
		db = db.Unscoped()
	}

	if len(qb.selects) > 0 {
		db = db.Select(qb.selects)
	}

	argIndex := 0
	for _, cond := range qb.conditions {
		switch c := cond.(type) {
		case string:
			// 按占位符数量切分参数
			argsNeeded := countPlaceholders(c)
			if argIndex+argsNeeded <= len(qb.args) {
				db = db.Where(c, qb.args[argIndex:argIndex+argsNeeded]...)
				argIndex += argsNeeded
			} else {
				db = db.Where(c)
			}
		case map[string]interface{}:
			db = db.Where(c)
		default:
			db = db.Where(cond)
		}
	}

	for _, group := range qb.groups {
		db = db.Group(group)
	}

	for _, order := range qb.orders {
		db = db.Order(order)
	}

	return db
}

// countPlaceholders 计算SQL中的占位符数量
func countPlaceholders(sql string) int {
	count := 0
	for _, c := range sql {
		if c == '?' {
			count++
		}
	}
	return count
}

// Find 查询所有
func (qb *QueryBuilder[T]) Find(ctx context.Context) ([]T, error) {
	var entities []T
	if err := qb.Build(ctx).Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// First 查询第一条
func (qb *QueryBuilder[T]) First(ctx context.Context) (*T, error) {
	var entity T
	if err := qb.Build(ctx).First(&entity).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// Count 统计数量
func (qb *QueryBuilder[T]) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := qb.Build(ctx).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Paged 分页查询
func (qb *QueryBuilder[T]) Paged(ctx context.Context, pagination *Pagination) (*PagedResult[T], error) {
	var entities []T
	var total int64

	db := qb.Build(ctx)

	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	if err := db.Offset(pagination.Offset()).Limit(pagination.PageSize).Find(&entities).Error; err != nil {
		return nil, err
	}

	return NewPagedResult(entities, total, pagination), nil
}

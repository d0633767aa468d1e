package model

import (
	"github.com/permbase/pkg/dal"
)

// Role 角色模型
// Name 创建后不可变更，作为角色的稳定标识
type Role struct {
	dal.Model
	Name        string `gorm:"size:50;uniqueIndex;not null" json:"name"`
	DisplayName string `gorm:"size:50;not null" json:"displayName"`
	Description string `gorm:"size:255" json:"description"`
	IsSystem    bool   `gorm:"default:false" json:"isSystem"`
	IsActive    bool   `gorm:"default:true" json:"isActive"`
	UserCount   int64  `gorm:"-" json:"userCount"` // 当前持有该角色的用户数，查询时填充
}

// TableName 表名
func (Role) TableName() string {
	return "sys_role"
}

// 受保护角色名称集合，与 IsSystem 标志双重校验，
// 防止标志位被误改后内置角色失去保护
var protectedRoleNames = map[string]struct{}{
	"SUPER_ADMIN":      {},
	"ADMIN":            {},
	"SALES_MANAGER":    {},
	"SALES_PERSON":     {},
	"FINANCE":          {},
	"CUSTOMER_SERVICE": {},
	"USER":             {},
}

// IsProtected 角色是否受保护（系统标志或名称命中保护集）
func (r *Role) IsProtected() bool {
	if r.IsSystem {
		return true
	}
	_, ok := protectedRoleNames[r.Name]
	return ok
}

// ProtectedRoleNames 返回受保护角色名称列表（用于初始化种子数据）
func ProtectedRoleNames() []string {
	return []string{
		"SUPER_ADMIN",
		"ADMIN",
		"SALES_MANAGER",
		"SALES_PERSON",
		"FINANCE",
		"CUSTOMER_SERVICE",
		"USER",
	}
}

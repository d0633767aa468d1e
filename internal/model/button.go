package model

import (
	"github.com/permbase/pkg/dal"
)

// ButtonCategory 按钮权限分类（封闭枚举）
type ButtonCategory string

const (
	CategoryCreate  ButtonCategory = "create"
	CategoryRead    ButtonCategory = "read"
	CategoryUpdate  ButtonCategory = "update"
	CategoryDelete  ButtonCategory = "delete"
	CategoryExport  ButtonCategory = "export"
	CategoryImport  ButtonCategory = "import"
	CategoryApprove ButtonCategory = "approve"
	CategoryOther   ButtonCategory = "other"
)

// Valid 分类是否合法
func (c ButtonCategory) Valid() bool {
	switch c {
	case CategoryCreate, CategoryRead, CategoryUpdate, CategoryDelete,
		CategoryExport, CategoryImport, CategoryApprove, CategoryOther:
		return true
	}
	return false
}

// ButtonPermission 按钮权限模型，扁平目录，无层级
type ButtonPermission struct {
	dal.Model
	Name        string         `gorm:"size:100;uniqueIndex;not null" json:"name"`
	DisplayName string         `gorm:"size:50;not null" json:"displayName"`
	Description string         `gorm:"size:255" json:"description"`
	Category    ButtonCategory `gorm:"size:20;not null;default:other" json:"category"`
	IsActive    bool           `gorm:"default:true" json:"isActive"`
}

// TableName 表名
func (ButtonPermission) TableName() string {
	return "sys_button_permission"
}

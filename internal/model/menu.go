package model

import (
	"github.com/permbase/pkg/dal"
)

// Menu 菜单模型，ParentID 为空表示根节点
type Menu struct {
	dal.Model
	Name        string  `gorm:"size:50;uniqueIndex;not null" json:"name"`
	DisplayName string  `gorm:"size:50;not null" json:"displayName"`
	Path        string  `gorm:"size:255" json:"path"`
	Icon        string  `gorm:"size:50" json:"icon"`
	ParentID    *int64  `gorm:"index" json:"parentId"`
	SortOrder   int     `gorm:"default:0" json:"sortOrder"`
	IsActive    bool    `gorm:"default:true" json:"isActive"`
	Children    []*Menu `gorm:"-" json:"children,omitempty"`
}

// TableName 表名
func (Menu) TableName() string {
	return "sys_menu"
}

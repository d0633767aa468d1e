package model

import (
	"github.com/permbase/pkg/dal"
)

// User 用户模型（单角色），授权核心只关心 用户→角色 的解析
type User struct {
	dal.Model
	Username string `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Password string `gorm:"size:255;not null" json:"-"`
	Nickname string `gorm:"size:50" json:"nickname"`
	IsActive bool   `gorm:"default:true" json:"isActive"`
	RoleID   int64  `gorm:"index" json:"roleId"`
	Role     *Role  `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

// TableName 表名
func (User) TableName() string {
	return "sys_user"
}

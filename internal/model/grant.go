package model

// RoleMenuGrant 角色-菜单授权关联，复合主键保证无重复行
type RoleMenuGrant struct {
	RoleID int64 `gorm:"primaryKey;autoIncrement:false" json:"roleId"`
	MenuID int64 `gorm:"primaryKey;autoIncrement:false" json:"menuId"`
}

// TableName 表名
func (RoleMenuGrant) TableName() string {
	return "sys_role_menu_grant"
}

// RoleButtonGrant 角色-按钮授权关联
type RoleButtonGrant struct {
	RoleID   int64 `gorm:"primaryKey;autoIncrement:false" json:"roleId"`
	ButtonID int64 `gorm:"primaryKey;autoIncrement:false" json:"buttonId"`
}

// TableName 表名
func (RoleButtonGrant) TableName() string {
	return "sys_role_button_grant"
}

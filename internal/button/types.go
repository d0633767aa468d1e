package button

import "github.com/permbase/internal/model"

// CreateRequest 创建按钮权限请求
type CreateRequest struct {
	Name        string               `json:"name" validate:"required,ident,max=100"`
	DisplayName string               `json:"displayName" validate:"required,max=50"`
	Category    model.ButtonCategory `json:"category" validate:"required"`
	Description string               `json:"description" validate:"max=255"`
}

// UpdateRequest 更新按钮权限请求
type UpdateRequest struct {
	DisplayName string               `json:"displayName" validate:"max=50"`
	Category    model.ButtonCategory `json:"category"`
	Description string               `json:"description" validate:"max=255"`
	IsActive    *bool                `json:"isActive"`
}

// ListRequest 按钮权限列表查询请求
type ListRequest struct {
	Page     int                  `query:"page"`
	PageSize int                  `query:"pageSize"`
	Search   string               `query:"search"`
	Category model.ButtonCategory `query:"category"`
	IsActive *bool                `query:"isActive"`
}

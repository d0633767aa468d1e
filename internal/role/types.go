package role

// CreateRequest 创建角色请求
type CreateRequest struct {
	Name        string `json:"name" validate:"required,ident,max=50"`
	DisplayName string `json:"displayName" validate:"required,max=50"`
	Description string `json:"description" validate:"max=255"`
}

// UpdateRequest 更新角色请求，Name 不可变更
type UpdateRequest struct {
	DisplayName string `json:"displayName" validate:"omitempty,max=50"`
	Description string `json:"description" validate:"max=255"`
	IsActive    *bool  `json:"isActive"`
}

// BatchActiveRequest 批量启停角色请求
type BatchActiveRequest struct {
	RoleIDs  []int64 `json:"roleIds" validate:"required,min=1"`
	IsActive bool    `json:"isActive"`
}

// ListRequest 角色列表请求
type ListRequest struct {
	Page     int    `query:"page"`
	PageSize int    `query:"pageSize"`
	Search   string `query:"search"`
	IsActive *bool  `query:"isActive"`
}

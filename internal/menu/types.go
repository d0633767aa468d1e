package menu

// CreateRequest 创建菜单请求
type CreateRequest struct {
	Name        string `json:"name" validate:"required,ident,max=50"`
	DisplayName string `json:"displayName" validate:"required,max=100"`
	Path        string `json:"path" validate:"max=200"`
	Icon        string `json:"icon" validate:"max=100"`
	ParentID    *int64 `json:"parentId"`
	SortOrder   int    `json:"sortOrder"`
}

// UpdateRequest 更新菜单请求。ParentID 不传表示父节点保持不变，
// 传 0 表示移动到顶层
type UpdateRequest struct {
	DisplayName string `json:"displayName" validate:"max=100"`
	Path        string `json:"path" validate:"max=200"`
	Icon        string `json:"icon" validate:"max=100"`
	ParentID    *int64 `json:"parentId"`
	SortOrder   *int   `json:"sortOrder"`
	IsActive    *bool  `json:"isActive"`
}

// ListRequest 菜单列表查询请求
type ListRequest struct {
	Page     int    `query:"page"`
	PageSize int    `query:"pageSize"`
	Search   string `query:"search"`
	IsActive *bool  `query:"isActive"`
}

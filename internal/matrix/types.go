package matrix

// SetMenuGrantsRequest 全量替换角色菜单授权请求
type SetMenuGrantsRequest struct {
	MenuIDs []int64 `json:"menuIds"`
}

// SetButtonGrantsRequest 全量替换角色按钮授权请求
type SetButtonGrantsRequest struct {
	ButtonIDs []int64 `json:"buttonIds"`
}

// Grants 角色的有效授权集合，ID升序
type Grants struct {
	RoleID    int64   `json:"roleId"`
	MenuIDs   []int64 `json:"menuIds"`
	ButtonIDs []int64 `json:"buttonIds"`
}

// BatchItem 批量授权中单个角色的目标集合。
// 为 nil 的集合保持原状不做替换
type BatchItem struct {
	RoleID    int64    `json:"roleId" validate:"required"`
	MenuIDs   *[]int64 `json:"menuIds"`
	ButtonIDs *[]int64 `json:"buttonIds"`
}

// BatchRequest 批量授权请求
type BatchRequest struct {
	Items []BatchItem `json:"items" validate:"required,min=1,dive"`
}

// BatchResult 批量授权中单个角色的处理结果
type BatchResult struct {
	RoleID  int64  `json:"roleId"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

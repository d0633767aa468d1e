package audit

// ListRequest 审计日志列表请求
type ListRequest struct {
	Page         int    `query:"page"`
	PageSize     int    `query:"pageSize"`
	Action       string `query:"action"`
	ResourceType string `query:"resourceType"`
	ActorUserID  int64  `query:"actorUserId"`
	Search       string `query:"search"`    // 对描述的模糊检索
	StartDate    string `query:"startDate"` // 格式 2006-01-02
	EndDate      string `query:"endDate"`
}

// PurgeRequest 审计日志清理请求
type PurgeRequest struct {
	RetentionDays int `json:"retentionDays" validate:"required,min=1"`
}

// ActorCount 按操作人聚合的计数
type ActorCount struct {
	ActorUserID int64  `json:"actorUserId"`
	ActorName   string `json:"actorName"`
	Count       int64  `json:"count"`
}

// Stats 审计日志聚合统计
type Stats struct {
	Total    int64            `json:"total"`
	Today    int64            `json:"today"`
	ByAction map[string]int64 `json:"byAction"`
	ByActor  []ActorCount     `json:"byActor"`
}

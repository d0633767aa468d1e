package model

import (
	"time"
)

// AuditAction 审计动作
type AuditAction string

const (
	ActionCreate      AuditAction = "CREATE"
	ActionUpdate      AuditAction = "UPDATE"
	ActionDelete      AuditAction = "DELETE"
	ActionBatchUpdate AuditAction = "BATCH_UPDATE"
	ActionBatchDelete AuditAction = "BATCH_DELETE"
	ActionAssign      AuditAction = "ASSIGN"
	ActionRevoke      AuditAction = "REVOKE"
)

// 审计资源类型
const (
	ResourceRole   = "role"
	ResourceMenu   = "menu"
	ResourceButton = "button"
	ResourceGrant  = "grant"
)

// AuditLog 审计日志，仅追加，除保留期清理外不删除不修改
// ResourceID 为 0 表示批量操作或无单一目标资源
type AuditLog struct {
	ID           int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  int64       `gorm:"index;not null" json:"actorUserId"`
	ActorName    string      `gorm:"size:50" json:"actorName"`
	Action       AuditAction `gorm:"size:20;index;not null" json:"action"`
	ResourceType string      `gorm:"size:20;index;not null" json:"resourceType"`
	ResourceID   int64       `gorm:"default:0" json:"resourceId"`
	BeforeData   string      `gorm:"type:text" json:"beforeData"`
	AfterData    string      `gorm:"type:text" json:"afterData"`
	Description  string      `gorm:"size:255" json:"description"`
	IP           string      `gorm:"size:50" json:"ip"`
	UserAgent    string      `gorm:"size:500" json:"userAgent"`
	CreatedAt    time.Time   `gorm:"autoCreateTime;index" json:"createdAt"`
}

// TableName 表名
func (AuditLog) TableName() string {
	return "sys_audit_log"
}

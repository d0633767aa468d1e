package audit

import (
	"github.com/permbase/internal/model"
	"gorm.io/gorm"
)

// Record 在给定事务内追加一条审计日志。
// 仅供变更网关调用，与业务变更共用同一事务
func Record(tx *gorm.DB, entry *model.AuditLog) error {
	return tx.Create(entry).Error
}

package gateway

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/permbase/internal/audit"
	"github.com/permbase/internal/model"
	"github.com/permbase/pkg/errors"
	"gorm.io/gorm"
)

// Actor 发起变更的调用方身份，来自JWT中间件与请求元数据
type Actor struct {
	UserID    int64
	Username  string
	IP        string
	UserAgent string
}

// ActorFromCtx 从请求上下文提取调用方身份
func ActorFromCtx(c *fiber.Ctx) Actor {
	userID, _ := c.Locals("userId").(int64)
	username, _ := c.Locals("username").(string)
	return Actor{
		UserID:    userID,
		Username:  username,
		IP:        c.IP(),
		UserAgent: c.Get("User-Agent"),
	}
}

// Mutation 一次变更的审计描述，由业务回调在事务内生成
type Mutation struct {
	Action       model.AuditAction
	ResourceType string
	ResourceID   int64 // 0 表示批量操作或无单一目标
	Description  string
	Before       any
	After        any
}

// Gateway 变更网关：所有 角色/菜单/按钮/授权 的写操作唯一入口。
// 业务变更与审计插入在同一事务中提交，任一失败则整体回滚，
// 不存在未经审计的变更，也不存在未生效变更的审计记录。
type Gateway struct {
	db *gorm.DB
}

// New 创建变更网关
func New(db *gorm.DB) *Gateway {
	return &Gateway{db: db}
}

// DB 获取数据库实例
func (g *Gateway) DB() *gorm.DB {
	return g.db
}

// Execute 在单个事务中执行业务变更并追加审计日志。
// fn 在事务内完成资源变更（含级联），返回该次变更的审计描述。
func (g *Gateway) Execute(ctx context.Context, actor Actor, fn func(tx *gorm.DB) (*Mutation, error)) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mut, err := fn(tx)
		if err != nil {
			return err
		}
		if mut == nil {
			return errors.Internal("变更未产生审计描述")
		}

		entry := &model.AuditLog{
			ActorUserID:  actor.UserID,
			ActorName:    actor.Username,
			Action:       mut.Action,
			ResourceType: mut.ResourceType,
			ResourceID:   mut.ResourceID,
			BeforeData:   Snapshot(mut.Before),
			AfterData:    Snapshot(mut.After),
			Description:  mut.Description,
			IP:           actor.IP,
			UserAgent:    actor.UserAgent,
		}
		return audit.Record(tx, entry)
	})
	if err != nil {
		var appErr *errors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return errors.WrapInternal(err)
	}
	return nil
}

// Snapshot 生成稳定的资源快照。结构体按字段声明序输出，
// map 按键排序，相同状态必然产生相同字节
func Snapshot(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

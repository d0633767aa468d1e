package audit

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/permbase/pkg/logger"
	"github.com/permbase/pkg/response"
	"github.com/permbase/pkg/validate"
	"go.uber.org/zap"
)

// Controller 审计日志控制器
type Controller struct {
	repo Repository
}

// NewController 创建审计日志控制器
func NewController(repo Repository) *Controller {
	return &Controller{repo: repo}
}

// RegisterRoutes 注册路由，清理操作额外要求管理角色
func (c *Controller) RegisterRoutes(r fiber.Router, jwtMiddleware, adminGuard fiber.Handler) {
	logs := r.Group("/audit-logs", jwtMiddleware)
	logs.Get("", c.List)
	logs.Delete("/purge", adminGuard, c.Purge)
}

// List 审计日志列表
// @Summary 审计日志列表
// @Tags 审计日志
// @Param action query string false "动作"
// @Param resourceType query string false "资源类型"
// @Param actorUserId query int false "操作人ID"
// @Param search query string false "描述检索"
// @Param startDate query string false "起始日期 2006-01-02"
// @Param endDate query string false "截止日期 2006-01-02"
// @Param page query int false "页码"
// @Param pageSize query int false "每页数量"
// @Success 200 {object} response.Response
// @Router /audit-logs [get]
func (c *Controller) List(ctx *fiber.Ctx) error {
	var req ListRequest
	if err := ctx.QueryParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	result, err := c.repo.Search(ctx.UserContext(), &req)
	if err != nil {
		return response.FromError(ctx, err)
	}

	// stats 为全表总览，logs 按筛选条件分页
	stats, err := c.repo.Stats(ctx.UserContext())
	if err != nil {
		return response.FromError(ctx, err)
	}

	return response.Success(ctx, fiber.Map{
		"logs": result.List,
		"pagination": fiber.Map{
			"total":    result.Total,
			"page":     result.Page,
			"pageSize": result.PageSize,
		},
		"stats": stats,
	})
}

// Purge 清理过期审计日志
// @Summary 清理过期审计日志
// @Tags 审计日志
// @Accept json
// @Produce json
// @Param request body PurgeRequest true "清理请求"
// @Success 200 {object} response.Response
// @Router /audit-logs/purge [delete]
func (c *Controller) Purge(ctx *fiber.Ctx) error {
	var req PurgeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}
	if err := validate.Struct(&req); err != nil {
		return response.FromError(ctx, err)
	}

	deleted, err := c.purge(ctx.UserContext(), req.RetentionDays)
	if err != nil {
		return response.FromError(ctx, err)
	}

	return response.Success(ctx, fiber.Map{"deletedCount": deleted})
}

// purge 清理业务逻辑：删除早于 now-retentionDays 的日志。
// 清理是审计链路的终点操作，自身不再记审计，仅落应用日志
func (c *Controller) purge(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := c.repo.Purge(ctx, cutoff)
	if err != nil {
		return deleted, err
	}

	logger.Info("审计日志清理完成",
		zap.Int("retentionDays", retentionDays),
		zap.Int64("deletedCount", deleted),
	)
	return deleted, nil
}

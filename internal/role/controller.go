package role

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/permbase/internal/gateway"
	"github.com/permbase/internal/model"
	"github.com/permbase/pkg/dal"
	"github.com/permbase/pkg/errors"
	"github.com/permbase/pkg/response"
	"github.com/permbase/pkg/validate"
	"gorm.io/gorm"
)

// Controller 角色控制器
type Controller struct {
	repo Repository
	gw   *gateway.Gateway
}

// NewController 创建角色控制器
func NewController(repo Repository, gw *gateway.Gateway) *Controller {
	return &Controller{repo: repo, gw: gw}
}

// RegisterRoutes 注册路由，写操作额外要求管理角色
func (c *Controller) RegisterRoutes(r fiber.Router, jwtMiddleware, adminGuard fiber.Handler) {
	roles := r.Group("/roles", jwtMiddleware)
	roles.Get("", c.List)
	roles.Get("/:id<int>", c.Get)
	roles.Post("", adminGuard, c.Create)
	roles.Put("/batch-active", adminGuard, c.BatchSetActive)
	roles.Put("/:id<int>", adminGuard, c.Update)
	roles.Delete("/:id<int>", adminGuard, c.Delete)
}

// Create 创建角色
// @Summary 创建角色
// @Tags 角色管理
// @Accept json
// @Produce json
// @Param request body CreateRequest true "创建角色请求"
// @Success 200 {object} response.Response
// @Router /roles [post]
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	role, err := c.create(ctx.UserContext(), gateway.ActorFromCtx(ctx), &req)
	if err != nil {
		return response.FromError(ctx, err)
	}

	return response.Success(ctx, role)
}

// create 创建角色业务逻辑
func (c *Controller) create(ctx context.Context, actor gateway.Actor, req *CreateRequest) (*model.Role, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	existing, err := c.repo.FindByName(ctx, req.Name)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	if existing != nil {
		return nil, errors.Duplicate("角色名称")
	}

	role := &model.Role{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		IsActive:    true,
	}
	// 保护名称只允许由种子数据创建
	if role.IsProtected() {
		return nil, errors.Protected("角色名称 " + req.Name)
	}

	err = c.gw.Execute(ctx, actor, func(tx *gorm.DB) (*gateway.Mutation, error) {
		if err := tx.Create(role).Error; err != nil {
			return nil, err
		}
		return &gateway.Mutation{
			Action:       model.ActionCreate,
			ResourceType: model.ResourceRole,
			ResourceID:   role.ID,
			Description:  "创建角色 " + role.Name,
			After:        role,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return role, nil
}

// Update 更新角色
// @Summary 更新角色
// @Tags 角色管理
// @Accept json
// @Produce json
// @Param id path int true "角色ID"
// @Param request body UpdateRequest true "更新角色请求"
// @Success 200 {object} response.Response
// @Router /roles/{id} [put]
func (c *Controller) Update(ctx *fiber.Ctx) error {
	id, _ := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if id == 0 {
		return response.BadRequest(ctx, "无效的角色ID")
	}

	var req UpdateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	role, err := c.update(ctx.UserContext(), gateway.ActorFromCtx(ctx), id, &req)
	if err != nil {
		return response.FromError(ctx, err)
	}

	return response.Success(ctx, role)
}

// update 更新角色业务逻辑
func (c *Controller) update(ctx context.Context, actor gateway.Actor, id int64, req *UpdateRequest) (*model.Role, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	role, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	if role == nil {
		return nil, errors.NotFound("角色")
	}
	if role.IsProtected() {
		return nil, errors.Protected("角色 " + role.Name)
	}

	before := *role
	if req.DisplayName != "" {
		role.DisplayName = req.DisplayName
	}
	if req.Description != "" {
		role.Description = req.Description
	}
	if req.IsActive != nil {
		role.IsActive = *req.IsActive
	}

	err = c.gw.Execute(ctx, actor, func(tx *gorm.DB) (*gateway.Mutation, error) {
		if err := tx.Save(role).Error; err != nil {
			return nil, err
		}
		return &gateway.Mutation{
			Action:       model.ActionUpdate,
			ResourceType: model.ResourceRole,
			ResourceID:   role.ID,
			Description:  "更新角色 " + role.Name,
			Before:       &before,
			After:        role,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return role, nil
}

// Delete 删除角色
// @Summary 删除角色
// @Tags 角色管理
// @Param id path int true "角色ID"
// @Success 200 {object} response.Response
// @Router /roles/{id} [delete]
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	id, _ := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if id == 0 {
		return response.BadRequest(ctx, "无效的角色ID")
	}

	if err := c.delete(ctx.UserContext(), gateway.ActorFromCtx(ctx), id); err != nil {
		return response.FromError(ctx, err)
	}

	return response.Success(ctx, nil)
}

// delete 删除角色业务逻辑：受保护角色与仍被用户持有的角色均不可删，
// 删除时级联清理该角色的全部授权行
func (c *Controller) delete(ctx context.Context, actor gateway.Actor, id int64) error {
	role, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return errors.WrapInternal(err)
	}
	if role == nil {
		return errors.NotFound("角色")
	}
	if role.IsProtected() {
		return errors.Protected("角色 " + role.Name)
	}

	userCount, err := c.repo.CountUsers(ctx, id)
	if err != nil {
		return errors.WrapInternal(err)
	}
	if userCount > 0 {
		return errors.Conflict(fmt.Sprintf("角色 %s 仍被 %d 个用户使用，无法删除", role.Name, userCount))
	}

	return c.gw.Execute(ctx, actor, func(tx *gorm.DB) (*gateway.Mutation, error) {
		if err := tx.Where("role_id = ?", id).Delete(&model.RoleMenuGrant{}).Error; err != nil {
			return nil, err
		}
		if err := tx.Where("role_id = ?", id).Delete(&model.RoleButtonGrant{}).Error; err != nil {
			return nil, err
		}
		// 物理删除：name 上有唯一索引，软删除的墓碑行会永久占用名称
		if err := tx.Unscoped().Delete(&model.Role{}, id).Error; err != nil {
			return nil, err
		}
		return &gateway.Mutation{
			Action:       model.ActionDelete,
			ResourceType: model.ResourceRole,
			ResourceID:   id,
			Description:  "删除角色 " + role.Name,
			Before:       role,
		}, nil
	})
}

// Get 获取角色详情
// @Summary 获取角色详情
// @Tags 角色管理
// @Param id path int true "角色ID"
// @Success 200 {object} response.Response
// @Router /roles/{id} [get]
func (c *Controller) Get(ctx *fiber.Ctx) error {
	id, _ := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if id == 0 {
		return response.BadRequest(ctx, "无效的角色ID")
	}

	role, err := c.repo.FindByID(ctx.UserContext(), id)
	if err != nil {
		return response.FromError(ctx, errors.WrapInternal(err))
	}
	if role == nil {
		return response.NotFound(ctx, "角色不存在")
	}

	role.UserCount, err = c.repo.CountUsers(ctx.UserContext(), id)
	if err != nil {
		return response.FromError(ctx, errors.WrapInternal(err))
	}

	return response.Success(ctx, role)
}

// List 角色列表
// @Summary 角色列表
// @Tags 角色管理
// @Param page query int false "页码"
// @Param pageSize query int false "每页数量"
// @Param search query string false "名称检索"
// @Param isActive query bool false "启用状态"
// @Success 200 {object} response.Response
// @Router /roles [get]
func (c *Controller) List(ctx *fiber.Ctx) error {
	var req ListRequest
	if err := ctx.QueryParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	result, err := c.list(ctx.UserContext(), &req)
	if err != nil {
		return response.FromError(ctx, err)
	}

	return response.SuccessPage(ctx, result.List, result.Total, result.Page, result.PageSize)
}

// list 角色列表业务逻辑
func (c *Controller) list(ctx context.Context, req *ListRequest) (*dal.PagedResult[model.Role], error) {
	pagination := dal.NewPagination(req.Page, req.PageSize)
	qb := dal.NewQueryBuilder[model.Role](c.repo.DB())

	if req.Search != "" {
		qb.Where("name LIKE ? OR display_name LIKE ?", "%"+req.Search+"%", "%"+req.Search+"%")
	}
	if req.IsActive != nil {
		qb.Where("is_active = ?", *req.IsActive)
	}

	qb.Order("id ASC")

	result, err := qb.Paged(ctx, pagination)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}

	// 填充各角色的用户数
	roleIDs := make([]int64, len(result.List))
	for i := range result.List {
		roleIDs[i] = result.List[i].ID
	}
	counts, err := c.repo.UserCounts(ctx, roleIDs)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	for i := range result.List {
		result.List[i].UserCount = counts[result.List[i].ID]
	}

	return result, nil
}

// BatchSetActive 批量启停角色
// @Summary 批量启停角色
// @Tags 角色管理
// @Accept json
// @Produce json
// @Param request body BatchActiveRequest true "批量启停请求"
// @Success 200 {object} response.Response
// @Router /roles/batch-active [put]
func (c *Controller) BatchSetActive(ctx *fiber.Ctx) error {
	var req BatchActiveRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	count, err := c.batchSetActive(ctx.UserContext(), gateway.ActorFromCtx(ctx), &req)
	if err != nil {
		return response.FromError(ctx, err)
	}

	return response.Success(ctx, fiber.Map{"count": count})
}

// batchSetActive 批量启停业务逻辑：单事务、单条审计记录(ResourceID=0)。
// 批次中包含受保护角色时整体拒绝
func (c *Controller) batchSetActive(ctx context.Context, actor gateway.Actor, req *BatchActiveRequest) (int64, error) {
	if err := validate.Struct(req); err != nil {
		return 0, err
	}

	roles, err := c.repo.FindAll(ctx, map[string]interface{}{}, dal.WithOrder("id ASC"))
	if err != nil {
		return 0, errors.WrapInternal(err)
	}
	byID := make(map[int64]*model.Role, len(roles))
	for i := range roles {
		byID[roles[i].ID] = &roles[i]
	}

	targets := make([]*model.Role, 0, len(req.RoleIDs))
	for _, id := range req.RoleIDs {
		role, ok := byID[id]
		if !ok {
			return 0, errors.Referential(fmt.Sprintf("角色 %d 不存在", id))
		}
		if role.IsProtected() {
			return 0, errors.Protected("角色 " + role.Name)
		}
		targets = append(targets, role)
	}

	before := make([]model.Role, len(targets))
	for i, r := range targets {
		before[i] = *r
	}

	var count int64
	err = c.gw.Execute(ctx, actor, func(tx *gorm.DB) (*gateway.Mutation, error) {
		res := tx.Model(&model.Role{}).
			Where("id IN ?", req.RoleIDs).
			Update("is_active", req.IsActive)
		if res.Error != nil {
			return nil, res.Error
		}
		count = res.RowsAffected

		after := make([]model.Role, len(targets))
		for i, r := range targets {
			after[i] = *r
			after[i].IsActive = req.IsActive
		}
		return &gateway.Mutation{
			Action:       model.ActionBatchUpdate,
			ResourceType: model.ResourceRole,
			ResourceID:   0,
			Description:  fmt.Sprintf("批量设置 %d 个角色启用状态为 %v", len(targets), req.IsActive),
			Before:       before,
			After:        after,
		}, nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

package button

import (
	"context"
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

// Controller 按钮权限控制器
type Controller struct {
	repo Repository
	gw   *gateway.Gateway
}

// NewController 创建按钮权限控制器
func NewController(repo Repository, gw *gateway.Gateway) *Controller {
	return &Controller{repo: repo, gw: gw}
}

// RegisterRoutes 注册路由，写操作额外要求管理角色
func (c *Controller) RegisterRoutes(r fiber.Router, jwtMiddleware, adminGuard fiber.Handler) {
	buttons := r.Group("/buttons", jwtMiddleware)
	buttons.Get("", c.List)
	buttons.Get("/:id<int>", c.Get)
	buttons.Post("", adminGuard, c.Create)
	buttons.Put("/:id<int>", adminGuard, c.Update)
	buttons.Delete("/:id<int>", adminGuard, c.Delete)
}

// Create 创建按钮权限
// @Summary 创建按钮权限
// @Tags 按钮权限管理
// @Accept json
// @Produce json
// @Param request body CreateRequest true "创建按钮权限请求"
// @Success 200 {object} response.Response
// @Router /buttons [post]
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	btn, err := c.create(ctx.UserContext(), gateway.ActorFromCtx(ctx), &req)
	if err != nil {
		return response.FromError(ctx, err)
	}

	return response.Success(ctx, btn)
}

// create 创建按钮权限业务逻辑
func (c *Controller) create(ctx context.Context, actor gateway.Actor, req *CreateRequest) (*model.ButtonPermission, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if !req.Category.Valid() {
		return nil, errors.Validation("无效的按钮分类: " + string(req.Category))
	}

	existing, err := c.repo.FindByName(ctx, req.Name)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	if existing != nil {
		return nil, errors.Duplicate("按钮权限名称")
	}

	btn := &model.ButtonPermission{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Category:    req.Category,
		IsActive:    true,
	}

	err = c.gw.Execute(ctx, actor, func(tx *gorm.DB) (*gateway.Mutation, error) {
		if err := tx.Create(btn).Error; err != nil {
			return nil, err
		}
		return &gateway.Mutation{
			Action:       model.ActionCreate,
			ResourceType: model.ResourceButton,
			ResourceID:   btn.ID,
			Description:  "创建按钮权限 " + btn.Name,
			After:        btn,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return btn, nil
}

// Update 更新按钮权限
// @Summary 更新按钮权限
// @Tags 按钮权限管理
// @Accept json
// @Produce json
// @Param id path int true "按钮权限ID"
// @Param request body UpdateRequest true "更新按钮权限请求"
// @Success 200 {object} response.Response
// @Router /buttons/{id} [put]
func (c *Controller) Update(ctx *fiber.Ctx) error {
	id, _ := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if id == 0 {
		return response.BadRequest(ctx, "无效的按钮权限ID")
	}

	var req UpdateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	btn, err := c.update(ctx.UserContext(), gateway.ActorFromCtx(ctx), id, &req)
	if err != nil {
		return response.FromError(ctx, err)
	}

	return response.Success(ctx, btn)
}

// update 更新按钮权限业务逻辑
func (c *Controller) update(ctx context.Context, actor gateway.Actor, id int64, req *UpdateRequest) (*model.ButtonPermission, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.Category != "" && !req.Category.Valid() {
		return nil, errors.Validation("无效的按钮分类: " + string(req.Category))
	}

	btn, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	if btn == nil {
		return nil, errors.NotFound("按钮权限")
	}

	before := *btn
	if req.DisplayName != "" {
		btn.DisplayName = req.DisplayName
	}
	if req.Category != "" {
		btn.Category = req.Category
	}
	if req.Description != "" {
		btn.Description = req.Description
	}
	if req.IsActive != nil {
		btn.IsActive = *req.IsActive
	}

	err = c.gw.Execute(ctx, actor, func(tx *gorm.DB) (*gateway.Mutation, error) {
		if err := tx.Save(btn).Error; err != nil {
			return nil, err
		}
		return &gateway.Mutation{
			Action:       model.ActionUpdate,
			ResourceType: model.ResourceButton,
			ResourceID:   btn.ID,
			Description:  "更新按钮权限 " + btn.Name,
			Before:       &before,
			After:        btn,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return btn, nil
}

// Delete 删除按钮权限
// @Summary 删除按钮权限
// @Tags 按钮权限管理
// @Param id path int true "按钮权限ID"
// @Success 200 {object} response.Response
// @Router /buttons/{id} [delete]
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	id, _ := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if id == 0 {
		return response.BadRequest(ctx, "无效的按钮权限ID")
	}

	if err := c.delete(ctx.UserContext(), gateway.ActorFromCtx(ctx), id); err != nil {
		return response.FromError(ctx, err)
	}

	return response.Success(ctx, nil)
}

// delete 删除按钮权限业务逻辑：连同各角色对它的授权行一并删除
func (c *Controller) delete(ctx context.Context, actor gateway.Actor, id int64) error {
	btn, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return errors.WrapInternal(err)
	}
	if btn == nil {
		return errors.NotFound("按钮权限")
	}

	return c.gw.Execute(ctx, actor, func(tx *gorm.DB) (*gateway.Mutation, error) {
		if err := tx.Where("button_id = ?", id).Delete(&model.RoleButtonGrant{}).Error; err != nil {
			return nil, err
		}
		// 物理删除：name 上有唯一索引，软删除的墓碑行会永久占用名称
		if err := tx.Unscoped().Delete(&model.ButtonPermission{}, id).Error; err != nil {
			return nil, err
		}
		return &gateway.Mutation{
			Action:       model.ActionDelete,
			ResourceType: model.ResourceButton,
			ResourceID:   id,
			Description:  "删除按钮权限 " + btn.Name,
			Before:       btn,
		}, nil
	})
}

// Get 获取按钮权限详情
// @Summary 获取按钮权限详情
// @Tags 按钮权限管理
// @Param id path int true "按钮权限ID"
// @Success 200 {object} response.Response
// @Router /buttons/{id} [get]
func (c *Controller) Get(ctx *fiber.Ctx) error {
	id, _ := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if id == 0 {
		return response.BadRequest(ctx, "无效的按钮权限ID")
	}

	btn, err := c.repo.FindByID(ctx.UserContext(), id)
	if err != nil {
		return response.FromError(ctx, errors.WrapInternal(err))
	}
	if btn == nil {
		return response.NotFound(ctx, "按钮权限不存在")
	}

	return response.Success(ctx, btn)
}

// List 按钮权限列表
// @Summary 按钮权限列表
// @Tags 按钮权限管理
// @Param page query int false "页码"
// @Param pageSize query int false "每页数量"
// @Param search query string false "名称检索"
// @Param category query string false "分类"
// @Param isActive query bool false "启用状态"
// @Success 200 {object} response.Response
// @Router /buttons [get]
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

// list 按钮权限列表业务逻辑
func (c *Controller) list(ctx context.Context, req *ListRequest) (*dal.PagedResult[model.ButtonPermission], error) {
	pagination := dal.NewPagination(req.Page, req.PageSize)
	qb := dal.NewQueryBuilder[model.ButtonPermission](c.repo.DB())

	if req.Search != "" {
		qb.Where("name LIKE ? OR display_name LIKE ?", "%"+req.Search+"%", "%"+req.Search+"%")
	}
	if req.Category != "" {
		qb.Where("category = ?", req.Category)
	}
	if req.IsActive != nil {
		qb.Where("is_active = ?", *req.IsActive)
	}

	qb.Order("id ASC")

	result, err := qb.Paged(ctx, pagination)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	return result, nil
}

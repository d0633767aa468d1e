package authz

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/permbase/internal/model"
	"github.com/permbase/pkg/errors"
	"github.com/permbase/pkg/response"
)

// UserPermissions 用户有效权限快照
type UserPermissions struct {
	UserID   int64         `json:"userId"`
	RoleID   int64         `json:"roleId"`
	RoleName string        `json:"roleName"`
	MenuTree []*model.Menu `json:"menuTree"`
	Buttons  []string      `json:"buttons"`
}

// Controller 鉴权控制器
type Controller struct {
	repo      Repository
	evaluator *Evaluator
}

// NewController 创建鉴权控制器
func NewController(repo Repository, evaluator *Evaluator) *Controller {
	return &Controller{repo: repo, evaluator: evaluator}
}

// RegisterRoutes 注册路由
func (c *Controller) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	r.Get("/users/:id<int>/permissions", jwtMiddleware, c.GetPermissions)
	r.Get("/users/:id<int>/permissions/check", jwtMiddleware, c.Check)
}

// GetPermissions 获取用户有效权限
// @Summary 获取用户有效权限
// @Tags 权限判定
// @Param id path int true "用户ID"
// @Success 200 {object} response.Response
// @Router /users/{id}/permissions [get]
func (c *Controller) GetPermissions(ctx *fiber.Ctx) error {
	id, _ := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if id == 0 {
		return response.BadRequest(ctx, "无效的用户ID")
	}

	user, err := c.repo.FindUser(ctx.UserContext(), id)
	if err != nil {
		return response.FromError(ctx, errors.WrapInternal(err))
	}
	if user == nil {
		return response.NotFound(ctx, "用户不存在")
	}

	result := &UserPermissions{
		UserID:   id,
		MenuTree: []*model.Menu{},
		Buttons:  []string{},
	}
	if user.Role != nil {
		result.RoleID = user.Role.ID
		result.RoleName = user.Role.Name
	}

	result.MenuTree, err = c.evaluator.EffectiveMenuTree(ctx.UserContext(), id)
	if err != nil {
		return response.FromError(ctx, err)
	}
	result.Buttons, err = c.evaluator.EffectiveButtons(ctx.UserContext(), id)
	if err != nil {
		return response.FromError(ctx, err)
	}

	return response.Success(ctx, result)
}

// Check 单点权限判定
// @Summary 单点权限判定
// @Tags 权限判定
// @Param id path int true "用户ID"
// @Param menuId query int false "菜单ID"
// @Param button query string false "按钮权限名称"
// @Success 200 {object} response.Response
// @Router /users/{id}/permissions/check [get]
func (c *Controller) Check(ctx *fiber.Ctx) error {
	id, _ := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if id == 0 {
		return response.BadRequest(ctx, "无效的用户ID")
	}

	menuID, _ := strconv.ParseInt(ctx.Query("menuId"), 10, 64)
	buttonName := ctx.Query("button")
	if menuID == 0 && buttonName == "" {
		return response.BadRequest(ctx, "menuId 与 button 至少传一个")
	}

	result := fiber.Map{}
	if menuID != 0 {
		allowed, err := c.evaluator.HasMenuAccess(ctx.UserContext(), id, menuID)
		if err != nil {
			return response.FromError(ctx, err)
		}
		result["menuAllowed"] = allowed
	}
	if buttonName != "" {
		allowed, err := c.evaluator.HasButtonAccess(ctx.UserContext(), id, buttonName)
		if err != nil {
			return response.FromError(ctx, err)
		}
		result["buttonAllowed"] = allowed
	}

	return response.Success(ctx, result)
}

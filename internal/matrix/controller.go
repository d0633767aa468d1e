package matrix

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/permbase/internal/gateway"
	"github.com/permbase/internal/model"
	"github.com/permbase/pkg/errors"
	"github.com/permbase/pkg/response"
	"github.com/permbase/pkg/utils"
	"github.com/permbase/pkg/validate"
	"gorm.io/gorm"
)

// Invalidator 授权缓存失效回调，授权集合变更后由矩阵模块触发
type Invalidator interface {
	InvalidateRole(ctx context.Context, roleID int64)
}

// Controller 授权矩阵控制器
type Controller struct {
	repo  Repository
	gw    *gateway.Gateway
	inv   Invalidator
	locks roleLocks
}

// NewController 创建授权矩阵控制器。inv 可为 nil（无缓存部署）
func NewController(repo Repository, gw *gateway.Gateway, inv Invalidator) *Controller {
	return &Controller{repo: repo, gw: gw, inv: inv}
}

// RegisterRoutes 注册路由，写操作额外要求管理角色
func (c *Controller) RegisterRoutes(r fiber.Router, jwtMiddleware, adminGuard fiber.Handler) {
	r.Get("/roles/:id<int>/grants", jwtMiddleware, c.GetGrants)
	r.Put("/roles/:id<int>/menus", jwtMiddleware, adminGuard, c.SetMenuGrants)
	r.Put("/roles/:id<int>/buttons", jwtMiddleware, adminGuard, c.SetButtonGrants)
	r.Put("/permission-matrix", jwtMiddleware, adminGuard, c.ApplyBatch)
}

// GetGrants 获取角色的有效授权集合
// @Summary 获取角色的有效授权集合
// @Tags 授权矩阵
// @Param id path int true "角色ID"
// @Success 200 {object} response.Response
// @Router /roles/{id}/grants [get]
func (c *Controller) GetGrants(ctx *fiber.Ctx) error {
	id, _ := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if id == 0 {
		return response.BadRequest(ctx, "无效的角色ID")
	}

	grants, err := c.getGrants(ctx.UserContext(), id)
	if err != nil {
		return response.FromError(ctx, err)
	}

	return response.Success(ctx, grants)
}

// getGrants 获取授权集合业务逻辑
func (c *Controller) getGrants(ctx context.Context, roleID int64) (*Grants, error) {
	role, err := c.repo.FindRole(ctx, roleID)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	if role == nil {
		return nil, errors.NotFound("角色")
	}

	menuIDs, err := c.repo.MenuGrantIDs(ctx, roleID)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	buttonIDs, err := c.repo.ButtonGrantIDs(ctx, roleID)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}

	return &Grants{
		RoleID:    roleID,
		MenuIDs:   emptyIfNil(menuIDs),
		ButtonIDs: emptyIfNil(buttonIDs),
	}, nil
}

// SetMenuGrants 全量替换角色菜单授权
// @Summary 全量替换角色菜单授权
// @Tags 授权矩阵
// @Accept json
// @Produce json
// @Param id path int true "角色ID"
// @Param request body SetMenuGrantsRequest true "目标菜单集合"
// @Success 200 {object} response.Response
// @Router /roles/{id}/menus [put]
func (c *Controller) SetMenuGrants(ctx *fiber.Ctx) error {
	id, _ := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if id == 0 {
		return response.BadRequest(ctx, "无效的角色ID")
	}

	var req SetMenuGrantsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	grants, err := c.setMenuGrants(ctx.UserContext(), gateway.ActorFromCtx(ctx), id, req.MenuIDs)
	if err != nil {
		return response.FromError(ctx, err)
	}

	return response.Success(ctx, grants)
}

// setMenuGrants 菜单授权替换业务逻辑：对目标集合与现有集合做对称差，
// 单事务内删除多余行、插入缺失行，结束状态与目标集合一致。
// 重复提交同一集合结束状态不变，但每次调用都各留一条审计记录
func (c *Controller) setMenuGrants(ctx context.Context, actor gateway.Actor, roleID int64, menuIDs []int64) (*Grants, error) {
	unlock := c.locks.Lock(roleID)
	defer unlock()

	role, err := c.repo.FindRole(ctx, roleID)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	if role == nil {
		return nil, errors.NotFound("角色")
	}

	target := utils.Unique(menuIDs)
	found, err := c.repo.ExistingMenuIDs(ctx, target)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	if missing := utils.Diff(target, found); len(missing) > 0 {
		return nil, errors.Referential(fmt.Sprintf("菜单 %v 不存在", missing))
	}

	current, err := c.repo.MenuGrantIDs(ctx, roleID)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}

	toAdd := utils.Diff(target, current)
	toRemove := utils.Diff(current, target)

	err = c.gw.Execute(ctx, actor, func(tx *gorm.DB) (*gateway.Mutation, error) {
		if len(toRemove) > 0 {
			if err := tx.Where("role_id = ? AND menu_id IN ?", roleID, toRemove).
				Delete(&model.RoleMenuGrant{}).Error; err != nil {
				return nil, err
			}
		}
		if len(toAdd) > 0 {
			rows := make([]model.RoleMenuGrant, len(toAdd))
			for i, menuID := range toAdd {
				rows[i] = model.RoleMenuGrant{RoleID: roleID, MenuID: menuID}
			}
			if err := tx.Create(&rows).Error; err != nil {
				return nil, err
			}
		}

		return &gateway.Mutation{
			Action:       grantAction(target),
			ResourceType: model.ResourceGrant,
			ResourceID:   roleID,
			Description: fmt.Sprintf("替换角色 %s 菜单授权：新增 %d 项，移除 %d 项",
				role.Name, len(toAdd), len(toRemove)),
			Before: fiber.Map{"roleId": roleID, "menuIds": sortedCopy(current)},
			After:  fiber.Map{"roleId": roleID, "menuIds": sortedCopy(target)},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if c.inv != nil {
		c.inv.InvalidateRole(ctx, roleID)
	}

	return c.getGrants(ctx, roleID)
}

// SetButtonGrants 全量替换角色按钮授权
// @Summary 全量替换角色按钮授权
// @Tags 授权矩阵
// @Accept json
// @Produce json
// @Param id path int true "角色ID"
// @Param request body SetButtonGrantsRequest true "目标按钮集合"
// @Success 200 {object} response.Response
// @Router /roles/{id}/buttons [put]
func (c *Controller) SetButtonGrants(ctx *fiber.Ctx) error {
	id, _ := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if id == 0 {
		return response.BadRequest(ctx, "无效的角色ID")
	}

	var req SetButtonGrantsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	grants, err := c.setButtonGrants(ctx.UserContext(), gateway.ActorFromCtx(ctx), id, req.ButtonIDs)
	if err != nil {
		return response.FromError(ctx, err)
	}

	return response.Success(ctx, grants)
}

// setButtonGrants 按钮授权替换业务逻辑，语义与菜单替换一致
func (c *Controller) setButtonGrants(ctx context.Context, actor gateway.Actor, roleID int64, buttonIDs []int64) (*Grants, error) {
	unlock := c.locks.Lock(roleID)
	defer unlock()

	role, err := c.repo.FindRole(ctx, roleID)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	if role == nil {
		return nil, errors.NotFound("角色")
	}

	target := utils.Unique(buttonIDs)
	found, err := c.repo.ExistingButtonIDs(ctx, target)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	if missing := utils.Diff(target, found); len(missing) > 0 {
		return nil, errors.Referential(fmt.Sprintf("按钮权限 %v 不存在", missing))
	}

	current, err := c.repo.ButtonGrantIDs(ctx, roleID)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}

	toAdd := utils.Diff(target, current)
	toRemove := utils.Diff(current, target)

	err = c.gw.Execute(ctx, actor, func(tx *gorm.DB) (*gateway.Mutation, error) {
		if len(toRemove) > 0 {
			if err := tx.Where("role_id = ? AND button_id IN ?", roleID, toRemove).
				Delete(&model.RoleButtonGrant{}).Error; err != nil {
				return nil, err
			}
		}
		if len(toAdd) > 0 {
			rows := make([]model.RoleButtonGrant, len(toAdd))
			for i, buttonID := range toAdd {
				rows[i] = model.RoleButtonGrant{RoleID: roleID, ButtonID: buttonID}
			}
			if err := tx.Create(&rows).Error; err != nil {
				return nil, err
			}
		}

		return &gateway.Mutation{
			Action:       grantAction(target),
			ResourceType: model.ResourceGrant,
			ResourceID:   roleID,
			Description: fmt.Sprintf("替换角色 %s 按钮授权：新增 %d 项，移除 %d 项",
				role.Name, len(toAdd), len(toRemove)),
			Before: fiber.Map{"roleId": roleID, "buttonIds": sortedCopy(current)},
			After:  fiber.Map{"roleId": roleID, "buttonIds": sortedCopy(target)},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if c.inv != nil {
		c.inv.InvalidateRole(ctx, roleID)
	}

	return c.getGrants(ctx, roleID)
}

// ApplyBatch 批量授权
// @Summary 批量授权
// @Tags 授权矩阵
// @Accept json
// @Produce json
// @Param request body BatchRequest true "批量授权请求"
// @Success 200 {object} response.Response
// @Router /permission-matrix [put]
func (c *Controller) ApplyBatch(ctx *fiber.Ctx) error {
	var req BatchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	results, err := c.applyBatch(ctx.UserContext(), gateway.ActorFromCtx(ctx), &req)
	if err != nil {
		return response.FromError(ctx, err)
	}

	return response.Success(ctx, results)
}

// applyBatch 批量授权业务逻辑：逐角色独立提交，单个角色失败
// 不影响其余角色，结果按条目返回
func (c *Controller) applyBatch(ctx context.Context, actor gateway.Actor, req *BatchRequest) ([]BatchResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	results := make([]BatchResult, 0, len(req.Items))
	for _, item := range req.Items {
		result := BatchResult{RoleID: item.RoleID, Success: true}

		if item.MenuIDs != nil {
			if _, err := c.setMenuGrants(ctx, actor, item.RoleID, *item.MenuIDs); err != nil {
				result.Success = false
				result.Error = errors.GetMessage(err)
			}
		}
		if result.Success && item.ButtonIDs != nil {
			if _, err := c.setButtonGrants(ctx, actor, item.RoleID, *item.ButtonIDs); err != nil {
				result.Success = false
				result.Error = errors.GetMessage(err)
			}
		}

		results = append(results, result)
	}

	return results, nil
}

// grantAction 非空目标集合记 ASSIGN，清空集合记 REVOKE
func grantAction(target []int64) model.AuditAction {
	if len(target) > 0 {
		return model.ActionAssign
	}
	return model.ActionRevoke
}

// sortedCopy 升序副本，保证审计快照串行化稳定
func sortedCopy(ids []int64) []int64 {
	cp := append([]int64(nil), ids...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	if cp == nil {
		cp = []int64{}
	}
	return cp
}

// emptyIfNil 空集合序列化为 [] 而非 null
func emptyIfNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

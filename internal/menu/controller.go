package menu

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

// Controller 菜单控制器
type Controller struct {
	repo Repository
	gw   *gateway.Gateway
}

// NewController 创建菜单控制器
func NewController(repo Repository, gw *gateway.Gateway) *Controller {
	return &Controller{repo: repo, gw: gw}
}

// RegisterRoutes 注册路由，写操作额外要求管理角色
func (c *Controller) RegisterRoutes(r fiber.Router, jwtMiddleware, adminGuard fiber.Handler) {
	menus := r.Group("/menus", jwtMiddleware)
	menus.Get("", c.List)
	menus.Get("/tree", c.GetTree)
	menus.Get("/:id<int>", c.Get)
	menus.Post("", adminGuard, c.Create)
	menus.Put("/:id<int>", adminGuard, c.Update)
	menus.Delete("/:id<int>", adminGuard, c.Delete)
}

// Create 创建菜单
// @Summary 创建菜单
// @Tags 菜单管理
// @Accept json
// @Produce json
// @Param request body CreateRequest true "创建菜单请求"
// @Success 200 {object} response.Response
// @Router /menus [post]
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	menu, err := c.create(ctx.UserContext(), gateway.ActorFromCtx(ctx), &req)
	if err != nil {
		return response.FromError(ctx, err)
	}

	return response.Success(ctx, menu)
}

// create 创建菜单业务逻辑：父节点必须已存在
func (c *Controller) create(ctx context.Context, actor gateway.Actor, req *CreateRequest) (*model.Menu, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	existing, err := c.repo.FindByName(ctx, req.Name)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	if existing != nil {
		return nil, errors.Duplicate("菜单名称")
	}

	if req.ParentID != nil {
		parent, err := c.repo.FindByID(ctx, *req.ParentID)
		if err != nil {
			return nil, errors.WrapInternal(err)
		}
		if parent == nil {
			return nil, errors.Referential("父菜单不存在")
		}
	}

	menu := &model.Menu{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Path:        req.Path,
		Icon:        req.Icon,
		ParentID:    req.ParentID,
		SortOrder:   req.SortOrder,
		IsActive:    true,
	}

	err = c.gw.Execute(ctx, actor, func(tx *gorm.DB) (*gateway.Mutation, error) {
		if err := tx.Create(menu).Error; err != nil {
			return nil, err
		}
		return &gateway.Mutation{
			Action:       model.ActionCreate,
			ResourceType: model.ResourceMenu,
			ResourceID:   menu.ID,
			Description:  "创建菜单 " + menu.Name,
			After:        menu,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return menu, nil
}

// Update 更新菜单
// @Summary 更新菜单
// @Tags 菜单管理
// @Accept json
// @Produce json
// @Param id path int true "菜单ID"
// @Param request body UpdateRequest true "更新菜单请求"
// @Success 200 {object} response.Response
// @Router /menus/{id} [put]
func (c *Controller) Update(ctx *fiber.Ctx) error {
	id, _ := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if id == 0 {
		return response.BadRequest(ctx, "无效的菜单ID")
	}

	var req UpdateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	menu, err := c.update(ctx.UserContext(), gateway.ActorFromCtx(ctx), id, &req)
	if err != nil {
		return response.FromError(ctx, err)
	}

	return response.Success(ctx, menu)
}

// update 更新菜单业务逻辑：换父节点时沿新父节点的祖先链回溯，
// 链上出现自身即会成环，整体拒绝
func (c *Controller) update(ctx context.Context, actor gateway.Actor, id int64, req *UpdateRequest) (*model.Menu, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	menu, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	if menu == nil {
		return nil, errors.NotFound("菜单")
	}

	before := *menu
	if req.DisplayName != "" {
		menu.DisplayName = req.DisplayName
	}
	if req.Path != "" {
		menu.Path = req.Path
	}
	if req.Icon != "" {
		menu.Icon = req.Icon
	}
	if req.SortOrder != nil {
		menu.SortOrder = *req.SortOrder
	}
	if req.IsActive != nil {
		menu.IsActive = *req.IsActive
	}

	if req.ParentID != nil {
		newParent := *req.ParentID
		switch {
		case newParent == 0:
			// 0 为哨兵值，表示移动到顶层
			menu.ParentID = nil
		case newParent == id:
			return nil, errors.Referential("菜单不能作为自身的父节点")
		default:
			all, err := c.repo.LoadAll(ctx)
			if err != nil {
				return nil, errors.WrapInternal(err)
			}
			ix := NewIndex(all)
			if ix.Get(newParent) == nil {
				return nil, errors.Referential("父菜单不存在")
			}
			if ix.OnAncestorChain(newParent, id) {
				return nil, errors.Referential("不能将菜单移动到其子树内")
			}
			menu.ParentID = req.ParentID
		}
	}

	err = c.gw.Execute(ctx, actor, func(tx *gorm.DB) (*gateway.Mutation, error) {
		if err := tx.Save(menu).Error; err != nil {
			return nil, err
		}
		return &gateway.Mutation{
			Action:       model.ActionUpdate,
			ResourceType: model.ResourceMenu,
			ResourceID:   menu.ID,
			Description:  "更新菜单 " + menu.Name,
			Before:       &before,
			After:        menu,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return menu, nil
}

// Delete 删除菜单
// @Summary 删除菜单
// @Tags 菜单管理
// @Param id path int true "菜单ID"
// @Success 200 {object} response.Response
// @Router /menus/{id} [delete]
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	id, _ := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if id == 0 {
		return response.BadRequest(ctx, "无效的菜单ID")
	}

	if err := c.delete(ctx.UserContext(), gateway.ActorFromCtx(ctx), id); err != nil {
		return response.FromError(ctx, err)
	}

	return response.Success(ctx, nil)
}

// delete 删除菜单业务逻辑：广度优先收集整棵子树，连同各节点的
// 授权行在单事务内一并删除
func (c *Controller) delete(ctx context.Context, actor gateway.Actor, id int64) error {
	menu, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return errors.WrapInternal(err)
	}
	if menu == nil {
		return errors.NotFound("菜单")
	}

	return c.gw.Execute(ctx, actor, func(tx *gorm.DB) (*gateway.Mutation, error) {
		var all []model.Menu
		if err := tx.Order("sort_order ASC, id ASC").Find(&all).Error; err != nil {
			return nil, err
		}
		ix := NewIndex(all)
		targetIDs := append(ix.Descendants(id), id)

		if err := tx.Where("menu_id IN ?", targetIDs).Delete(&model.RoleMenuGrant{}).Error; err != nil {
			return nil, err
		}
		// 物理删除：name 上有唯一索引，软删除的墓碑行会永久占用名称
		if err := tx.Unscoped().Where("id IN ?", targetIDs).Delete(&model.Menu{}).Error; err != nil {
			return nil, err
		}

		return &gateway.Mutation{
			Action:       model.ActionDelete,
			ResourceType: model.ResourceMenu,
			ResourceID:   id,
			Description:  "删除菜单 " + menu.Name + " 及其子树",
			Before:       fiber.Map{"menu": menu, "deletedIds": targetIDs},
		}, nil
	})
}

// Get 获取菜单详情
// @Summary 获取菜单详情
// @Tags 菜单管理
// @Param id path int true "菜单ID"
// @Success 200 {object} response.Response
// @Router /menus/{id} [get]
func (c *Controller) Get(ctx *fiber.Ctx) error {
	id, _ := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if id == 0 {
		return response.BadRequest(ctx, "无效的菜单ID")
	}

	menu, err := c.repo.FindByID(ctx.UserContext(), id)
	if err != nil {
		return response.FromError(ctx, errors.WrapInternal(err))
	}
	if menu == nil {
		return response.NotFound(ctx, "菜单不存在")
	}

	return response.Success(ctx, menu)
}

// List 菜单列表
// @Summary 菜单列表
// @Tags 菜单管理
// @Param page query int false "页码"
// @Param pageSize query int false "每页数量"
// @Param search query string false "名称检索"
// @Param isActive query bool false "启用状态"
// @Success 200 {object} response.Response
// @Router /menus [get]
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

// list 菜单列表业务逻辑
func (c *Controller) list(ctx context.Context, req *ListRequest) (*dal.PagedResult[model.Menu], error) {
	pagination := dal.NewPagination(req.Page, req.PageSize)
	qb := dal.NewQueryBuilder[model.Menu](c.repo.DB())

	if req.Search != "" {
		qb.Where("name LIKE ? OR display_name LIKE ?", "%"+req.Search+"%", "%"+req.Search+"%")
	}
	if req.IsActive != nil {
		qb.Where("is_active = ?", *req.IsActive)
	}

	qb.Order("sort_order ASC, id ASC")

	result, err := qb.Paged(ctx, pagination)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	return result, nil
}

// GetTree 获取完整菜单树
// @Summary 获取完整菜单树
// @Tags 菜单管理
// @Success 200 {object} response.Response
// @Router /menus/tree [get]
func (c *Controller) GetTree(ctx *fiber.Ctx) error {
	all, err := c.repo.LoadAll(ctx.UserContext())
	if err != nil {
		return response.FromError(ctx, errors.WrapInternal(err))
	}

	return response.Success(ctx, NewIndex(all).Tree())
}

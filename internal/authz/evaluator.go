package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/permbase/internal/menu"
	"github.com/permbase/internal/model"
	"github.com/permbase/pkg/database"
	"github.com/permbase/pkg/errors"
	"github.com/permbase/pkg/logger"
	"github.com/permbase/pkg/utils"
)

// cacheTTL 授权集合缓存时长。写路径会主动删除缓存，
// TTL 只兜底多实例部署下的漂移窗口
const cacheTTL = 60 * time.Second

// roleGrants 角色授权集合的缓存载荷
type roleGrants struct {
	MenuIDs   []int64 `json:"menuIds"`
	ButtonIDs []int64 `json:"buttonIds"`
}

// Evaluator 权限判定器。一切判定失败路径（用户不存在、用户停用、
// 角色缺失或停用、资源停用）统一落到拒绝，而不是报错放行
type Evaluator struct {
	repo  Repository
	cache *database.Cache
}

// NewEvaluator 创建权限判定器。cache 可为 nil（无缓存部署）
func NewEvaluator(repo Repository, cache *database.Cache) *Evaluator {
	return &Evaluator{repo: repo, cache: cache}
}

// resolveRole 解析用户的有效角色。任何缺失或停用都返回 nil（拒绝）
func (e *Evaluator) resolveRole(ctx context.Context, userID int64) (*model.Role, error) {
	user, err := e.repo.FindUser(ctx, userID)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	if user == nil || !user.IsActive {
		return nil, nil
	}
	if user.Role == nil || !user.Role.IsActive {
		return nil, nil
	}
	return user.Role, nil
}

// grants 取角色授权集合，优先读缓存
func (e *Evaluator) grants(ctx context.Context, roleID int64) (*roleGrants, error) {
	key := fmt.Sprintf("role:%d", roleID)

	if e.cache != nil {
		if raw, err := e.cache.Get(ctx, key); err == nil {
			var cached roleGrants
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	menuIDs, err := e.repo.MenuGrantIDs(ctx, roleID)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	buttonIDs, err := e.repo.ButtonGrantIDs(ctx, roleID)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}

	result := &roleGrants{MenuIDs: menuIDs, ButtonIDs: buttonIDs}

	if e.cache != nil {
		if raw, err := json.Marshal(result); err == nil {
			if err := e.cache.Set(ctx, key, raw, cacheTTL); err != nil {
				logger.Warnf("写入授权缓存失败: %v", err)
			}
		}
	}

	return result, nil
}

// InvalidateRole 删除角色的授权缓存，授权集合变更后调用
func (e *Evaluator) InvalidateRole(ctx context.Context, roleID int64) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Del(ctx, fmt.Sprintf("role:%d", roleID)); err != nil {
		logger.Warnf("删除授权缓存失败: %v", err)
	}
}

// HasMenuAccess 判定用户对菜单的访问权
func (e *Evaluator) HasMenuAccess(ctx context.Context, userID, menuID int64) (bool, error) {
	role, err := e.resolveRole(ctx, userID)
	if err != nil {
		return false, err
	}
	if role == nil {
		return false, nil
	}

	m, err := e.repo.FindMenu(ctx, menuID)
	if err != nil {
		return false, errors.WrapInternal(err)
	}
	if m == nil || !m.IsActive {
		return false, nil
	}

	g, err := e.grants(ctx, role.ID)
	if err != nil {
		return false, err
	}
	return utils.Contains(g.MenuIDs, menuID), nil
}

// HasButtonAccess 判定用户对按钮权限的访问权，按钮以名称定位
func (e *Evaluator) HasButtonAccess(ctx context.Context, userID int64, buttonName string) (bool, error) {
	role, err := e.resolveRole(ctx, userID)
	if err != nil {
		return false, err
	}
	if role == nil {
		return false, nil
	}

	btn, err := e.repo.FindButtonByName(ctx, buttonName)
	if err != nil {
		return false, errors.WrapInternal(err)
	}
	if btn == nil || !btn.IsActive {
		return false, nil
	}

	g, err := e.grants(ctx, role.ID)
	if err != nil {
		return false, err
	}
	return utils.Contains(g.ButtonIDs, btn.ID), nil
}

// EffectiveMenuTree 用户的有效菜单树：仅保留启用且已授权的节点，
// 未授权节点连同子树剪除。无有效角色时返回空树
func (e *Evaluator) EffectiveMenuTree(ctx context.Context, userID int64) ([]*model.Menu, error) {
	role, err := e.resolveRole(ctx, userID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return []*model.Menu{}, nil
	}

	g, err := e.grants(ctx, role.ID)
	if err != nil {
		return nil, err
	}

	menus, err := e.repo.LoadActiveMenus(ctx)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}

	granted := make(map[int64]struct{}, len(g.MenuIDs))
	for _, id := range g.MenuIDs {
		granted[id] = struct{}{}
	}

	tree := menu.NewIndex(menus).Prune(granted)
	if tree == nil {
		tree = []*model.Menu{}
	}
	return tree, nil
}

// EffectiveButtons 用户可用的按钮权限名称集合，升序。
// 无有效角色时返回空集合
func (e *Evaluator) EffectiveButtons(ctx context.Context, userID int64) ([]string, error) {
	role, err := e.resolveRole(ctx, userID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return []string{}, nil
	}

	g, err := e.grants(ctx, role.ID)
	if err != nil {
		return nil, err
	}

	names, err := e.repo.ActiveButtonNames(ctx, g.ButtonIDs)
	if err != nil {
		return nil, errors.WrapInternal(err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

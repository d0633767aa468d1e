package menu

import (
	"sort"

	"github.com/permbase/internal/model"
)

// Index 菜单树索引。一次全量扫描构建 id→节点 与 父→子 两个索引，
// 之后的树构建/祖先回溯/子树收集都在索引上完成，
// 不再对每个节点重复扫描或递归查询
type Index struct {
	nodes    map[int64]*model.Menu
	children map[int64][]*model.Menu
	roots    []*model.Menu
}

// NewIndex 从全量菜单行构建索引，兄弟节点按 SortOrder、ID 排序
func NewIndex(menus []model.Menu) *Index {
	ix := &Index{
		nodes:    make(map[int64]*model.Menu, len(menus)),
		children: make(map[int64][]*model.Menu),
	}

	for i := range menus {
		node := menus[i]
		node.Children = nil
		ix.nodes[node.ID] = &node
	}

	for _, node := range ix.nodes {
		if node.ParentID == nil {
			ix.roots = append(ix.roots, node)
			continue
		}
		if _, ok := ix.nodes[*node.ParentID]; !ok {
			// 父节点不在集合内（被停用或已删除）时按根节点处理
			ix.roots = append(ix.roots, node)
			continue
		}
		ix.children[*node.ParentID] = append(ix.children[*node.ParentID], node)
	}

	sortNodes(ix.roots)
	for _, siblings := range ix.children {
		sortNodes(siblings)
	}

	return ix
}

// sortNodes 按 SortOrder、ID 排序
func sortNodes(nodes []*model.Menu) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].ID < nodes[j].ID
	})
}

// Get 根据ID取节点
func (ix *Index) Get(id int64) *model.Menu {
	return ix.nodes[id]
}

// Tree 构建完整菜单树，返回根节点列表
func (ix *Index) Tree() []*model.Menu {
	for id, node := range ix.nodes {
		node.Children = ix.children[id]
	}
	return ix.roots
}

// Descendants 广度优先收集 id 的全部后代（不含自身）
func (ix *Index) Descendants(id int64) []int64 {
	var result []int64
	queue := append([]int64(nil), id)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range ix.children[cur] {
			result = append(result, child.ID)
			queue = append(queue, child.ID)
		}
	}
	return result
}

// OnAncestorChain 检查 id 是否出现在以 startID 为起点的祖先链上。
// visited 集合保证即使存量数据已成环回溯也有界
func (ix *Index) OnAncestorChain(startID, id int64) bool {
	visited := make(map[int64]struct{})
	cur := startID
	for {
		if cur == id {
			return true
		}
		if _, seen := visited[cur]; seen {
			return false
		}
		visited[cur] = struct{}{}

		node := ix.nodes[cur]
		if node == nil || node.ParentID == nil {
			return false
		}
		cur = *node.ParentID
	}
}

// Prune 构建仅含授权节点的菜单树。未授权节点连同其子树一并剪除，
// 即未授权的父节点会在导航中隐藏其已授权的子节点
func (ix *Index) Prune(granted map[int64]struct{}) []*model.Menu {
	var build func(nodes []*model.Menu) []*model.Menu
	build = func(nodes []*model.Menu) []*model.Menu {
		result := make([]*model.Menu, 0, len(nodes))
		for _, node := range nodes {
			if _, ok := granted[node.ID]; !ok {
				continue
			}
			cp := *node
			cp.Children = build(ix.children[node.ID])
			result = append(result, &cp)
		}
		return result
	}
	return build(ix.roots)
}

package matrix

import "sync"

const lockStripes = 64

// roleLocks 按角色ID取模的条带互斥锁。同一角色的全量替换串行执行，
// 不同角色（绝大多数情况落在不同条带）可并行
type roleLocks struct {
	stripes [lockStripes]sync.Mutex
}

// Lock 锁定角色所在条带，返回解锁函数
func (l *roleLocks) Lock(roleID int64) func() {
	stripe := &l.stripes[uint64(roleID)%lockStripes]
	stripe.Lock()
	return stripe.Unlock
}

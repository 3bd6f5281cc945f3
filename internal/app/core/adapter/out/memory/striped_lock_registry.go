package memory

import (
	"github.com/JoeShih716/go-point-ledger/internal/app/core/usecase"
)

// DefaultLockStripes StripedLockRegistry 的預設分段數
const DefaultLockStripes = 256

// StripedLockRegistry 固定數量的鎖，userID % stripes 決定使用哪一把
// 記憶體不隨使用者數量成長，代價是落在同一段的不同使用者會互相等待
type StripedLockRegistry struct {
	stripes []*userLock
}

// NewStripedLockRegistry 建立分段鎖，stripes <= 0 時使用 DefaultLockStripes
func NewStripedLockRegistry(stripes int) *StripedLockRegistry {
	if stripes <= 0 {
		stripes = DefaultLockStripes
	}
	r := &StripedLockRegistry{stripes: make([]*userLock, stripes)}
	for i := range r.stripes {
		r.stripes[i] = newUserLock()
	}
	return r
}

// Acquire 取得使用者所屬分段的鎖
func (r *StripedLockRegistry) Acquire(userID uint64) usecase.UserLock {
	return r.stripes[userID%uint64(len(r.stripes))]
}

// Len 分段數量
func (r *StripedLockRegistry) Len() int {
	return len(r.stripes)
}

var _ usecase.LockRegistry = (*StripedLockRegistry)(nil)

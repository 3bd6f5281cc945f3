package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/JoeShih716/go-point-ledger/internal/app/core/usecase"
)

// userLock 以容量 1 的 channel 實作的互斥鎖，可以配合 ctx 放棄等待
// 不可重入：持有者再次 Lock 會等到 ctx 結束
type userLock struct {
	sem chan struct{}
}

func newUserLock() *userLock {
	return &userLock{sem: make(chan struct{}, 1)}
}

// Lock 取得鎖，ctx 結束前拿不到則回傳 ctx.Err()
func (l *userLock) Lock(ctx context.Context) error {
	// Fast path: 沒有競爭時直接拿到
	select {
	case l.sem <- struct{}{}:
		return nil
	default:
	}

	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unlock 釋放鎖，釋放未持有的鎖視為程式錯誤
func (l *userLock) Unlock() {
	select {
	case <-l.sem:
	default:
		panic("memory: unlock of unlocked user lock")
	}
}

// LockRegistry 每個使用者 ID 一把鎖，第一次使用時建立，之後不會移除
//
// 結構:
//
//	locks: 使用者 ID 對應 *userLock
//	count: 已建立的鎖數量
type LockRegistry struct {
	locks sync.Map // map[uint64]*userLock
	count atomic.Int64
}

// NewLockRegistry 建立一個新的 LockRegistry 實例
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{}
}

// Acquire 取得使用者的鎖 (只是拿到鎖物件，尚未上鎖)
// 多個 goroutine 同時第一次要求同一個 ID 時，LoadOrStore 保證大家拿到同一個實例
func (r *LockRegistry) Acquire(userID uint64) usecase.UserLock {
	// 1. Fast path，已存在就不配置新物件
	if v, ok := r.locks.Load(userID); ok {
		return v.(*userLock)
	}

	// 2. 原子性的 create-if-absent，輸掉的那一方丟棄自己建立的鎖
	v, loaded := r.locks.LoadOrStore(userID, newUserLock())
	if !loaded {
		r.count.Add(1)
	}
	return v.(*userLock)
}

// Len 已建立的鎖數量
func (r *LockRegistry) Len() int {
	return int(r.count.Load())
}

var _ usecase.LockRegistry = (*LockRegistry)(nil)

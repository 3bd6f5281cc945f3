package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JoeShih716/go-point-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-point-ledger/internal/app/core/usecase"
)

// BalanceStore 記憶體版的餘額儲存
//
// 結構:
//
//	points: 使用者 ID 對應 domain.UserPoint (值型別，寫入後不再修改)
//	count: 已寫入過的使用者數量
//	now: 時間來源，測試時可替換
type BalanceStore struct {
	points sync.Map // map[uint64]domain.UserPoint
	count  atomic.Int64
	now    func() time.Time
}

// BalanceStoreOption 定義 BalanceStore 的配置選項函數
type BalanceStoreOption func(*BalanceStore)

// WithClock 替換時間來源
func WithClock(now func() time.Time) BalanceStoreOption {
	return func(s *BalanceStore) {
		s.now = now
	}
}

// NewBalanceStore 建立一個新的 BalanceStore 實例
func NewBalanceStore(opts ...BalanceStoreOption) *BalanceStore {
	s := &BalanceStore{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get 取得使用者目前餘額
//
// 參數:
//
//	ctx: 上下文
//	userID: 使用者 ID
//
// 回傳:
//
//	domain.UserPoint: 目前餘額，未寫入過則為 0 點且時間戳為現在
func (s *BalanceStore) Get(_ context.Context, userID uint64) domain.UserPoint {
	if v, ok := s.points.Load(userID); ok {
		return v.(domain.UserPoint)
	}
	return domain.EmptyUserPoint(userID, s.now())
}

// Upsert 覆寫使用者餘額 (不做範圍檢查)
//
// 參數:
//
//	ctx: 上下文
//	userID: 使用者 ID
//	point: 新的點數
//
// 回傳:
//
//	domain.UserPoint: 寫入後的餘額
func (s *BalanceStore) Upsert(_ context.Context, userID uint64, point int64) domain.UserPoint {
	p := domain.UserPoint{
		UserID:       userID,
		Point:        point,
		UpdateMillis: s.now().UnixMilli(),
	}
	if _, loaded := s.points.Swap(userID, p); !loaded {
		s.count.Add(1)
	}
	return p
}

// Len 已寫入過餘額的使用者數量
func (s *BalanceStore) Len() int {
	return int(s.count.Load())
}

var _ usecase.BalanceStore = (*BalanceStore)(nil)

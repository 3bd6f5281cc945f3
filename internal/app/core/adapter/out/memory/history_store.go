package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/JoeShih716/go-point-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-point-ledger/internal/app/core/usecase"
)

// HistoryStore 記憶體版的交易紀錄，只能新增
//
// 結構:
//
//	users: 使用者 ID 對應該使用者的紀錄列表
//	lastID: 最後分配的交易序號 (跨使用者共用)
//	total: 紀錄總筆數
type HistoryStore struct {
	users  sync.Map // map[uint64]*userHistory
	lastID atomic.Uint64
	total  atomic.Int64
}

// userHistory 單一使用者的紀錄，各自一把鎖，不同使用者互不阻塞
type userHistory struct {
	mu      sync.RWMutex
	records []domain.PointHistory
}

// NewHistoryStore 建立一個新的 HistoryStore 實例
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// Append 新增一筆交易紀錄
//
// 參數:
//
//	ctx: 上下文
//	userID: 使用者 ID
//	amount: 異動量 (正數)
//	txType: 交易類型
//	updateMillis: 對應餘額的更新時間
//
// 回傳:
//
//	domain.PointHistory: 寫入的紀錄 (含分配到的序號)
func (s *HistoryStore) Append(_ context.Context, userID uint64, amount int64, txType domain.TransactionType, updateMillis int64) domain.PointHistory {
	h := s.userHistory(userID)

	h.mu.Lock()
	defer h.mu.Unlock()

	// 在使用者鎖內分配序號，確保同一使用者的列表依序號遞增
	record := domain.PointHistory{
		ID:           s.lastID.Add(1),
		UserID:       userID,
		Amount:       amount,
		UpdateMillis: updateMillis,
		Type:         txType,
	}
	h.records = append(h.records, record)
	s.total.Add(1)
	return record
}

// ListByUser 依寫入順序回傳使用者的紀錄副本，沒有紀錄時回傳空列表
func (s *HistoryStore) ListByUser(_ context.Context, userID uint64) []domain.PointHistory {
	v, ok := s.users.Load(userID)
	if !ok {
		return []domain.PointHistory{}
	}
	h := v.(*userHistory)

	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]domain.PointHistory, len(h.records))
	copy(result, h.records)
	return result
}

// Len 紀錄總筆數
func (s *HistoryStore) Len() int {
	return int(s.total.Load())
}

// userHistory 取得或建立使用者的紀錄列表
func (s *HistoryStore) userHistory(userID uint64) *userHistory {
	// Fast path
	if v, ok := s.users.Load(userID); ok {
		return v.(*userHistory)
	}
	v, _ := s.users.LoadOrStore(userID, &userHistory{})
	return v.(*userHistory)
}

var _ usecase.HistoryStore = (*HistoryStore)(nil)

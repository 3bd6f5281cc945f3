package usecase

import (
	"context"

	"github.com/JoeShih716/go-point-ledger/internal/app/core/domain"
)

// BalanceStore 保存每個使用者目前的點數
// 不做範圍檢查，驗證由 PointUseCase 負責
type BalanceStore interface {
	// Get 取得目前餘額，未寫入過的使用者回傳 0 點
	Get(ctx context.Context, userID uint64) domain.UserPoint
	// Upsert 以新點數覆寫 (或建立) 餘額，並更新時間戳
	Upsert(ctx context.Context, userID uint64, point int64) domain.UserPoint
}

// HistoryStore 只允許新增的交易紀錄
type HistoryStore interface {
	// Append 分配下一個交易序號並寫入
	Append(ctx context.Context, userID uint64, amount int64, txType domain.TransactionType, updateMillis int64) domain.PointHistory
	// ListByUser 依寫入順序回傳該使用者的所有紀錄
	ListByUser(ctx context.Context, userID uint64) []domain.PointHistory
}

// UserLock 單一使用者的互斥鎖
type UserLock interface {
	// Lock 等待取得鎖，ctx 結束時放棄並回傳 ctx.Err()
	Lock(ctx context.Context) error
	Unlock()
}

// LockRegistry 依使用者 ID 發放鎖，同一個 ID 永遠拿到同一把鎖
type LockRegistry interface {
	Acquire(userID uint64) UserLock
}

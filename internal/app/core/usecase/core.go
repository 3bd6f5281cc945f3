package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-point-ledger/internal/app/core/domain"
)

// PointUseCase 是核心業務邏輯層
//
// 結構:
//
//	balances: 餘額儲存
//	histories: 交易紀錄儲存
//	locks: 使用者鎖
//	lockTimeout: 等待鎖的上限，0 表示一直等
type PointUseCase struct {
	balances    BalanceStore
	histories   HistoryStore
	locks       LockRegistry
	lockTimeout time.Duration
	logger      zerolog.Logger
}

// Option 設定 PointUseCase 的選項函數
type Option func(*PointUseCase)

// WithLockTimeout 設定等待使用者鎖的上限
func WithLockTimeout(d time.Duration) Option {
	return func(u *PointUseCase) {
		u.lockTimeout = d
	}
}

// WithLogger 設定 Logger
func WithLogger(logger zerolog.Logger) Option {
	return func(u *PointUseCase) {
		u.logger = logger
	}
}

func NewPointUseCase(balances BalanceStore, histories HistoryStore, locks LockRegistry, opts ...Option) *PointUseCase {
	u := &PointUseCase{
		balances:  balances,
		histories: histories,
		locks:     locks,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Charge 充值點數
//
// 參數:
//
//	ctx: 上下文
//	userID: 使用者 ID
//	amount: 充值金額 (必須 > 0)
//
// 回傳:
//
//	domain.UserPoint: 充值後的餘額
//	error: ErrInvalidAmount, ErrBalanceLimitExceeded, ErrLockTimeout
func (u *PointUseCase) Charge(ctx context.Context, userID uint64, amount int64) (domain.UserPoint, error) {
	return u.postTransaction(ctx, userID, domain.TransactionTypeCharge, amount)
}

// Use 使用 (扣除) 點數
//
// 參數:
//
//	ctx: 上下文
//	userID: 使用者 ID
//	amount: 扣點金額 (必須 > 0)
//
// 回傳:
//
//	domain.UserPoint: 扣點後的餘額
//	error: ErrInvalidAmount, ErrInsufficientBalance, ErrLockTimeout
func (u *PointUseCase) Use(ctx context.Context, userID uint64, amount int64) (domain.UserPoint, error) {
	return u.postTransaction(ctx, userID, domain.TransactionTypeUse, amount)
}

// GetBalance 取得使用者餘額，不需要鎖
func (u *PointUseCase) GetBalance(ctx context.Context, userID uint64) domain.UserPoint {
	return u.balances.Get(ctx, userID)
}

// GetHistory 取得使用者交易紀錄，最新的在前面
func (u *PointUseCase) GetHistory(ctx context.Context, userID uint64) []domain.PointHistory {
	histories := u.histories.ListByUser(ctx, userID)
	slices.SortFunc(histories, func(a, b domain.PointHistory) int {
		return cmp.Compare(b.ID, a.ID)
	})
	return histories
}

// postTransaction 在使用者鎖內執行 讀取 -> 驗證 -> 寫入 -> 記錄
// 任何一步失敗都不會留下部分寫入
func (u *PointUseCase) postTransaction(ctx context.Context, userID uint64, txType domain.TransactionType, amount int64) (domain.UserPoint, error) {
	if amount <= 0 {
		u.logger.Warn().
			Uint64("user_id", userID).
			Stringer("type", txType).
			Int64("amount", amount).
			Msg("rejected non-positive amount")
		return domain.UserPoint{}, domain.ErrInvalidAmount
	}

	lock := u.locks.Acquire(userID)
	if err := u.acquire(ctx, lock); err != nil {
		u.logger.Warn().Err(err).
			Uint64("user_id", userID).
			Stringer("type", txType).
			Msg("failed to acquire user lock")
		return domain.UserPoint{}, err
	}
	defer lock.Unlock()

	// 1. 讀取目前餘額
	current := u.balances.Get(ctx, userID)

	// 2. 計算候選值並驗證業務規則
	next, err := current.Apply(txType, amount)
	if err != nil {
		u.logger.Warn().Err(err).
			Uint64("user_id", userID).
			Stringer("type", txType).
			Str("amount", domain.FormatPoints(amount)).
			Str("balance", domain.FormatPoints(current.Point)).
			Msg("transaction rejected")
		return domain.UserPoint{}, err
	}
	if err := domain.ValidatePoint(next); err != nil {
		return domain.UserPoint{}, fmt.Errorf("user %d candidate point %d: %w", userID, next, err)
	}

	// 3. 寫入餘額
	updated := u.balances.Upsert(ctx, userID, next)

	// 4. 記錄交易
	history := u.histories.Append(ctx, userID, amount, txType, updated.UpdateMillis)

	u.logger.Info().
		Uint64("user_id", userID).
		Uint64("tx_id", history.ID).
		Stringer("type", txType).
		Str("amount", domain.FormatPoints(amount)).
		Str("point", domain.FormatPoints(updated.Point)).
		Msg("transaction accepted")

	return updated, nil
}

// acquire 取得使用者鎖，超過 lockTimeout 回傳 ErrLockTimeout
func (u *PointUseCase) acquire(ctx context.Context, lock UserLock) error {
	if u.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.lockTimeout)
		defer cancel()
	}
	if err := lock.Lock(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.ErrLockTimeout
		}
		return err
	}
	return nil
}

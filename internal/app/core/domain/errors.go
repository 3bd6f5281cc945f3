package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount 金額必須為正數
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientBalance 餘額不足
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrBalanceLimitExceeded 充值後超過點數上限
	ErrBalanceLimitExceeded = errors.New("balance limit exceeded")

	// ErrBalanceOutOfRange 點數不在 [0, MaxPoint]，屬於程式錯誤
	ErrBalanceOutOfRange = errors.New("balance out of range")

	// ErrLockTimeout 等待使用者鎖逾時
	ErrLockTimeout = errors.New("lock acquisition timed out")

	// ErrInvalidTransactionType 未知的交易類型
	ErrInvalidTransactionType = errors.New("invalid transaction type")
)

// InsufficientBalanceError 帶有餘額資訊的餘額不足錯誤
type InsufficientBalanceError struct {
	UserID    uint64
	Balance   int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: user %d has %s, requested %s",
		e.UserID, FormatPoints(e.Balance), FormatPoints(e.Requested))
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// BalanceLimitError 充值會讓餘額超過上限
type BalanceLimitError struct {
	UserID    uint64
	Balance   int64
	Requested int64
	Limit     int64
}

func (e *BalanceLimitError) Error() string {
	return fmt.Sprintf("balance limit exceeded: user %d has %s, charge %s, limit %s",
		e.UserID, FormatPoints(e.Balance), FormatPoints(e.Requested), FormatPoints(e.Limit))
}

func (e *BalanceLimitError) Unwrap() error {
	return ErrBalanceLimitExceeded
}

// IsClientError 是否為呼叫端輸入造成的錯誤 (非系統錯誤)
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrBalanceLimitExceeded)
}

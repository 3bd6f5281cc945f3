package domain

import (
	"strconv"
	"time"
)

// MaxPoint 單一使用者可持有的點數上限
const MaxPoint int64 = 10_000_000

// TransactionType 交易類型
// 為了極致節省記憶體，使用 uint8
type TransactionType uint8

const (
	// 充值
	TransactionTypeCharge TransactionType = 1
	// 使用 (扣點)
	TransactionTypeUse TransactionType = 2
)

// String 回傳對外顯示用的交易類型名稱 (CHARGE / USE)
func (t TransactionType) String() string {
	switch t {
	case TransactionTypeCharge:
		return "CHARGE"
	case TransactionTypeUse:
		return "USE"
	default:
		return "UNKNOWN"
	}
}

// ParseTransactionType 將名稱轉回 TransactionType
func ParseTransactionType(s string) (TransactionType, bool) {
	switch s {
	case "CHARGE":
		return TransactionTypeCharge, true
	case "USE":
		return TransactionTypeUse, true
	}
	return 0, false
}

// UserPoint 使用者目前的點數餘額
//
// 結構:
//
//	UserID: 使用者 ID
//	Point: 目前點數，永遠介於 [0, MaxPoint]
//	UpdateMillis: 最後更新時間 (Unix 毫秒)
type UserPoint struct {
	UserID       uint64
	Point        int64
	UpdateMillis int64
}

// EmptyUserPoint 尚未寫入過的使用者，視為 0 點
func EmptyUserPoint(userID uint64, now time.Time) UserPoint {
	return UserPoint{
		UserID:       userID,
		Point:        0,
		UpdateMillis: now.UnixMilli(),
	}
}

// PointHistory 一筆已被接受的點數異動紀錄，寫入後不可修改
// 注意欄位排序以避免 Padding
type PointHistory struct {
	// ID: 全局遞增的交易序號 (跨使用者唯一)
	ID     uint64
	UserID uint64
	// Amount: 異動量，永遠為正數，方向由 Type 決定
	Amount int64
	// UpdateMillis: 對應餘額更新的時間戳
	UpdateMillis int64
	// Type: 放到最後面，利用 Padding 空間
	Type TransactionType
}

// ValidatePoint 檢查候選點數是否落在 [0, MaxPoint]
// 只有通過檢查的值才允許寫入 BalanceStore
func ValidatePoint(point int64) error {
	if point < 0 || point > MaxPoint {
		return ErrBalanceOutOfRange
	}
	return nil
}

// FormatPoints 以千分位格式化點數，例如 10000 -> "10,000"
func FormatPoints(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := false
	if v < 0 {
		neg = true
		s = s[1:]
	}

	n := len(s)
	if n <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}

	out := make([]byte, 0, n+n/3+1)
	if neg {
		out = append(out, '-')
	}
	head := n % 3
	if head == 0 {
		head = 3
	}
	out = append(out, s[:head]...)
	for i := head; i < n; i += 3 {
		out = append(out, ',')
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}

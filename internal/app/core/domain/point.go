package domain

// Charge 計算充值後的候選點數，不修改 p 本身
//
// 參數:
//
//	amount: 充值金額 (必須 > 0)
//
// 回傳:
//
//	int64: 候選點數
//	error: ErrInvalidAmount 或 *BalanceLimitError
func (p UserPoint) Charge(amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	// 用減法比較，避免 p.Point + amount 溢位
	if amount > MaxPoint-p.Point {
		return 0, &BalanceLimitError{
			UserID:    p.UserID,
			Balance:   p.Point,
			Requested: amount,
			Limit:     MaxPoint,
		}
	}
	return p.Point + amount, nil
}

// Use 計算扣點後的候選點數，不修改 p 本身
//
// 參數:
//
//	amount: 扣點金額 (必須 > 0)
//
// 回傳:
//
//	int64: 候選點數
//	error: ErrInvalidAmount 或 *InsufficientBalanceError
func (p UserPoint) Use(amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if amount > p.Point {
		return 0, &InsufficientBalanceError{
			UserID:    p.UserID,
			Balance:   p.Point,
			Requested: amount,
		}
	}
	return p.Point - amount, nil
}

// Apply 依交易類型計算候選點數
func (p UserPoint) Apply(txType TransactionType, amount int64) (int64, error) {
	switch txType {
	case TransactionTypeCharge:
		return p.Charge(amount)
	case TransactionTypeUse:
		return p.Use(amount)
	default:
		return 0, ErrInvalidTransactionType
	}
}

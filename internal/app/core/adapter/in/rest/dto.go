package rest

import "github.com/JoeShih716/go-point-ledger/internal/app/core/domain"

// UserPointDTO 餘額的 JSON 格式
type UserPointDTO struct {
	ID           uint64 `json:"id"`
	Point        int64  `json:"point"`
	UpdateMillis int64  `json:"updateMillis"`
}

// PointHistoryDTO 交易紀錄的 JSON 格式
type PointHistoryDTO struct {
	ID           uint64 `json:"id"`
	UserID       uint64 `json:"userId"`
	Amount       int64  `json:"amount"`
	Type         string `json:"type"`
	UpdateMillis int64  `json:"updateMillis"`
}

// ErrorResponse 錯誤回應
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func toUserPointDTO(p domain.UserPoint) UserPointDTO {
	return UserPointDTO{
		ID:           p.UserID,
		Point:        p.Point,
		UpdateMillis: p.UpdateMillis,
	}
}

func toPointHistoryDTOs(histories []domain.PointHistory) []PointHistoryDTO {
	dtos := make([]PointHistoryDTO, 0, len(histories))
	for _, h := range histories {
		dtos = append(dtos, PointHistoryDTO{
			ID:           h.ID,
			UserID:       h.UserID,
			Amount:       h.Amount,
			Type:         h.Type.String(),
			UpdateMillis: h.UpdateMillis,
		})
	}
	return dtos
}

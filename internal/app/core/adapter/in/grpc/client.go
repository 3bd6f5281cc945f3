package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-point-ledger/internal/app/core/domain"
)

// Client 點數服務的 gRPC 客戶端
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient 以既有連線建立客戶端 (連線由呼叫端管理，例如 pkg/grpc.Pool)
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Charge 充值
func (c *Client) Charge(ctx context.Context, userID uint64, amount int64, opts ...grpc.CallOption) (domain.UserPoint, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodCharge, newAmountRequest(userID, amount), out, opts...); err != nil {
		return domain.UserPoint{}, fromStatus(err)
	}
	return structToBalance(out)
}

// Use 扣點
func (c *Client) Use(ctx context.Context, userID uint64, amount int64, opts ...grpc.CallOption) (domain.UserPoint, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodUse, newAmountRequest(userID, amount), out, opts...); err != nil {
		return domain.UserPoint{}, fromStatus(err)
	}
	return structToBalance(out)
}

// GetBalance 查詢餘額
func (c *Client) GetBalance(ctx context.Context, userID uint64, opts ...grpc.CallOption) (domain.UserPoint, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodGetBalance, newUserRequest(userID), out, opts...); err != nil {
		return domain.UserPoint{}, fromStatus(err)
	}
	return structToBalance(out)
}

// GetHistory 查詢交易紀錄 (最新的在前)
func (c *Client) GetHistory(ctx context.Context, userID uint64, opts ...grpc.CallOption) ([]domain.PointHistory, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, MethodGetHistory, newUserRequest(userID), out, opts...); err != nil {
		return nil, fromStatus(err)
	}
	return listToHistories(out)
}

// statusError 保留 gRPC status，同時讓 errors.Is 能比對業務錯誤
type statusError struct {
	st       *status.Status
	sentinel error
}

func (e *statusError) Error() string              { return e.st.Err().Error() }
func (e *statusError) GRPCStatus() *status.Status { return e.st }
func (e *statusError) Unwrap() error              { return e.sentinel }

// fromStatus 將 gRPC status 還原成業務錯誤
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var sentinel error
	switch st.Code() {
	case codes.InvalidArgument:
		sentinel = domain.ErrInvalidAmount
	case codes.FailedPrecondition:
		sentinel = domain.ErrInsufficientBalance
	case codes.OutOfRange:
		sentinel = domain.ErrBalanceLimitExceeded
	case codes.DeadlineExceeded:
		sentinel = domain.ErrLockTimeout
	default:
		return err
	}
	return &statusError{st: st, sentinel: sentinel}
}

// IsUnavailable 連線層錯誤 (伺服器未啟動、網路中斷)
func IsUnavailable(err error) bool {
	var se interface{ GRPCStatus() *status.Status }
	if errors.As(err, &se) {
		return se.GRPCStatus().Code() == codes.Unavailable
	}
	return false
}

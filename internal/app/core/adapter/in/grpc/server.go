package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-point-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-point-ledger/internal/app/core/usecase"
)

type GrpcServer struct {
	core *usecase.PointUseCase
}

func NewGrpcServer(core *usecase.PointUseCase) *GrpcServer {
	return &GrpcServer{
		core: core,
	}
}

func (s *GrpcServer) Charge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, amount, err := parseAmountRequest(req)
	if err != nil {
		return nil, err
	}
	p, err := s.core.Charge(ctx, userID, amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return balanceToStruct(p), nil
}

func (s *GrpcServer) Use(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, amount, err := parseAmountRequest(req)
	if err != nil {
		return nil, err
	}
	p, err := s.core.Use(ctx, userID, amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return balanceToStruct(p), nil
}

func (s *GrpcServer) GetBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := uint64Field(req, fieldUserID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return balanceToStruct(s.core.GetBalance(ctx, userID)), nil
}

func (s *GrpcServer) GetHistory(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	userID, err := uint64Field(req, fieldUserID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return historiesToList(s.core.GetHistory(ctx, userID)), nil
}

// parseAmountRequest 解析 user_id 與 amount，amount 必須為正數
func parseAmountRequest(req *structpb.Struct) (uint64, int64, error) {
	userID, err := uint64Field(req, fieldUserID)
	if err != nil {
		return 0, 0, status.Error(codes.InvalidArgument, err.Error())
	}
	amount, err := int64Field(req, fieldAmount)
	if err != nil {
		return 0, 0, status.Error(codes.InvalidArgument, err.Error())
	}
	if amount <= 0 {
		return 0, 0, status.Error(codes.InvalidArgument, domain.ErrInvalidAmount.Error())
	}
	return userID, amount, nil
}

// toStatus 將業務錯誤轉成 gRPC status
func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrBalanceLimitExceeded):
		return status.Error(codes.OutOfRange, err.Error())
	case errors.Is(err, domain.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

var _ PointServiceServer = (*GrpcServer)(nil)

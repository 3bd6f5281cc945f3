package grpc

import (
	"context"
	"fmt"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-point-ledger/internal/app/core/domain"
)

// ServiceName gRPC 服務名稱
const ServiceName = "point.PointService"

// 方法完整名稱
const (
	MethodCharge     = "/" + ServiceName + "/Charge"
	MethodUse        = "/" + ServiceName + "/Use"
	MethodGetBalance = "/" + ServiceName + "/GetBalance"
	MethodGetHistory = "/" + ServiceName + "/GetHistory"
)

// 訊息欄位名稱
// 訊息使用 google.protobuf.Struct，不需要額外的 .proto 產生程式碼
const (
	fieldUserID       = "user_id"
	fieldAmount       = "amount"
	fieldID           = "id"
	fieldPoint        = "point"
	fieldType         = "type"
	fieldUpdateMillis = "update_millis"
)

// PointServiceServer 點數服務的 gRPC 介面
type PointServiceServer interface {
	Charge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Use(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetHistory(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error)
}

// PointServiceDesc 手寫的 ServiceDesc，等同 protoc-gen-go-grpc 產生的內容
var PointServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PointServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Charge", Handler: unaryHandler(MethodCharge, PointServiceServer.Charge)},
		{MethodName: "Use", Handler: unaryHandler(MethodUse, PointServiceServer.Use)},
		{MethodName: "GetBalance", Handler: unaryHandler(MethodGetBalance, PointServiceServer.GetBalance)},
		{MethodName: "GetHistory", Handler: unaryHandler(MethodGetHistory, PointServiceServer.GetHistory)},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterPointServiceServer 註冊服務到 grpc.Server
func RegisterPointServiceServer(s grpc.ServiceRegistrar, srv PointServiceServer) {
	s.RegisterService(&PointServiceDesc, srv)
}

func unaryHandler[Resp any](fullMethod string, call func(PointServiceServer, context.Context, *structpb.Struct) (Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PointServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PointServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// newUserRequest 組裝只有 user_id 的請求
func newUserRequest(userID uint64) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldUserID: structpb.NewNumberValue(float64(userID)),
	}}
}

// newAmountRequest 組裝 user_id + amount 的請求
func newAmountRequest(userID uint64, amount int64) *structpb.Struct {
	req := newUserRequest(userID)
	req.Fields[fieldAmount] = structpb.NewNumberValue(float64(amount))
	return req
}

// balanceToStruct domain.UserPoint -> Struct
func balanceToStruct(p domain.UserPoint) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldID:           structpb.NewNumberValue(float64(p.UserID)),
		fieldPoint:        structpb.NewNumberValue(float64(p.Point)),
		fieldUpdateMillis: structpb.NewNumberValue(float64(p.UpdateMillis)),
	}}
}

// structToBalance Struct -> domain.UserPoint
func structToBalance(s *structpb.Struct) (domain.UserPoint, error) {
	userID, err := uint64Field(s, fieldID)
	if err != nil {
		return domain.UserPoint{}, err
	}
	point, err := int64Field(s, fieldPoint)
	if err != nil {
		return domain.UserPoint{}, err
	}
	updateMillis, err := int64Field(s, fieldUpdateMillis)
	if err != nil {
		return domain.UserPoint{}, err
	}
	return domain.UserPoint{UserID: userID, Point: point, UpdateMillis: updateMillis}, nil
}

// historiesToList []domain.PointHistory -> ListValue，保持原本順序
func historiesToList(histories []domain.PointHistory) *structpb.ListValue {
	values := make([]*structpb.Value, 0, len(histories))
	for _, h := range histories {
		values = append(values, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			fieldID:           structpb.NewNumberValue(float64(h.ID)),
			fieldUserID:       structpb.NewNumberValue(float64(h.UserID)),
			fieldAmount:       structpb.NewNumberValue(float64(h.Amount)),
			fieldType:         structpb.NewStringValue(h.Type.String()),
			fieldUpdateMillis: structpb.NewNumberValue(float64(h.UpdateMillis)),
		}}))
	}
	return &structpb.ListValue{Values: values}
}

// listToHistories ListValue -> []domain.PointHistory
func listToHistories(list *structpb.ListValue) ([]domain.PointHistory, error) {
	histories := make([]domain.PointHistory, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("history[%d]: not an object", i)
		}
		id, err := uint64Field(s, fieldID)
		if err != nil {
			return nil, fmt.Errorf("history[%d]: %w", i, err)
		}
		userID, err := uint64Field(s, fieldUserID)
		if err != nil {
			return nil, fmt.Errorf("history[%d]: %w", i, err)
		}
		amount, err := int64Field(s, fieldAmount)
		if err != nil {
			return nil, fmt.Errorf("history[%d]: %w", i, err)
		}
		updateMillis, err := int64Field(s, fieldUpdateMillis)
		if err != nil {
			return nil, fmt.Errorf("history[%d]: %w", i, err)
		}
		txType, ok := domain.ParseTransactionType(s.GetFields()[fieldType].GetStringValue())
		if !ok {
			return nil, fmt.Errorf("history[%d]: %w", i, domain.ErrInvalidTransactionType)
		}
		histories = append(histories, domain.PointHistory{
			ID:           id,
			UserID:       userID,
			Amount:       amount,
			UpdateMillis: updateMillis,
			Type:         txType,
		})
	}
	return histories, nil
}

// maxExactInteger float64 可以精確表示的最大整數 (2^53)
const maxExactInteger = 1 << 53

// numberField 讀取整數欄位，拒絕缺少、非數字、帶小數或超出精度的值
func numberField(s *structpb.Struct, name string) (float64, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("missing field %q", name)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("field %q must be a number", name)
	}
	f := n.NumberValue
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > maxExactInteger {
		return 0, fmt.Errorf("field %q must be an integer", name)
	}
	return f, nil
}

func int64Field(s *structpb.Struct, name string) (int64, error) {
	f, err := numberField(s, name)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func uint64Field(s *structpb.Struct, name string) (uint64, error) {
	f, err := numberField(s, name)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("field %q must not be negative", name)
	}
	return uint64(f), nil
}

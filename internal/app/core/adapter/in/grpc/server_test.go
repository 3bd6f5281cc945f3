package grpc

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-point-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-point-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-point-ledger/internal/app/core/usecase"
)

func newTestClient(t *testing.T) (*Client, *grpc.ClientConn) {
	t.Helper()

	core := usecase.NewPointUseCase(memory.NewBalanceStore(), memory.NewHistoryStore(), memory.NewLockRegistry())

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(zerolog.Nop())))
	RegisterPointServiceServer(s, NewGrpcServer(core))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewClient(conn), conn
}

func TestGrpc_ChargeUseHistory(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)

	charged, err := c.Charge(ctx, 1, 10_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), charged.UserID)
	assert.Equal(t, int64(10_000), charged.Point)
	assert.Positive(t, charged.UpdateMillis)

	used, err := c.Use(ctx, 1, 3_000)
	require.NoError(t, err)
	assert.Equal(t, int64(7_000), used.Point)

	balance, err := c.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, used, balance)

	histories, err := c.GetHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, histories, 2)
	assert.Equal(t, domain.TransactionTypeUse, histories[0].Type)
	assert.Equal(t, int64(3_000), histories[0].Amount)
	assert.Equal(t, domain.TransactionTypeCharge, histories[1].Type)
	assert.Equal(t, int64(10_000), histories[1].Amount)
}

func TestGrpc_ErrorCodes(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)

	_, err := c.Charge(ctx, 1, 0)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = c.Use(ctx, 1, 1)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = c.Charge(ctx, 1, domain.MaxPoint+1)
	assert.Equal(t, codes.OutOfRange, status.Code(err))
	assert.ErrorIs(t, err, domain.ErrBalanceLimitExceeded)

	histories, err := c.GetHistory(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, histories)
}

func TestGrpc_RejectsMalformedRequest(t *testing.T) {
	_, conn := newTestClient(t)
	ctx := context.Background()

	tests := map[string]*structpb.Struct{
		"missing user": {Fields: map[string]*structpb.Value{
			fieldAmount: structpb.NewNumberValue(10),
		}},
		"fractional amount": {Fields: map[string]*structpb.Value{
			fieldUserID: structpb.NewNumberValue(1),
			fieldAmount: structpb.NewNumberValue(1.5),
		}},
		"string amount": {Fields: map[string]*structpb.Value{
			fieldUserID: structpb.NewNumberValue(1),
			fieldAmount: structpb.NewStringValue("100"),
		}},
		"negative user": {Fields: map[string]*structpb.Value{
			fieldUserID: structpb.NewNumberValue(-1),
			fieldAmount: structpb.NewNumberValue(100),
		}},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			err := conn.Invoke(ctx, MethodCharge, req, new(structpb.Struct))
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestGrpc_ConcurrentCharges(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)

	const callers = 10
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			_, err := c.Charge(ctx, 1, 1_000)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	balance, err := c.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), balance.Point)
}

func TestGrpc_RequestIDHeader(t *testing.T) {
	_, conn := newTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, RequestIDKey, "req-123")

	var header metadata.MD
	err := conn.Invoke(ctx, MethodGetBalance, newUserRequest(1), new(structpb.Struct), grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"req-123"}, header.Get(RequestIDKey))
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{domain.ErrInvalidAmount, codes.InvalidArgument},
		{&domain.InsufficientBalanceError{}, codes.FailedPrecondition},
		{&domain.BalanceLimitError{}, codes.OutOfRange},
		{domain.ErrLockTimeout, codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
		{domain.ErrBalanceOutOfRange, codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, status.Code(toStatus(tt.err)), "%v", tt.err)
	}
}

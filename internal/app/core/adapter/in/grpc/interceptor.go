package grpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// RequestIDKey metadata 中的 request id 欄位
const RequestIDKey = "x-request-id"

// LoggingInterceptor 記錄每個請求，並在 header 回傳 request id
// 呼叫端有帶 x-request-id 就沿用，否則產生新的 UUID
func LoggingInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := requestIDFromContext(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDKey, requestID))

		start := time.Now()
		resp, err := handler(ctx, req)

		evt := logger.Info()
		if err != nil {
			evt = logger.Warn().Err(err).Str("code", status.Code(err).String())
		}
		evt.Str("request_id", requestID).
			Str("method", info.FullMethod).
			Dur("elapsed", time.Since(start)).
			Msg("grpc request")
		return resp, err
	}
}

func requestIDFromContext(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(RequestIDKey); len(ids) > 0 && ids[0] != "" {
			return ids[0]
		}
	}
	return uuid.NewString()
}

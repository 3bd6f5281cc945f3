package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	grpc_adapter "github.com/JoeShih716/go-point-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-point-ledger/internal/app/core/domain"
	grpc_pool "github.com/JoeShih716/go-point-ledger/pkg/grpc"
	"github.com/JoeShih716/go-point-ledger/pkg/logger"
)

// 對同一個使用者併發充值 / 扣點，最後比對餘額與紀錄筆數是否一致
func main() {
	addr := flag.String("addr", "localhost:50051", "gRPC server address")
	userID := flag.Uint64("user", 1, "target user id")
	count := flag.Int("count", 10000, "total requests")
	concurrency := flag.Int("concurrency", 100, "in-flight requests")
	amount := flag.Int64("amount", 100, "amount per request")
	op := flag.String("op", "charge", "charge | use | mixed")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	log := logger.New("info", true)

	txTypeFor, err := opSelector(*op)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -op")
	}

	pool := grpc_pool.NewPool(
		grpc_pool.WithInterceptor(requestIDInterceptor),
		grpc_pool.WithLogger(log),
	)
	defer pool.Close()

	conn, err := pool.GetConnection(*addr)
	if err != nil {
		log.Fatal().Err(err).Msg("did not connect")
	}
	c := grpc_adapter.NewClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	before, err := snapshot(ctx, c, *userID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read initial state")
	}

	var (
		wg       sync.WaitGroup
		charged  atomic.Int64
		used     atomic.Int64
		accepted atomic.Int64
		rejected atomic.Int64
		failed   atomic.Int64
	)
	sem := make(chan struct{}, *concurrency)
	start := time.Now()

	for i := 0; i < *count; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			txType := txTypeFor(idx)
			var err error
			if txType == domain.TransactionTypeCharge {
				_, err = c.Charge(ctx, *userID, *amount)
			} else {
				_, err = c.Use(ctx, *userID, *amount)
			}

			switch {
			case err == nil:
				accepted.Add(1)
				if txType == domain.TransactionTypeCharge {
					charged.Add(*amount)
				} else {
					used.Add(*amount)
				}
			case domain.IsClientError(err):
				rejected.Add(1)
			default:
				if failed.Add(1) == 1 || grpc_adapter.IsUnavailable(err) {
					log.Warn().Err(err).Int("idx", idx).Msg("request failed")
				}
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	after, err := snapshot(ctx, c, *userID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read final state")
	}

	fmt.Printf("Completed %d requests in %v\n", *count, elapsed)
	fmt.Printf("TPS: %.2f\n", float64(*count)/elapsed.Seconds())
	fmt.Printf("accepted=%d rejected=%d failed=%d\n", accepted.Load(), rejected.Load(), failed.Load())
	fmt.Printf("balance %s -> %s\n", domain.FormatPoints(before.point), domain.FormatPoints(after.point))

	wantPoint := before.point + charged.Load() - used.Load()
	wantHistories := before.histories + int(accepted.Load())
	if after.point != wantPoint || after.histories != wantHistories {
		log.Error().
			Int64("want_point", wantPoint).
			Int64("got_point", after.point).
			Int("want_histories", wantHistories).
			Int("got_histories", after.histories).
			Msg("ledger inconsistent")
		os.Exit(1)
	}
	fmt.Println("ledger consistent")
}

type state struct {
	point     int64
	histories int
}

func snapshot(ctx context.Context, c *grpc_adapter.Client, userID uint64) (state, error) {
	p, err := c.GetBalance(ctx, userID)
	if err != nil {
		return state{}, err
	}
	h, err := c.GetHistory(ctx, userID)
	if err != nil {
		return state{}, err
	}
	return state{point: p.Point, histories: len(h)}, nil
}

func opSelector(op string) (func(idx int) domain.TransactionType, error) {
	switch op {
	case "charge":
		return func(int) domain.TransactionType { return domain.TransactionTypeCharge }, nil
	case "use":
		return func(int) domain.TransactionType { return domain.TransactionTypeUse }, nil
	case "mixed":
		return func(idx int) domain.TransactionType {
			if idx%2 == 0 {
				return domain.TransactionTypeCharge
			}
			return domain.TransactionTypeUse
		}, nil
	}
	return nil, errors.New(`op must be "charge", "use" or "mixed"`)
}

// requestIDInterceptor 每個請求帶上新的 request id，方便對照 server 日誌
func requestIDInterceptor(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	ctx = metadata.AppendToOutgoingContext(ctx, grpc_adapter.RequestIDKey, uuid.NewString())
	return invoker(ctx, method, req, reply, cc, opts...)
}

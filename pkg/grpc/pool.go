package grpc

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// Pool 以目標地址為 key 共用 gRPC 連線，並發安全
//
// 同一個 target 只會維護一條 *grpc.ClientConn，已 Shutdown 的連線會被替換
type Pool struct {
	conns    sync.Map // map[string]*grpc.ClientConn
	mu       sync.Mutex
	dialOpts []grpc.DialOption
	logger   zerolog.Logger
}

// PoolOption Pool 的配置選項
type PoolOption func(*Pool)

// WithInterceptor 所有連線共用的 UnaryClientInterceptor
func WithInterceptor(interceptor grpc.UnaryClientInterceptor) PoolOption {
	return func(p *Pool) {
		p.dialOpts = append(p.dialOpts, grpc.WithUnaryInterceptor(interceptor))
	}
}

// WithDialOptions 附加到預設值之後的連線選項，例如測試用的 bufconn dialer
func WithDialOptions(opts ...grpc.DialOption) PoolOption {
	return func(p *Pool) {
		p.dialOpts = append(p.dialOpts, opts...)
	}
}

func WithLogger(logger zerolog.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetConnection 取得 target 的連線，不存在或已關閉時建立新的
//
// 參數:
//
//	target: 伺服器地址 (e.g., "localhost:50051")
//
// 回傳值:
//
//	*grpc.ClientConn: 共用的連線，呼叫端不應自行 Close
//	error: 建立連線失敗
func (p *Pool) GetConnection(target string) (*grpc.ClientConn, error) {
	// Fast path
	if conn, ok := p.load(target); ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// 加鎖期間可能已有其他 goroutine 建好
	if conn, ok := p.load(target); ok {
		return conn, nil
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             time.Second,
			PermitWithoutStream: true,
		}),
	}
	opts = append(opts, p.dialOpts...)

	// NewClient 是 lazy 的，第一次 RPC 才真正連線
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("create grpc client for %s: %w", target, err)
	}
	p.conns.Store(target, conn)
	p.logger.Debug().Str("target", target).Msg("grpc connection created")
	return conn, nil
}

func (p *Pool) load(target string) (*grpc.ClientConn, bool) {
	v, ok := p.conns.Load(target)
	if !ok {
		return nil, false
	}
	conn := v.(*grpc.ClientConn)
	if conn.GetState() == connectivity.Shutdown {
		p.conns.Delete(target)
		return nil, false
	}
	return conn, true
}

// Len 目前持有的連線數
func (p *Pool) Len() int {
	n := 0
	p.conns.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close 關閉所有連線，回傳第一個遇到的錯誤
func (p *Pool) Close() error {
	var firstErr error
	p.conns.Range(func(key, value any) bool {
		if err := value.(*grpc.ClientConn).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.conns.Delete(key)
		return true
	})
	return firstErr
}

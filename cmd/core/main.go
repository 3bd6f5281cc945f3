package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	grpc_adapter "github.com/JoeShih716/go-point-ledger/internal/app/core/adapter/in/grpc"
	rest_adapter "github.com/JoeShih716/go-point-ledger/internal/app/core/adapter/in/rest"
	memory_adapter "github.com/JoeShih716/go-point-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-point-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-point-ledger/internal/config"
	"github.com/JoeShih716/go-point-ledger/internal/jobs"
	"github.com/JoeShih716/go-point-ledger/pkg/logger"
)

// lockRegistry 同時要能被 StatsReporter 計數
type lockRegistry interface {
	usecase.LockRegistry
	Len() int
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to YAML config (empty = env and defaults only)")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New("info", true)
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Console())

	// 2. 初始化 Store 與鎖
	balances := memory_adapter.NewBalanceStore()
	histories := memory_adapter.NewHistoryStore()

	var locks lockRegistry
	switch cfg.Ledger.LockMode {
	case config.LockModePerUser:
		locks = memory_adapter.NewLockRegistry()
	case config.LockModeStriped:
		locks = memory_adapter.NewStripedLockRegistry(cfg.Ledger.LockStripes)
	default:
		log.Fatal().Str("lock_mode", cfg.Ledger.LockMode).Msg("invalid lock mode")
	}
	log.Info().
		Str("lock_mode", cfg.Ledger.LockMode).
		Dur("lock_timeout", cfg.Ledger.LockTimeout).
		Msg("ledger initialized")

	// 3. 初始化 UseCase
	core := usecase.NewPointUseCase(balances, histories, locks,
		usecase.WithLockTimeout(cfg.Ledger.LockTimeout),
		usecase.WithLogger(log.With().Str("component", "point").Logger()),
	)

	// 4. gRPC Server
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Server.GRPCAddr).Msg("failed to listen")
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpc_adapter.LoggingInterceptor(log)))
	grpc_adapter.RegisterPointServiceServer(grpcServer, grpc_adapter.NewGrpcServer(core))

	go func() {
		log.Info().Str("addr", cfg.Server.GRPCAddr).Msg("starting gRPC server")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("failed to serve gRPC")
		}
	}()

	// 5. HTTP Server
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           rest_adapter.NewRouter(rest_adapter.NewHandler(core, log)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to serve HTTP")
		}
	}()

	// 6. 統計排程
	var stats *jobs.StatsReporter
	if cfg.Stats.Enabled() {
		stats = jobs.NewStatsReporter(locks, balances, histories, log)
		if err := stats.Start(cfg.Stats.Schedule); err != nil {
			log.Fatal().Err(err).Msg("failed to start stats reporter")
		}
	}

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	shutdown(log, cfg.Server.ShutdownTimeout, httpServer, grpcServer)
	if stats != nil {
		stats.Stop()
		stats.Report()
	}
	log.Info().Msg("server exited")
}

// shutdown 先停止接收新請求，逾時則強制關閉
func shutdown(log zerolog.Logger, timeout time.Duration, httpServer *http.Server, grpcServer *grpc.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("HTTP server forced to close")
	}

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("gRPC graceful stop timed out")
		grpcServer.Stop()
	}
}

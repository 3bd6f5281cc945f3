package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 環境變數前綴，例如 POINT_SERVER_GRPC_ADDR
const EnvPrefix = "POINT"

const (
	LockModePerUser = "per_user"
	LockModeStriped = "striped"

	LogFormatConsole = "console"
	LogFormatJSON    = "json"

	// StatsDisabled 關閉統計排程
	StatsDisabled = "off"
)

type Config struct {
	Server ServerConfig `yaml:"server" envconfig:"SERVER"`
	Ledger LedgerConfig `yaml:"ledger" envconfig:"LEDGER"`
	Log    LogConfig    `yaml:"log" envconfig:"LOG"`
	Stats  StatsConfig  `yaml:"stats" envconfig:"STATS"`
}

type ServerConfig struct {
	GRPCAddr        string        `yaml:"grpc_addr" envconfig:"GRPC_ADDR"`
	HTTPAddr        string        `yaml:"http_addr" envconfig:"HTTP_ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// LedgerConfig 鎖的配置
//
//	LockMode: per_user 每個使用者一把鎖；striped 固定數量的鎖以 userID 取模
//	LockTimeout: 等待使用者鎖的上限，0 代表無限等待
type LedgerConfig struct {
	LockMode    string        `yaml:"lock_mode" envconfig:"LOCK_MODE"`
	LockStripes int           `yaml:"lock_stripes" envconfig:"LOCK_STRIPES"`
	LockTimeout time.Duration `yaml:"lock_timeout" envconfig:"LOCK_TIMEOUT"`
}

type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// Console 是否輸出人類可讀格式
func (c LogConfig) Console() bool {
	return c.Format != LogFormatJSON
}

type StatsConfig struct {
	// Schedule cron 表達式，"off" 關閉
	Schedule string `yaml:"schedule" envconfig:"SCHEDULE"`
}

// Enabled 是否啟用統計排程
func (c StatsConfig) Enabled() bool {
	return c.Schedule != StatsDisabled
}

// Load 載入設定
//
// 順序: YAML 檔 -> .env (可選) -> 環境變數 -> 補全預設值 -> Validate
//
// 參數:
//
//	path: YAML 設定檔路徑，空字串代表不讀檔
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// .env 不存在時沿用現有環境變數
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default 全部使用預設值的設定
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// applyDefaults 補全預設配置 (如果 yaml 與環境變數都沒寫)
func (c *Config) applyDefaults() {
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":50051"
	}
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Ledger.LockMode == "" {
		c.Ledger.LockMode = LockModePerUser
	}
	if c.Ledger.LockStripes == 0 {
		c.Ledger.LockStripes = 256
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = LogFormatConsole
	}
	if c.Stats.Schedule == "" {
		c.Stats.Schedule = "@every 1m"
	}
}

// Validate 檢查設定值是否合法
func (c Config) Validate() error {
	var errs []error
	switch c.Ledger.LockMode {
	case LockModePerUser, LockModeStriped:
	default:
		errs = append(errs, fmt.Errorf("ledger.lock_mode must be %q or %q, got %q", LockModePerUser, LockModeStriped, c.Ledger.LockMode))
	}
	if c.Ledger.LockStripes < 1 {
		errs = append(errs, fmt.Errorf("ledger.lock_stripes must be positive, got %d", c.Ledger.LockStripes))
	}
	if c.Ledger.LockTimeout < 0 {
		errs = append(errs, fmt.Errorf("ledger.lock_timeout must not be negative, got %s", c.Ledger.LockTimeout))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must not be negative, got %s", c.Server.ShutdownTimeout))
	}
	switch c.Log.Format {
	case LogFormatConsole, LogFormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log.format must be %q or %q, got %q", LogFormatConsole, LogFormatJSON, c.Log.Format))
	}
	if c.Server.GRPCAddr == c.Server.HTTPAddr {
		errs = append(errs, fmt.Errorf("server.grpc_addr and server.http_addr must differ, both %q", c.Server.GRPCAddr))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

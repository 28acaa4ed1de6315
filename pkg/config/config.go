// Package config 提供引擎的 TOML 配置加载与环境变量覆盖
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/wyfcoding/greeksengine/pkg/logger"
)

// Config 引擎宿主配置
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 引擎参数
	Engine EngineConfig `mapstructure:"engine"`
	// 日志配置
	Logger logger.Config `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// EngineConfig 批量希腊字母引擎参数
type EngineConfig struct {
	// 单块合约数，只影响内存/延迟权衡，不影响结果
	ChunkSize int `mapstructure:"chunk_size"`
	// 启用批量路径的最小链长，低于该值走标量路径
	BatchThreshold int `mapstructure:"batch_threshold"`
	// 批量路径工作协程数，<=0 时取 GOMAXPROCS
	WorkerCount int `mapstructure:"worker_count"`
	// 严格边界模式：true 越界报错并降级，false 截断到边界
	StrictBounds bool `mapstructure:"strict_bounds"`
	// 波动率上限，超出视为非法输入
	MaxVolatility float64 `mapstructure:"max_volatility"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// Prometheus 监听端口
	Port int `mapstructure:"port"`
	// 指标路径
	Path string `mapstructure:"path"`
}

// DefaultEngine 引擎参数缺省值
func DefaultEngine() EngineConfig {
	return EngineConfig{
		ChunkSize:      500,
		BatchThreshold: 10,
		WorkerCount:    0,
		StrictBounds:   true,
		MaxVolatility:  5.0,
	}
}

// Load 从 TOML 文件加载配置，文件不存在时使用默认值，支持环境变量覆盖
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	// 文件不存在时使用默认值，存在但解析失败必须报错，不能静默回退
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	v.SetEnvPrefix("GREEKS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.Engine.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk_size: %d", c.Engine.ChunkSize)
	}
	if c.Engine.BatchThreshold < 1 {
		return fmt.Errorf("invalid batch_threshold: %d", c.Engine.BatchThreshold)
	}
	if c.Engine.MaxVolatility <= 0 {
		return fmt.Errorf("invalid max_volatility: %g", c.Engine.MaxVolatility)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "greeksengine")

	v.SetDefault("engine.chunk_size", 500)
	v.SetDefault("engine.batch_threshold", 10)
	v.SetDefault("engine.worker_count", 0)
	v.SetDefault("engine.strict_bounds", true)
	v.SetDefault("engine.max_volatility", 5.0)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/greeksengine.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}

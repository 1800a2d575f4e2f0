// Package config 应用配置，viper 读取 YAML 文件和 REGISTER_ 前缀的环境变量
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，server.addr 对应 REGISTER_SERVER_ADDR
const EnvPrefix = "REGISTER"

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Service  ServiceConfig  `mapstructure:"service"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Session  SessionConfig  `mapstructure:"session"`
	Database DatabaseConfig `mapstructure:"database"`
	IDGen    IDGenConfig    `mapstructure:"idgen"`
}

// ServerConfig HTTP 服务
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// Mode gin 运行模式：debug / release / test
	Mode string `mapstructure:"mode"`
	// Swagger 是否挂载 /swagger
	Swagger bool `mapstructure:"swagger"`
	// ShutdownTimeout 优雅关闭等待时间
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig 日志
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json / console
	// File 非空时额外写入滚动日志文件
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // 天
	Compress   bool   `mapstructure:"compress"`
}

// ServiceConfig 注册表单调用的用户服务
type ServiceConfig struct {
	// BaseURL 用户服务地址，默认指向本进程挂载的 /api
	BaseURL string `mapstructure:"base_url"`
}

// AuthConfig 用户服务令牌
type AuthConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
	// Subject 会话中没有令牌时，表单以该服务账号签发令牌
	Subject string `mapstructure:"subject"`
}

// SessionConfig 表单会话
type SessionConfig struct {
	Driver     string        `mapstructure:"driver"` // memory / redis
	TTL        time.Duration `mapstructure:"ttl"`
	LockTTL    time.Duration `mapstructure:"lock_ttl"`
	CookieName string        `mapstructure:"cookie_name"`
	Secure     bool          `mapstructure:"secure"`
	Redis      RedisConfig   `mapstructure:"redis"`
}

// RedisConfig Redis 连接
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// DatabaseConfig 用户库
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite / mysql / postgres
	DSN    string `mapstructure:"dsn"`
	// AutoMigrate 启动时自动建表
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// IDGenConfig Snowflake 节点
type IDGenConfig struct {
	DatacenterID int64 `mapstructure:"datacenter_id"`
	WorkerID     int64 `mapstructure:"worker_id"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.swagger", true)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.file", "")

	v.SetDefault("service.base_url", "http://127.0.0.1:8080/api")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "katydid-register")
	v.SetDefault("auth.ttl", 15*time.Minute)
	v.SetDefault("auth.subject", "register-web")

	v.SetDefault("session.driver", "memory")
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.lock_ttl", time.Minute)
	v.SetDefault("session.cookie_name", "register_sid")
	v.SetDefault("session.secure", false)
	v.SetDefault("session.redis.addr", "127.0.0.1:6379")
	v.SetDefault("session.redis.password", "")
	v.SetDefault("session.redis.db", 0)
	v.SetDefault("session.redis.prefix", "register:")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "register.db")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("idgen.datacenter_id", 0)
	v.SetDefault("idgen.worker_id", 1)
}

// Load 读取配置；path 为空时只使用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置的一致性
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("auth.secret is required"))
	}
	switch c.Session.Driver {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("session.driver %q: want memory or redis", c.Session.Driver))
	}
	switch c.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: want sqlite, mysql or postgres", c.Database.Driver))
	}
	if c.Service.BaseURL == "" {
		errs = append(errs, errors.New("service.base_url is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

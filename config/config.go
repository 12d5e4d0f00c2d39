package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Session  SessionConfig  `mapstructure:"session"`
	Roster   RosterConfig   `mapstructure:"roster"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Checkin  CheckinConfig  `mapstructure:"checkin"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Xlsx     XlsxConfig     `mapstructure:"xlsx"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port int        `mapstructure:"port"`
	CORS CORSConfig `mapstructure:"cors"`
	// 单个 IP 每分钟允许的签到提交次数，0 表示不限
	CheckinRatePerMinute int `mapstructure:"checkin_rate_per_minute"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig 数据库配置（postgres 或 sqlite）
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // postgres | sqlite
	Path            string `mapstructure:"path"`   // sqlite 文件路径
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 签到终端的口令闸门
// AppPasswordHash 为空时不启用闸门，所有签到接口直接开放
type AuthConfig struct {
	AppPasswordHash string        `mapstructure:"app_password_hash"` // bcrypt
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
}

// GateEnabled 是否启用口令闸门
func (a *AuthConfig) GateEnabled() bool {
	return a.AppPasswordHash != ""
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SessionConfig 上下午时段与迟到线
// 时刻均为 "HH:MM:SS"
type SessionConfig struct {
	Timezone        string `mapstructure:"timezone"`
	Noon            string `mapstructure:"noon"`
	MorningCutoff   string `mapstructure:"morning_cutoff"`
	AfternoonCutoff string `mapstructure:"afternoon_cutoff"`
}

// RosterConfig 名单来源
type RosterConfig struct {
	Backend    string        `mapstructure:"backend"` // xlsx | sheets | postgres | sqlite
	Collection string        `mapstructure:"collection"`
	Naming     string        `mapstructure:"naming"` // thai | english
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

// LedgerConfig 签到记录存储
// Collections 按 section（如 tue_afternoon）映射到独立的集合，
// 未映射的 section 落到 DefaultCollection，表名带 section 前缀避免混用
type LedgerConfig struct {
	Backend           string            `mapstructure:"backend"` // postgres | sqlite | xlsx | sheets
	DefaultCollection string            `mapstructure:"default_collection"`
	Collections       map[string]string `mapstructure:"collections"`
	CacheTTL          time.Duration     `mapstructure:"cache_ttl"`
}

// CheckinConfig 签到流程开关
type CheckinConfig struct {
	// 追加前绕过缓存重新读取一次签到表并复核重复/座位冲突
	Revalidate bool `mapstructure:"revalidate"`
}

// SheetsConfig Google Sheets 后端
type SheetsConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

// XlsxConfig 本地 Excel 工作簿后端
type XlsxConfig struct {
	Dir string `mapstructure:"dir"`
}

var knownBackends = map[string]bool{
	"postgres": true,
	"sqlite":   true,
	"xlsx":     true,
	"sheets":   true,
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值；存在 .env 时先载入环境变量
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.checkin_rate_per_minute", 120)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.path", "checkin.db")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "checkin_desk")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Bangkok")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.app_password_hash", "")
	v.SetDefault("auth.access_token_ttl", "12h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("session.timezone", "Asia/Bangkok")
	v.SetDefault("session.noon", "12:00:00")
	v.SetDefault("session.morning_cutoff", "09:10:00")
	v.SetDefault("session.afternoon_cutoff", "13:10:00")

	v.SetDefault("roster.backend", "xlsx")
	v.SetDefault("roster.collection", "students")
	v.SetDefault("roster.naming", "thai")
	v.SetDefault("roster.cache_ttl", "5m")

	v.SetDefault("ledger.backend", "postgres")
	v.SetDefault("ledger.default_collection", "attendance")
	v.SetDefault("ledger.cache_ttl", "30s")

	v.SetDefault("checkin.revalidate", true)

	v.SetDefault("xlsx.dir", "./data")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("CHECKIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Auth.GateEnabled() && len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: 启用口令闸门时 auth.jwt_secret 长度不能少于 16 字符")
	}
	if !knownBackends[c.Roster.Backend] {
		return fmt.Errorf("配置校验失败: 未知的 roster.backend %q", c.Roster.Backend)
	}
	if !knownBackends[c.Ledger.Backend] {
		return fmt.Errorf("配置校验失败: 未知的 ledger.backend %q", c.Ledger.Backend)
	}
	if c.Roster.Naming != "thai" && c.Roster.Naming != "english" {
		return fmt.Errorf("配置校验失败: roster.naming 只能是 thai 或 english")
	}
	if c.Roster.Collection == "" {
		return fmt.Errorf("配置校验失败: roster.collection 不能为空")
	}
	if c.Ledger.DefaultCollection == "" && len(c.Ledger.Collections) == 0 {
		return fmt.Errorf("配置校验失败: ledger.default_collection 与 ledger.collections 不能同时为空")
	}
	if _, err := time.LoadLocation(c.Session.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: session.timezone 无效: %w", err)
	}
	for key, val := range map[string]string{
		"session.noon":             c.Session.Noon,
		"session.morning_cutoff":   c.Session.MorningCutoff,
		"session.afternoon_cutoff": c.Session.AfternoonCutoff,
	} {
		if _, err := time.Parse("15:04:05", val); err != nil {
			return fmt.Errorf("配置校验失败: %s 格式应为 HH:MM:SS", key)
		}
	}
	for key, b := range map[string]string{"roster.backend": c.Roster.Backend, "ledger.backend": c.Ledger.Backend} {
		if (b == "postgres" || b == "sqlite") && b != c.Database.Driver {
			return fmt.Errorf("配置校验失败: %s=%s 与 db.driver=%s 不一致", key, b, c.Database.Driver)
		}
	}
	if (c.Roster.Backend == "sheets" || c.Ledger.Backend == "sheets") && c.Sheets.CredentialsFile == "" {
		return fmt.Errorf("配置校验失败: 使用 sheets 后端时 sheets.credentials_file 不能为空")
	}
	return nil
}

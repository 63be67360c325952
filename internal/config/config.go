package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr          string
	Port                string
	DatabasePath        string
	GinMode             string
	JWTSecret           string
	JWTExpiresIn        time.Duration
	JWTRefreshSecret    string
	JWTRefreshExpiresIn time.Duration
	UploadDir           string
	UploadURLPath       string
	UploadMaxBytes      int64
	CORSOrigins         []string
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	RabbitMQURL         string
	RabbitMQQueue       string
	LogLevel            string
	LogFormat           string
	SuperRootUserName   string
	SuperRootEmail      string
	SuperRootPassword   string
	ConfigFileUsed      string
}

// 开发用的默认签名密钥，release 模式下不允许使用。
const (
	DefaultJWTSecret        = "knowshare-dev-secret"
	DefaultJWTRefreshSecret = "knowshare-dev-refresh-secret"
)

// ErrInsecureSecrets means release mode would sign tokens with the built-in secrets.
var ErrInsecureSecrets = errors.New("JWT_SECRET and JWT_REFRESH_SECRET must be set to non-default values when GIN_MODE=release")

var defaults = map[string]any{
	"PORT":                   "3000",
	"LISTEN_ADDR":            "",
	"DATABASE_PATH":          "knowledge_sharing.db",
	"GIN_MODE":               "release",
	"JWT_SECRET":             DefaultJWTSecret,
	"JWT_EXPIRES_IN":         "1h",
	"JWT_REFRESH_SECRET":     DefaultJWTRefreshSecret,
	"JWT_REFRESH_EXPIRES_IN": "7d",
	"UPLOAD_DIR":             "uploads",
	"UPLOAD_URL_PATH":        "/uploads",
	"UPLOAD_MAX_BYTES":       int64(10 << 20),
	"CORS_ORIGINS":           "http://localhost:4200",
	"REDIS_ADDR":             "",
	"REDIS_PASSWORD":         "",
	"REDIS_DB":               0,
	"RABBITMQ_URL":           "",
	"RABBITMQ_QUEUE":         "knowshare.events",
	"LOG_LEVEL":              "info",
	"LOG_FORMAT":             "json",
	"SUPER_ROOT_USER_NAME":   "",
	"SUPER_ROOT_EMAIL":       "",
	"SUPER_ROOT_PASSWORD":    "",
}

// Load 读取默认值、可选的 YAML 配置文件与环境变量（后者优先）。
// 配置文件路径来自 KNOWSHARE_CONFIG，未设置时尝试 ./config/config.yml。
func Load() (AppConfig, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := strings.TrimSpace(os.Getenv("KNOWSHARE_CONFIG")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return AppConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (AppConfig, error) {
	port := trimmed(v, "PORT")
	if port == "" {
		port = "3000"
	}

	listenAddr := trimmed(v, "LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	accessTTL, err := ParseDuration(trimmed(v, "JWT_EXPIRES_IN"))
	if err != nil {
		return AppConfig{}, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}
	refreshTTL, err := ParseDuration(trimmed(v, "JWT_REFRESH_EXPIRES_IN"))
	if err != nil {
		return AppConfig{}, fmt.Errorf("JWT_REFRESH_EXPIRES_IN: %w", err)
	}

	uploadURLPath := trimmed(v, "UPLOAD_URL_PATH")
	if uploadURLPath == "" {
		uploadURLPath = "/uploads"
	}
	if !strings.HasPrefix(uploadURLPath, "/") {
		uploadURLPath = "/" + uploadURLPath
	}
	uploadURLPath = strings.TrimRight(uploadURLPath, "/")

	maxBytes := v.GetInt64("UPLOAD_MAX_BYTES")
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}

	return AppConfig{
		ListenAddr:          listenAddr,
		Port:                port,
		DatabasePath:        trimmed(v, "DATABASE_PATH"),
		GinMode:             trimmed(v, "GIN_MODE"),
		JWTSecret:           trimmed(v, "JWT_SECRET"),
		JWTExpiresIn:        accessTTL,
		JWTRefreshSecret:    trimmed(v, "JWT_REFRESH_SECRET"),
		JWTRefreshExpiresIn: refreshTTL,
		UploadDir:           trimmed(v, "UPLOAD_DIR"),
		UploadURLPath:       uploadURLPath,
		UploadMaxBytes:      maxBytes,
		CORSOrigins:         splitList(trimmed(v, "CORS_ORIGINS")),
		RedisAddr:           trimmed(v, "REDIS_ADDR"),
		RedisPassword:       trimmed(v, "REDIS_PASSWORD"),
		RedisDB:             v.GetInt("REDIS_DB"),
		RabbitMQURL:         trimmed(v, "RABBITMQ_URL"),
		RabbitMQQueue:       trimmed(v, "RABBITMQ_QUEUE"),
		LogLevel:            trimmed(v, "LOG_LEVEL"),
		LogFormat:           trimmed(v, "LOG_FORMAT"),
		SuperRootUserName:   trimmed(v, "SUPER_ROOT_USER_NAME"),
		SuperRootEmail:      trimmed(v, "SUPER_ROOT_EMAIL"),
		SuperRootPassword:   trimmed(v, "SUPER_ROOT_PASSWORD"),
		ConfigFileUsed:      v.ConfigFileUsed(),
	}, nil
}

// UsesDefaultSecrets reports whether either token secret is empty or still the built-in default.
func (c AppConfig) UsesDefaultSecrets() bool {
	return c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret ||
		c.JWTRefreshSecret == "" || c.JWTRefreshSecret == DefaultJWTRefreshSecret
}

// CheckSecrets 在 release 模式下拒绝默认密钥，其他模式放行。
func (c AppConfig) CheckSecrets() error {
	if c.GinMode == "release" && c.UsesDefaultSecrets() {
		return ErrInsecureSecrets
	}
	return nil
}

// ParseDuration 在 time.ParseDuration 之外支持 "7d" 这样的天数写法。
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("duration is empty")
	}
	if strings.HasSuffix(raw, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(raw, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid day duration %q", raw)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", raw)
	}
	return d, nil
}

func trimmed(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

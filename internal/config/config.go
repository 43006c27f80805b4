package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

const defaultJWTSecret = "companionbot_secret_key"

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Sentiment SentimentConfig
	Store     StoreConfig
	Auth      AuthConfig
	Chat      ChatConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	sentiment, err := loadSentimentConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Sentiment: sentiment, Store: store, Auth: auth, Chat: chat}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8001"
	}

	origins := splitList(getEnvOrDefault("CORS_ORIGINS", "*"))

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8001" 或 "127.0.0.1:8001"。
		return ServerConfig{Addr: port, CORSOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, CORSOrigins: origins}, nil
}

// 生成回复的模型提供方
const (
	ProviderArk    = "ark"
	ProviderOpenAI = "openai"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider string

	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	GenerationTimeout time.Duration
}

// Enabled 表示所选提供方是否具备必需的密钥。
func (c AIConfig) Enabled() bool {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIEnabled()
	}
	return c.ArkEnabled()
}

// ArkEnabled 表示 Ark 模型是否可用。
func (c AIConfig) ArkEnabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// OpenAIEnabled 表示 OpenAI 凭证是否齐全。
func (c AIConfig) OpenAIEnabled() bool {
	return c.OpenAIAPIKey != "" && c.OpenAIModel != ""
}

// NewChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.ArkEnabled() {
		return nil, errors.New("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationEnv("GENERATION_TIMEOUT", 30*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderArk))
	if provider != ProviderArk && provider != ProviderOpenAI {
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q: want ark or openai", provider)
	}

	return AIConfig{
		Provider:          provider,
		APIKey:            strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:         strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:         strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:             strings.TrimSpace(os.Getenv("Model")),
		BaseURL:           getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:            getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:       temperature,
		TopP:              topP,
		MaxTokens:         maxTokens,
		OpenAIAPIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:       strings.TrimSpace(os.Getenv("OPENAI_MODEL")),
		OpenAIBaseURL:     strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		GenerationTimeout: timeout,
	}, nil
}

// 情感分类模型后端
const (
	SentimentNone   = "none"
	SentimentHF     = "hf"
	SentimentLLM    = "llm"
	SentimentOpenAI = "openai"
)

// SentimentConfig 描述情感分类模型配置。
type SentimentConfig struct {
	Model       string
	HFURL       string
	HFToken     string
	OpenAIModel string
	Timeout     time.Duration
}

func loadSentimentConfig() (SentimentConfig, error) {
	timeout, err := parseDurationEnv("SENTIMENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return SentimentConfig{}, err
	}

	backend := strings.ToLower(getEnvOrDefault("SENTIMENT_MODEL", SentimentNone))
	switch backend {
	case SentimentNone, SentimentHF, SentimentLLM, SentimentOpenAI:
	default:
		return SentimentConfig{}, fmt.Errorf("invalid SENTIMENT_MODEL value %q: want none, hf, llm or openai", backend)
	}

	return SentimentConfig{
		Model:       backend,
		HFURL:       strings.TrimSpace(os.Getenv("SENTIMENT_HF_URL")),
		HFToken:     strings.TrimSpace(os.Getenv("SENTIMENT_HF_TOKEN")),
		OpenAIModel: getEnvOrDefault("SENTIMENT_OPENAI_MODEL", strings.TrimSpace(os.Getenv("OPENAI_MODEL"))),
		Timeout:     timeout,
	}, nil
}

// 存储驱动
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMySQL    = "mysql"
)

// StoreConfig 描述持久化配置。
type StoreConfig struct {
	Driver      string
	DatabaseURL string
	MongoURL    string
	DBName      string
	MySQLDSN    string
	// Migrate applies schema migrations on startup.
	Migrate bool
}

func loadStoreConfig() (StoreConfig, error) {
	migrate, err := parseBoolEnv("DB_MIGRATE", true)
	if err != nil {
		return StoreConfig{}, err
	}

	cfg := StoreConfig{
		Migrate:     migrate,
		Driver:      strings.ToLower(getEnvOrDefault("STORE_DRIVER", DriverMemory)),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		MongoURL:    strings.TrimSpace(os.Getenv("MONGO_URL")),
		DBName:      getEnvOrDefault("DB_NAME", "companionbot"),
		MySQLDSN:    strings.TrimSpace(os.Getenv("MYSQL_DSN")),
	}

	switch cfg.Driver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return StoreConfig{}, errors.New("STORE_DRIVER=postgres requires DATABASE_URL")
		}
	case DriverMongo:
		if cfg.MongoURL == "" {
			return StoreConfig{}, errors.New("STORE_DRIVER=mongo requires MONGO_URL")
		}
	case DriverMySQL:
		if cfg.MySQLDSN == "" {
			return StoreConfig{}, errors.New("STORE_DRIVER=mysql requires MYSQL_DSN")
		}
	default:
		return StoreConfig{}, fmt.Errorf("invalid STORE_DRIVER value %q", cfg.Driver)
	}
	return cfg, nil
}

// AuthConfig 描述令牌签发配置。
type AuthConfig struct {
	JWTSecret  string
	Expiration time.Duration
	Production bool
}

func loadAuthConfig() (AuthConfig, error) {
	production := strings.EqualFold(strings.TrimSpace(os.Getenv("APP_ENV")), "production")

	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		if production {
			return AuthConfig{}, errors.New("JWT_SECRET must be set when APP_ENV=production")
		}
		secret = defaultJWTSecret
	}

	hours := 24
	if override, err := parseOptionalIntEnv("JWT_EXPIRATION_HOURS"); err != nil {
		return AuthConfig{}, err
	} else if override != nil && *override > 0 {
		hours = *override
	}

	return AuthConfig{
		JWTSecret:  secret,
		Expiration: time.Duration(hours) * time.Hour,
		Production: production,
	}, nil
}

// ChatConfig 描述对话处理限制。
type ChatConfig struct {
	MaxMessageLength    int
	HistoryDefaultLimit int
	HistoryMaxLimit     int
	RateLimitWindow     time.Duration
	RateLimitCapacity   int
	UserConcurrency     int
}

func loadChatConfig() (ChatConfig, error) {
	cfg := ChatConfig{
		MaxMessageLength:    4000,
		HistoryDefaultLimit: 50,
		HistoryMaxLimit:     500,
		RateLimitWindow:     10 * time.Second,
		RateLimitCapacity:   5,
		UserConcurrency:     2,
	}

	ints := []struct {
		key    string
		target *int
	}{
		{"CHAT_MAX_MESSAGE_LENGTH", &cfg.MaxMessageLength},
		{"CHAT_HISTORY_DEFAULT_LIMIT", &cfg.HistoryDefaultLimit},
		{"CHAT_HISTORY_MAX_LIMIT", &cfg.HistoryMaxLimit},
		{"RATE_LIMIT_CAPACITY", &cfg.RateLimitCapacity},
		{"USER_CONCURRENCY_LIMIT", &cfg.UserConcurrency},
	}
	for _, item := range ints {
		val, err := parseOptionalIntEnv(item.key)
		if err != nil {
			return ChatConfig{}, err
		}
		if val == nil {
			continue
		}
		if *val < 1 {
			return ChatConfig{}, fmt.Errorf("invalid %s value %d: must be positive", item.key, *val)
		}
		*item.target = *val
	}

	window, err := parseOptionalIntEnv("RATE_LIMIT_WINDOW_SECONDS")
	if err != nil {
		return ChatConfig{}, err
	}
	if window != nil && *window > 0 {
		cfg.RateLimitWindow = time.Duration(*window) * time.Second
	}

	if cfg.HistoryDefaultLimit > cfg.HistoryMaxLimit {
		cfg.HistoryDefaultLimit = cfg.HistoryMaxLimit
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

// parseDurationEnv 接受 Go 时长格式（"30s"）或纯秒数（"30"）。
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
		}
		return time.Duration(secs) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

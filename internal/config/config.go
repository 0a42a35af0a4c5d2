package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server        ServerConfig
	AI            AIConfig
	Vision        VisionConfig
	History       HistoryConfig
	Observability ObservabilityConfig
}

// Load 从可选的 YAML 文件和环境变量加载配置，环境变量优先。
func Load() (*Config, error) {
	file, err := loadFile(strings.TrimSpace(os.Getenv("EMPATHAI_CONFIG_FILE")))
	if err != nil {
		return nil, err
	}

	server, err := loadServerConfig(file.Server)
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig(file.AI)
	if err != nil {
		return nil, err
	}

	vision, err := loadVisionConfig(file.Vision)
	if err != nil {
		return nil, err
	}

	history, err := loadHistoryConfig(file.History)
	if err != nil {
		return nil, err
	}

	observability, err := loadObservabilityConfig(file.Observability)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:        server,
		AI:            ai,
		Vision:        vision,
		History:       history,
		Observability: observability,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig(file fileServer) (ServerConfig, error) {
	port := getEnvOrDefault("PORT", file.Port)
	if port == "" {
		port = "8080"
	}

	shutdown, err := parseDurationEnv("SHUTDOWN_TIMEOUT", file.ShutdownTimeout, 10*time.Second)
	if err != nil {
		return ServerConfig{}, err
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, ShutdownTimeout: shutdown}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, ShutdownTimeout: shutdown}, nil
}

// Provider 选择文本情绪分类与回复生成所用的模型后端。
type Provider string

const (
	ProviderArk     Provider = "ark"
	ProviderOpenAI  Provider = "openai"
	ProviderKeyword Provider = "keyword"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider Provider

	// Ark (火山方舟)
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string

	// OpenAI 兼容网关
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// ClassifierModel 为空时与回复共用同一模型。
	ClassifierModel string

	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	StreamResponse bool
	Timeout        time.Duration
}

// Enabled 表示所选后端是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderKeyword:
		return true
	case ProviderOpenAI:
		return c.OpenAIAPIKey != "" && c.OpenAIModel != ""
	default:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	}
}

func loadAIConfig(file fileAI) (AIConfig, error) {
	provider := Provider(strings.ToLower(getEnvOrDefault("AI_PROVIDER", file.Provider)))
	if provider == "" {
		provider = ProviderOpenAI
		if strings.TrimSpace(os.Getenv("ARK_API_KEY")) != "" || strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")) != "" {
			provider = ProviderArk
		}
	}
	switch provider {
	case ProviderArk, ProviderOpenAI, ProviderKeyword:
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", provider)
	}

	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	if temperature == nil {
		temperature = file.Temperature
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}
	if maxTokens == nil {
		maxTokens = file.MaxTokens
	}

	streamDefault := true
	if file.Stream != nil {
		streamDefault = *file.Stream
	}
	stream, err := parseBoolEnv("AI_STREAM", streamDefault)
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationEnv("AI_TIMEOUT", file.Timeout, 30*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		Provider:        provider,
		APIKey:          strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:       strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:       strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:           getEnvOrDefault("ARK_MODEL", file.ArkModel),
		BaseURL:         getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:          getEnvOrDefault("ARK_REGION", "cn-beijing"),
		OpenAIAPIKey:    strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:   getEnvOrDefault("OPENAI_BASE_URL", file.OpenAIBaseURL),
		OpenAIModel:     getEnvOrDefault("OPENAI_MODEL", defaultString(file.OpenAIModel, "google/gemini-2.5-flash")),
		ClassifierModel: getEnvOrDefault("AI_CLASSIFIER_MODEL", file.ClassifierModel),
		Temperature:     temperature,
		TopP:            topP,
		MaxTokens:       maxTokens,
		StreamResponse:  stream,
		Timeout:         timeout,
	}, nil
}

// VisionConfig 控制模拟摄像头。
type VisionConfig struct {
	SimulatorEnabled bool
	Interval         time.Duration
}

func loadVisionConfig(file fileVision) (VisionConfig, error) {
	enabledDefault := true
	if file.SimulatorEnabled != nil {
		enabledDefault = *file.SimulatorEnabled
	}
	enabled, err := parseBoolEnv("VISION_SIMULATOR_ENABLED", enabledDefault)
	if err != nil {
		return VisionConfig{}, err
	}

	interval, err := parseDurationEnv("VISION_INTERVAL", file.Interval, 3*time.Second)
	if err != nil {
		return VisionConfig{}, err
	}
	if interval <= 0 {
		return VisionConfig{}, fmt.Errorf("VISION_INTERVAL must be positive, got %s", interval)
	}

	return VisionConfig{SimulatorEnabled: enabled, Interval: interval}, nil
}

// HistoryConfig 限制每个会话保留的情绪记录条数。
type HistoryConfig struct {
	Limit int
}

func loadHistoryConfig(file fileHistory) (HistoryConfig, error) {
	limit := 1000
	if file.Limit > 0 {
		limit = file.Limit
	}
	override, err := parseOptionalIntEnv("HISTORY_LIMIT")
	if err != nil {
		return HistoryConfig{}, err
	}
	if override != nil {
		if *override < 1 {
			limit = 1
		} else {
			limit = *override
		}
	}
	return HistoryConfig{Limit: limit}, nil
}

// ObservabilityConfig 控制指标与追踪。
type ObservabilityConfig struct {
	MetricsEnabled bool
	ServiceName    string
}

func loadObservabilityConfig(file fileObservability) (ObservabilityConfig, error) {
	enabledDefault := true
	if file.MetricsEnabled != nil {
		enabledDefault = *file.MetricsEnabled
	}
	enabled, err := parseBoolEnv("METRICS_ENABLED", enabledDefault)
	if err != nil {
		return ObservabilityConfig{}, err
	}

	return ObservabilityConfig{
		MetricsEnabled: enabled,
		ServiceName:    getEnvOrDefault("OTEL_SERVICE_NAME", defaultString(file.ServiceName, "empathai")),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return strings.TrimSpace(defaultValue)
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
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

// parseDurationEnv 依次使用环境变量、文件值和默认值；纯数字按秒处理。
func parseDurationEnv(key, fileValue string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnvOrDefault(key, fileValue)
	if raw == "" {
		return defaultValue, nil
	}

	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Nyukimin/housedesign_agent/internal/domain/cost"
)

// 対応するLLMプロバイダー名
const (
	ProviderOpenAI   = "openai"
	ProviderClaude   = "claude"
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
)

// Providers は対応するプロバイダー名の一覧
var Providers = []string{ProviderOpenAI, ProviderClaude, ProviderDeepSeek, ProviderGemini, ProviderOllama}

// Config はアプリケーション全体の設定
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Claude   ClaudeConfig   `yaml:"claude"`
	DeepSeek DeepSeekConfig `yaml:"deepseek"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Ollama   OllamaConfig   `yaml:"ollama"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Session  SessionConfig  `yaml:"session"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig はHTTPサーバー設定
type ServerConfig struct {
	Host            string        `yaml:"host" env:"HOUSEDESIGN_SERVER_HOST"`
	Port            int           `yaml:"port" env:"HOUSEDESIGN_SERVER_PORT"`
	CORSOrigins     []string      `yaml:"cors_origins" env:"HOUSEDESIGN_SERVER_CORS_ORIGINS"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HOUSEDESIGN_SERVER_SHUTDOWN_TIMEOUT"`
}

// LLMConfig はプロバイダー選択と共通設定
type LLMConfig struct {
	Provider           string        `yaml:"provider" env:"HOUSEDESIGN_LLM_PROVIDER"`
	ClassifierProvider string        `yaml:"classifier_provider" env:"HOUSEDESIGN_LLM_CLASSIFIER_PROVIDER"` // 空ならProviderと同じ
	Timeout            time.Duration `yaml:"timeout" env:"HOUSEDESIGN_LLM_TIMEOUT"`
	MaxRetries         int           `yaml:"max_retries" env:"HOUSEDESIGN_LLM_MAX_RETRIES"`
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key" env:"OPENAI_API_KEY"` // 環境変数から読み込み推奨
	Model   string `yaml:"model" env:"HOUSEDESIGN_OPENAI_MODEL"`
	BaseURL string `yaml:"base_url" env:"HOUSEDESIGN_OPENAI_BASE_URL"`
}

// ClaudeConfig はClaude API設定
type ClaudeConfig struct {
	APIKey  string `yaml:"api_key" env:"ANTHROPIC_API_KEY"` // 環境変数から読み込み推奨
	Model   string `yaml:"model" env:"HOUSEDESIGN_CLAUDE_MODEL"`
	BaseURL string `yaml:"base_url" env:"HOUSEDESIGN_CLAUDE_BASE_URL"`
}

// DeepSeekConfig はDeepSeek API設定
type DeepSeekConfig struct {
	APIKey  string `yaml:"api_key" env:"DEEPSEEK_API_KEY"` // 環境変数から読み込み推奨
	Model   string `yaml:"model" env:"HOUSEDESIGN_DEEPSEEK_MODEL"`
	BaseURL string `yaml:"base_url" env:"HOUSEDESIGN_DEEPSEEK_BASE_URL"`
}

// GeminiConfig はGemini API設定
type GeminiConfig struct {
	APIKey  string `yaml:"api_key" env:"GEMINI_API_KEY"` // 環境変数から読み込み推奨
	Model   string `yaml:"model" env:"HOUSEDESIGN_GEMINI_MODEL"`
	BaseURL string `yaml:"base_url" env:"HOUSEDESIGN_GEMINI_BASE_URL"`
}

// OllamaConfig はOllama設定
type OllamaConfig struct {
	BaseURL string `yaml:"base_url" env:"HOUSEDESIGN_OLLAMA_BASE_URL"`
	Model   string `yaml:"model" env:"HOUSEDESIGN_OLLAMA_MODEL"`
}

// PricingConfig は費用概算の単価設定
type PricingConfig struct {
	RatePerArea float64 `yaml:"rate_per_area" env:"HOUSEDESIGN_PRICING_RATE_PER_AREA"`
	Currency    string  `yaml:"currency" env:"HOUSEDESIGN_PRICING_CURRENCY"`
	Region      string  `yaml:"region" env:"HOUSEDESIGN_PRICING_REGION"`
}

// SessionConfig はセッション設定
type SessionConfig struct {
	HistoryWindow int           `yaml:"history_window" env:"HOUSEDESIGN_SESSION_HISTORY_WINDOW"` // LLMに渡す直近ターン数
	IdleTimeout   time.Duration `yaml:"idle_timeout" env:"HOUSEDESIGN_SESSION_IDLE_TIMEOUT"`     // serveで無操作セッションを破棄するまでの時間
	HistoryFile   string        `yaml:"history_file" env:"HOUSEDESIGN_SESSION_HISTORY_FILE"`     // REPLの入力履歴
}

// LogConfig はログ設定
type LogConfig struct {
	Level  string `yaml:"level" env:"HOUSEDESIGN_LOG_LEVEL"`
	Format string `yaml:"format" env:"HOUSEDESIGN_LOG_FORMAT"`
	Output string `yaml:"output" env:"HOUSEDESIGN_LOG_OUTPUT"`
}

// DefaultConfig はデフォルト値の設定を返す
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			Provider:   ProviderOpenAI,
			Timeout:    60 * time.Second,
			MaxRetries: 2,
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o",
		},
		Claude: ClaudeConfig{
			Model: "claude-sonnet-4-20250514",
		},
		DeepSeek: DeepSeekConfig{
			Model: "deepseek-chat",
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3",
		},
		Pricing: PricingConfig{
			RatePerArea: cost.DefaultRatePerArea,
			Currency:    cost.DefaultCurrency,
			Region:      cost.DefaultRegion,
		},
		Session: SessionConfig{
			HistoryWindow: 10,
			IdleTimeout:   2 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// LoadConfig は設定ファイルを読み込む
// path が空ならデフォルト値と環境変数のみを使う
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	// ファイル読み込み
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// YAMLパース（未指定のキーはデフォルト値のまま）
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	// 環境変数で上書き
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// バリデーション
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv は .env ファイルを環境変数に読み込む（存在しないファイルは無視）
// 既に設定済みの環境変数は上書きしない
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// Validate は設定の妥当性を検証
func (c *Config) Validate() error {
	// サーバー設定検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}

	// LLM設定検証
	if !slices.Contains(Providers, c.LLM.Provider) {
		return fmt.Errorf("unknown llm provider: %q (must be one of %v)", c.LLM.Provider, Providers)
	}
	if c.LLM.ClassifierProvider != "" && !slices.Contains(Providers, c.LLM.ClassifierProvider) {
		return fmt.Errorf("unknown llm classifier_provider: %q (must be one of %v)", c.LLM.ClassifierProvider, Providers)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm max_retries must not be negative")
	}

	if c.Ollama.BaseURL == "" {
		return fmt.Errorf("ollama base_url is required")
	}

	// 単価設定検証
	if err := c.CostPricing().Validate(); err != nil {
		return fmt.Errorf("invalid pricing: %w", err)
	}

	// セッション設定検証
	if c.Session.HistoryWindow < 1 {
		return fmt.Errorf("session history_window must be 1 or greater")
	}

	// ログ設定検証
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log format: %q (must be json or console)", c.Log.Format)
	}

	return nil
}

// ClassifierProvider は分類器に使うプロバイダー名を返す
func (c *Config) ClassifierProvider() string {
	if c.LLM.ClassifierProvider != "" {
		return c.LLM.ClassifierProvider
	}
	return c.LLM.Provider
}

// APIKey はプロバイダーのAPIキーを返す（ollamaは空）
func (c *Config) APIKey(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return c.OpenAI.APIKey
	case ProviderClaude:
		return c.Claude.APIKey
	case ProviderDeepSeek:
		return c.DeepSeek.APIKey
	case ProviderGemini:
		return c.Gemini.APIKey
	default:
		return ""
	}
}

// RequireAPIKeys は使用するホスト型プロバイダーのAPIキーが設定済みかを検証
func (c *Config) RequireAPIKeys() error {
	for _, provider := range []string{c.LLM.Provider, c.ClassifierProvider()} {
		if provider == ProviderOllama {
			continue
		}
		if c.APIKey(provider) == "" {
			return fmt.Errorf("%s API key is not configured", provider)
		}
	}
	return nil
}

// CostPricing は会話に渡す単価設定を返す
func (c *Config) CostPricing() cost.Pricing {
	return cost.Pricing{
		RatePerArea: c.Pricing.RatePerArea,
		Currency:    c.Pricing.Currency,
		Region:      c.Pricing.Region,
	}
}

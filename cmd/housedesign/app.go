package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Nyukimin/housedesign_agent/internal/adapter/config"
	"github.com/Nyukimin/housedesign_agent/internal/adapter/render"
	"github.com/Nyukimin/housedesign_agent/internal/application/orchestrator"
	"github.com/Nyukimin/housedesign_agent/internal/domain/agent"
	"github.com/Nyukimin/housedesign_agent/internal/domain/llm"
	"github.com/Nyukimin/housedesign_agent/internal/infrastructure/health"
	"github.com/Nyukimin/housedesign_agent/internal/infrastructure/llm/claude"
	"github.com/Nyukimin/housedesign_agent/internal/infrastructure/llm/deepseek"
	"github.com/Nyukimin/housedesign_agent/internal/infrastructure/llm/gemini"
	"github.com/Nyukimin/housedesign_agent/internal/infrastructure/llm/ollama"
	"github.com/Nyukimin/housedesign_agent/internal/infrastructure/llm/openai"
	"github.com/Nyukimin/housedesign_agent/internal/infrastructure/logging"
	convrepo "github.com/Nyukimin/housedesign_agent/internal/infrastructure/persistence/conversation"
	"github.com/Nyukimin/housedesign_agent/internal/infrastructure/routing"
)

// App はアプリケーション依存関係
type App struct {
	cfg          *config.Config
	logger       *zap.Logger
	repo         *convrepo.MemoryRepository
	orchestrator *orchestrator.MessageOrchestrator
	checker      *health.Checker
}

// loadConfig は .env・設定ファイル・環境変数を読み込みAPIキーを検証
func loadConfig(opts *rootOptions) (*config.Config, error) {
	if err := config.LoadDotEnv(opts.envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireAPIKeys(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildApp は依存関係を構築
func buildApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	// 1. LLM Providers
	chatProvider, err := newProvider(cfg, cfg.LLM.Provider, logger)
	if err != nil {
		return nil, err
	}
	classifierProvider := chatProvider
	if cfg.ClassifierProvider() != cfg.LLM.Provider {
		classifierProvider, err = newProvider(cfg, cfg.ClassifierProvider(), logger)
		if err != nil {
			return nil, err
		}
	}

	// 2. Routing Components
	classifier := routing.NewLLMClassifier(classifierProvider)
	ruleDictionary := routing.NewRuleDictionary()

	// 3. Agents
	designer := agent.NewDesigner(chatProvider, classifier, ruleDictionary)
	advisor := agent.NewAdvisor(chatProvider)

	// 4. Conversation Repository
	repo := convrepo.NewMemoryRepository()

	// 5. Application Orchestrator
	orch := orchestrator.NewMessageOrchestrator(
		repo,
		designer,
		advisor,
		render.NewMarkdown(),
		logger,
		orchestrator.Options{
			Pricing:       cfg.CostPricing(),
			HistoryWindow: cfg.Session.HistoryWindow,
		},
	)

	logger.Info("dependency injection complete",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("classifier_provider", cfg.ClassifierProvider()),
		zap.String("region", cfg.Pricing.Region))

	return &App{
		cfg:          cfg,
		logger:       logger,
		repo:         repo,
		orchestrator: orch,
		checker:      newHealthChecker(cfg),
	}, nil
}

// newLogger は設定からロガーを作成
// quiet の場合、標準エラーへの出力は警告以上に絞る
func newLogger(cfg *config.Config, quiet bool) (*zap.Logger, error) {
	level := cfg.Log.Level
	if quiet && (cfg.Log.Output == "" || cfg.Log.Output == "stderr") && logging.ParseLevel(level) < zap.WarnLevel {
		level = "warn"
	}
	return logging.NewLogger(logging.Options{
		Level:       level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		ServiceName: "housedesign",
	})
}

// newProvider はプロバイダー名からLLMProviderを作成
func newProvider(cfg *config.Config, name string, logger *zap.Logger) (llm.LLMProvider, error) {
	switch name {
	case config.ProviderOpenAI:
		p := openai.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		if cfg.OpenAI.BaseURL != "" {
			p.SetBaseURL(cfg.OpenAI.BaseURL)
		}
		p.SetTimeout(cfg.LLM.Timeout)
		p.SetMaxRetries(cfg.LLM.MaxRetries)
		return p, nil
	case config.ProviderDeepSeek:
		p := deepseek.NewDeepSeekProvider(cfg.DeepSeek.APIKey, cfg.DeepSeek.Model)
		if cfg.DeepSeek.BaseURL != "" {
			p.SetBaseURL(cfg.DeepSeek.BaseURL)
		}
		p.SetTimeout(cfg.LLM.Timeout)
		p.SetMaxRetries(cfg.LLM.MaxRetries)
		return p, nil
	case config.ProviderClaude:
		p := claude.NewClaudeProvider(cfg.Claude.APIKey, cfg.Claude.Model)
		if cfg.Claude.BaseURL != "" {
			p.SetBaseURL(cfg.Claude.BaseURL)
		}
		p.SetTimeout(cfg.LLM.Timeout)
		p.SetMaxRetries(cfg.LLM.MaxRetries)
		return p, nil
	case config.ProviderGemini:
		p := gemini.NewGeminiProvider(cfg.Gemini.APIKey, cfg.Gemini.Model)
		if cfg.Gemini.BaseURL != "" {
			p.SetBaseURL(cfg.Gemini.BaseURL)
		}
		p.SetTimeout(cfg.LLM.Timeout)
		return p, nil
	case config.ProviderOllama:
		p := ollama.NewOllamaProvider(cfg.Ollama.BaseURL, cfg.Ollama.Model, logger.Named("ollama"))
		p.SetRetryCount(cfg.LLM.MaxRetries)
		return p, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", name)
	}
}

// newHealthChecker は使用するプロバイダーのヘルスチェックを登録
func newHealthChecker(cfg *config.Config) *health.Checker {
	checker := health.NewChecker()

	seen := map[string]bool{}
	for _, provider := range []string{cfg.LLM.Provider, cfg.ClassifierProvider()} {
		if seen[provider] {
			continue
		}
		seen[provider] = true

		if provider == config.ProviderOllama {
			checker.Register("ollama", health.OllamaCheck(cfg.Ollama.BaseURL, healthTimeout))
			checker.Register("ollama_models", health.OllamaModelsCheck(cfg.Ollama.BaseURL, healthTimeout, []string{cfg.Ollama.Model}))
			continue
		}
		checker.Register(provider, health.APIKeyCheck(provider, cfg.APIKey(provider)))
	}
	return checker
}

package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options はロガー生成の設定
type Options struct {
	Level       string // "debug" / "info" / "warn" / "error"（既定: info）
	Format      string // "json" / "console"（既定: json）
	Output      string // "stdout" / "stderr" / ファイルパス（既定: stderr）
	ServiceName string
}

// ParseLevel はレベル文字列をzapcore.Levelに変換（不明な値はinfo）
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger はOptionsからzap.Loggerを作成
// REPLの出力と混ざらないよう既定の出力先はstderr
func NewLogger(opts Options) (*zap.Logger, error) {
	var config zap.Config
	switch opts.Format {
	case "console":
		config = zap.NewDevelopmentConfig()
	case "", "json":
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("unknown log format: %q", opts.Format)
	}
	config.Level = zap.NewAtomicLevelAt(ParseLevel(opts.Level))

	output := opts.Output
	if output == "" {
		output = "stderr"
	}
	config.OutputPaths = []string{output}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	if opts.ServiceName != "" {
		logger = logger.With(zap.String("service_name", opts.ServiceName))
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		logger = logger.With(zap.String("hostname", hostname))
	}

	return logger, nil
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Nyukimin/housedesign_agent/internal/adapter/cli"
)

const (
	chatPrompt    = "you> "
	markdownWidth = 100
)

func runChat(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, !opts.verbose)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	app, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}

	reader, err := cli.NewReadline(chatPrompt, cfg.Session.HistoryFile)
	if err != nil {
		return err
	}

	var renderer cli.Renderer = cli.PlainRenderer{}
	if glamourRenderer, err := cli.NewGlamourRenderer(markdownWidth); err == nil {
		renderer = glamourRenderer
	} else {
		logger.Debug("falling back to plain output", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer stop()

	repl := cli.NewREPL(app.orchestrator, reader, os.Stdout, renderer, logger.Named("cli"))
	return repl.Run(ctx)
}

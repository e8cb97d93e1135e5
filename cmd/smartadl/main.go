package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"

	"smartadl/internal/auth"
	"smartadl/internal/config"
	"smartadl/internal/db"
	"smartadl/internal/harness"
	"smartadl/internal/history"
	"smartadl/internal/llm"
	"smartadl/internal/prompts"
	"smartadl/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer database.Close()

	queries := db.NewQueries(database)
	accounts := auth.New(queries)
	promptStore := prompts.New(queries)
	historyStore := history.New(queries)

	timeout, err := cfg.CallTimeout()
	if err != nil {
		return err
	}
	client, err := llm.NewClient(ctx, cfg.APIKey, timeout)
	if err != nil {
		return err
	}

	h := harness.New(promptStore, historyStore, client, cfg.TestModel)

	srv, err := server.New(logger, accounts, promptStore, historyStore, h, client, cfg.AssistantModel)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if err := srv.Listen(cfg.Addr); err != nil {
		return err
	}

	openBrowser("http://" + srv.Addr())

	return srv.Serve(ctx)
}

func newLogger(debug bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if debug {
		zcfg = zap.NewDevelopmentConfig()
	}
	return zcfg.Build()
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}
	cmd.Start()
}

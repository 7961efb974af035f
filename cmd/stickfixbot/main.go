// Command stickfixbot runs the StickFix Telegram bot: it loads
// configuration, opens the persistent and ephemeral stores, and drives
// the Telegram update loop until the process receives a termination
// signal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/stickfix/stickfix/internal/command"
	"github.com/stickfix/stickfix/internal/config"
	stickfixdb "github.com/stickfix/stickfix/internal/db"
	"github.com/stickfix/stickfix/internal/ephemeral"
	"github.com/stickfix/stickfix/internal/fsm"
	"github.com/stickfix/stickfix/internal/logger"
	"github.com/stickfix/stickfix/internal/store"
	"github.com/stickfix/stickfix/internal/telegram"
	"github.com/stickfix/stickfix/migrations"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	conn, err := stickfixdb.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("open persistent store: %w", err)
	}
	defer conn.Close()

	persistent, err := store.Init(logger.L, conn, migrations.FS)
	if err != nil {
		return fmt.Errorf("init persistent store: %w", err)
	}

	keyRes := persistent.QueryAPIKey(ctx)
	if !keyRes.OK() {
		return fmt.Errorf("load api key: %s", keyRes.Message())
	}
	apiKey, _ := keyRes.Data()

	eph, err := ephemeral.Init(ctx, logger.L, cfg.Ephemeral.EvictionInterval(), cfg.Ephemeral.EvictionThreshold())
	if err != nil {
		return fmt.Errorf("init ephemeral store: %w", err)
	}
	defer eph.Close()

	dispatcher, err := telegram.New(apiKey, logger.L)
	if err != nil {
		return fmt.Errorf("create telegram dispatcher: %w", err)
	}

	handlers := &command.Handlers{
		Deps:      fsm.Deps{Persistent: persistent, Ephemeral: eph, Logger: logger.L},
		Transport: dispatcher,
		Logger:    logger.L,
	}

	if err := dispatcher.RegisterCommands(handlers.Commands()); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	dispatcher.RegisterCallbacks(handlers.Callbacks())

	digest, err := telegram.StartDailyDigest(persistent, logger.L)
	if err != nil {
		return fmt.Errorf("start daily digest: %w", err)
	}
	defer digest.Stop()

	logger.Info("stickfix bot started")
	dispatcher.Run(ctx)
	logger.Info("stickfix bot stopped")
	return nil
}

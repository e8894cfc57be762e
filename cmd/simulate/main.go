package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/peerfeedback/internal/simulate"
	"github.com/okian/peerfeedback/pkg/logger"
)

const runTimeout = 10 * time.Minute

func main() {
	cfg, err := simulate.ParseFlags("simulate", os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Stderr.WriteString("invalid arguments: " + err.Error() + "\n")
		os.Exit(2)
	}

	level := "info"
	if cfg.Verbose {
		level = "debug"
	}
	if err := logger.Init(logger.WithLevel(level)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		logger.Get().Error(context.Background(), "simulation failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg *simulate.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	_, err := simulate.Run(ctx, cfg)
	return err
}

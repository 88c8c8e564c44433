package main

import (
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/tanakrit/coinquest/internal/auth"
	"github.com/tanakrit/coinquest/internal/engine"
	"github.com/tanakrit/coinquest/internal/randutil"
	"github.com/tanakrit/coinquest/internal/server"
	"github.com/tanakrit/coinquest/internal/store"
)

var CLI struct {
	Config    string `short:"c" long:"config" default:"coinquest.hcl" help:"Path to HCL configuration file"`
	Addr      string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel  string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	StateFile string `short:"s" long:"state-file" help:"Path to the persisted game state (overrides config)"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// Load configuration
	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		if host, port, err := net.SplitHostPort(CLI.Addr); err == nil {
			cfg.Server.Address = host
			if p, err := strconv.Atoi(port); err == nil {
				cfg.Server.Port = p
			}
		} else {
			cfg.Server.Address = CLI.Addr
		}
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.StateFile != "" {
		cfg.Server.StateFile = CLI.StateFile
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	// Setup logging
	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	var rng *rand.Rand
	if cfg.Server.Seed != 0 {
		rng = randutil.New(cfg.Server.Seed)
	} else {
		rng = randutil.NewFromTime()
	}

	rules := cfg.Rules()
	catalog := cfg.Catalog()
	logger.Info("Starting CoinQuest server",
		"addr", cfg.GetAddress(),
		"rounds", rules.MaxRounds,
		"events", catalog.Len())

	st := store.New(cfg.Server.StateFile, nil, logger)
	eng := engine.New(rules, catalog, rng, logger)
	validator := auth.NewPasswordValidator(cfg.Server.GMPassword)

	wsServer := server.NewServer(cfg.GetAddress(), logger)
	gameService := server.NewGameService(st, eng, validator, logger)
	wsServer.SetGameService(gameService)

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Info("Shutting down server...")
		_ = wsServer.Stop()
		os.Exit(0)
	}()

	// Start server (this blocks)
	if err := wsServer.Start(); err != nil {
		logger.Error("Server failed", "error", err)
		ctx.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/tanakrit/coinquest/internal/client"
	"github.com/tanakrit/coinquest/internal/tui"
)

var CLI struct {
	Config string `short:"c" long:"config" default:"coinquest-client.hcl" help:"Path to HCL configuration file"`
	Server string `kong:"default='',help='WebSocket server URL (overrides config)'"`
	Name   string `kong:"default='',help='Display name (overrides config)'"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("coinquest-client"),
		kong.Description("Interactive terminal client for the CoinQuest budgeting game"),
		kong.UsageOnError(),
	)

	cfg, err := client.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	if s := strings.TrimSpace(CLI.Server); s != "" {
		cfg.Server.URL = s
	}
	if n := strings.TrimSpace(CLI.Name); n != "" {
		cfg.Player.Name = n
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	if cfg.UI.NoColor || termenv.EnvNoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	// Log to a file so the TUI owns the terminal
	logFile, err := os.OpenFile(cfg.UI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Printf("Error opening log file: %v\n", err)
		ctx.Exit(1)
	}
	defer func() { _ = logFile.Close() }()

	logger := log.New(logFile)
	switch cfg.UI.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.WarnLevel)
	}

	if err := tui.Run(cfg, logger); err != nil {
		ctx.FatalIfErrorf(err)
	}
}

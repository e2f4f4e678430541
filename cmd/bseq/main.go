package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/keyush06/BSE-closing-prices---quarterly/internal/app"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/common"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/server"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/services/scraper"
)

var (
	configFile   = flag.String("config", "", "Configuration file path")
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP  = flag.Int("p", 0, "Server port (shorthand, overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// One-shot collection mode: fetch quarterly closes for a scrip and
	// print CSV to stdout instead of starting the server.
	scripCode  = flag.String("scrip", "", "Collect quarterly closes for this scrip code and exit")
	startMonth = flag.Int("month", 1, "Start month for collection (1-12)")
	startYear  = flag.Int("year", 2020, "Start year for collection")

	config *common.Config
	logger arbor.ILogger
)

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("bseq version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup order: config (defaults -> file -> env), CLI overrides,
	// logger, banner.
	path := *configFile
	if path == "" {
		if _, err := os.Stat("bseq.toml"); err == nil {
			path = "bseq.toml"
		}
	}

	var err error
	config, err = common.LoadFromFile(path)
	if err != nil {
		arbor.NewLogger().Fatal().Str("path", path).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}
	if finalPort != 0 {
		config.Server.Port = finalPort
	}
	if *serverHost != "" {
		config.Server.Host = *serverHost
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	if *scripCode != "" {
		runCollect()
		return
	}

	runServe()
}

// runCollect performs a single collection run and writes CSV to stdout.
func runCollect() {
	logger.Info().
		Str("scrip", *scripCode).
		Int("month", *startMonth).
		Int("year", *startYear).
		Str("strategy", config.Scraper.Strategy).
		Msg("Starting one-shot collection")

	collector := scraper.NewCollector(config.Scraper, logger)

	rows, err := collector.CollectQuarters(context.Background(), *scripCode, *startMonth, *startYear)
	if err != nil {
		logger.Fatal().Err(err).Msg("Collection failed")
		os.Exit(1)
	}

	writer := csv.NewWriter(os.Stdout)
	_ = writer.Write([]string{"Quarter End", "Close"})
	for _, row := range rows {
		_ = writer.Write([]string{row.QuarterEnd, row.Close.String()})
	}
	writer.Flush()

	logger.Info().Int("quarters", len(rows)).Msg("Collection complete")
}

// runServe starts the HTTP server and blocks until interrupted.
func runServe() {
	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start background components")
		os.Exit(1)
	}

	srv := server.New(application)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
}

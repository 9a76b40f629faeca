package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"facegate/internal/config"
	"facegate/internal/record"
	"facegate/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance collector",
	Long: `Start the collector web server.
The collector accepts attendance events from devices, appends them to the
CSV log and serves the dashboard for browsing check-ins by date and name.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (overrides collector.addr)")
	serveCmd.Flags().String("csv", "", "Attendance log path (overrides collector.csv_path)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if addr := mustGetString(cmd, "addr"); addr != "" {
		cfg.Collector.Addr = addr
	}
	if csvPath := mustGetString(cmd, "csv"); csvPath != "" {
		cfg.Collector.CSVPath = csvPath
	}

	store := record.NewCSVStore(cfg.Collector.CSVPath)
	server := web.NewServer(cfg.Collector, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("collector listening", "addr", cfg.Collector.Addr, "csv", cfg.Collector.CSVPath)
	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

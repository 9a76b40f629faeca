package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"periph.io/x/host/v3"

	"facegate/internal/config"
	"facegate/internal/feedback"
	"facegate/internal/hardware"
	"facegate/internal/identity"
	"facegate/internal/notify"
	"facegate/internal/quota"
	"facegate/internal/recognize"
	"facegate/internal/record"
	"facegate/internal/session"
	"facegate/internal/vision"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the attendance device loop",
	Long: `Run the device loop: wait for an RFID scan, train the face model for
the scanned person, verify the live camera feed and record attendance.
The loop runs until interrupted.`,
	RunE: runDevice,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("console", false, "Log feedback to the console instead of driving the LCD and GPIO")
}

func runDevice(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	consoleOnly := mustGetBool(cmd, "console")

	var sink feedback.Sink
	var reader hardware.CredentialReader

	if consoleOnly {
		sink = feedback.NewConsole(logger)
	}
	if !consoleOnly {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("initializing peripheral host: %w", err)
		}
		hw, err := feedback.NewHardware(cfg, logger)
		if err != nil {
			return fmt.Errorf("opening feedback hardware: %w", err)
		}
		sink = hw
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("closing feedback sink", "error", err)
		}
	}()

	reader, err = hardware.NewRFIDReader(cfg.Reader)
	if err != nil {
		return fmt.Errorf("opening RFID reader: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Warn("closing RFID reader", "error", err)
		}
	}()

	detector := vision.NewClient(cfg.Detector.URL, cfg.Detector.ScaleFactor, cfg.Detector.MinNeighbors)

	var notifier notify.Notifier
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		notifier = notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
	} else {
		logger.Info("telegram notifications disabled")
	}

	var recorder record.Recorder
	if cfg.Recorder.URL != "" {
		recorder = record.NewClient(cfg.Recorder.URL)
	} else {
		logger.Info("attendance submission disabled")
	}

	controller := session.NewController(session.Params{
		Reader:      reader,
		Identities:  identity.NewStore(cfg.Dataset.Dir),
		Recognizer:  recognize.New(detector, cfg.Recognize.MatchThreshold),
		Quota:       quota.New(cfg.Quota.DailyLimit),
		Camera:      hardware.NewStreamCamera(cfg.Camera.StreamURL),
		Sink:        sink,
		Notifier:    notifier,
		Recorder:    recorder,
		Logger:      logger,
		MaxFrames:   cfg.Session.MaxFrames,
		MaxDuration: cfg.Session.MaxDuration,
		HoldDelay:   cfg.Session.HoldDelay,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("device ready", "dataset", cfg.Dataset.Dir, "detector", cfg.Detector.URL)
	if err := controller.Run(ctx); err != nil {
		return fmt.Errorf("device loop failed: %w", err)
	}
	logger.Info("device stopped")
	return nil
}

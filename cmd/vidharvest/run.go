package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/vidharvest/api"
	"github.com/yourusername/vidharvest/internal/app"
	"github.com/yourusername/vidharvest/internal/domain"
	"github.com/yourusername/vidharvest/internal/infrastructure"
	"github.com/yourusername/vidharvest/pkg/logger"
)

// errInterrupted is returned when an operator signal stopped the run before the queue drained
var errInterrupted = errors.New("run interrupted")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process the input list",
	Long: `Load the input list, skip pages already recorded in the ledger and download the
media of the rest. The first SIGINT/SIGTERM stops dequeuing and lets in-flight pages
finish; a second one exits immediately.`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringP("input", "i", "", "Input list of page URLs")
	runCmd.Flags().StringP("ledger", "l", "", "Ledger file (file backend)")
	runCmd.Flags().StringP("output", "o", "", "Base directory for downloaded media")
	runCmd.Flags().IntP("workers", "w", 0, "Number of concurrent workers")
	runCmd.Flags().IntP("queue-size", "q", 0, "Maximum number of queued pages")
	runCmd.Flags().Bool("server", false, "Serve the status API while running")
}

// applyRunFlags overrides configuration with explicitly set flags
func applyRunFlags(cmd *cobra.Command, config *domain.Config) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		config.Pipeline.InputFile, _ = flags.GetString("input")
	}
	if flags.Changed("ledger") {
		config.Ledger.Backend = domain.LedgerFile
		config.Ledger.Path, _ = flags.GetString("ledger")
	}
	if flags.Changed("output") {
		config.Download.BaseDir, _ = flags.GetString("output")
	}
	if flags.Changed("workers") {
		config.Pipeline.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("queue-size") {
		config.Pipeline.QueueSize, _ = flags.GetInt("queue-size")
	}
	if flags.Changed("server") {
		config.Server.Enabled, _ = flags.GetBool("server")
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyRunFlags(cmd, config)
	if err := app.ValidateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Logging.LogsDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize event logs: %w", err)
	}
	defer multiLog.Close()

	// Setup errors below abort before any worker starts
	ledger, err := infrastructure.OpenLedger(config.Ledger)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer ledger.Close()

	runs, closeRuns := openRunHistory(config, ledger, log)
	defer closeRuns()

	loader := app.NewWorkListLoader(ledger, log)
	items, report, err := loader.LoadFile(config.Pipeline.InputFile)
	if err != nil {
		return err
	}
	log.Info("Work list loaded",
		zap.String("input", config.Pipeline.InputFile),
		zap.Int("lines", report.Lines),
		zap.Int("blank", report.Blank),
		zap.Int("malformed", report.Malformed),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("already_completed", report.AlreadyCompleted),
		zap.Int("renamed", report.Renamed),
		zap.Int("accepted", report.Accepted))

	if err := os.MkdirAll(config.Download.BaseDir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	handleSignals(cancel, done, log)

	client := infrastructure.NewHTTPGetter(config.HTTP)
	headers := infrastructure.ResolveHeaders(ctx, config.HTTP, client, log)

	pipeline := app.NewPipeline(
		client,
		infrastructure.NewHTMLExtractor(config.Extractor),
		infrastructure.NewHTTPDownloader(client, headers, config.Download.ChunkSize, log),
		ledger,
		app.PipelineOptions{
			Workers:      config.Pipeline.Workers,
			QueueSize:    config.Pipeline.QueueSize,
			MaxPageBytes: config.Pipeline.MaxPageBytes,
			BaseDir:      config.Download.BaseDir,
			DefaultExt:   config.Download.DefaultExt,
			Headers:      headers,
		},
		log,
		multiLog,
	)
	if runs != nil {
		pipeline.SetRunRepository(runs)
	}

	if config.Server.Enabled {
		server := startStatusServer(config, pipeline, ledger, runs, log, multiLog)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("Status server forced to shutdown", zap.Error(err))
			}
		}()
	}

	stats, err := pipeline.Run(ctx, items)
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), report, stats)
	infrastructure.NewNotificationService(&config.Notification, log).NotifyRunFinished(stats)

	if stats.Interrupted && stats.Unprocessed > 0 {
		return errInterrupted
	}
	return nil
}

// openRunHistory returns the run repository, sharing the ledger's database when possible.
// History is best effort: failures are logged and the run continues without it.
func openRunHistory(config *domain.Config, ledger domain.Ledger, log *zap.Logger) (domain.RunRepository, func()) {
	noop := func() {}
	if !config.History.Enabled {
		return nil, noop
	}

	if store, ok := ledger.(*infrastructure.SQLiteStore); ok && config.Ledger.DatabasePath == config.History.DatabasePath {
		return store, noop
	}

	store, err := infrastructure.NewSQLiteStore(config.History.DatabasePath)
	if err != nil {
		log.Warn("Run history disabled", zap.String("database", config.History.DatabasePath), zap.Error(err))
		return nil, noop
	}
	return store, func() { store.Close() }
}

// handleSignals cancels the run on the first signal and exits on the second
func handleSignals(cancel context.CancelFunc, done <-chan struct{}, log *zap.Logger) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			log.Warn("Received shutdown signal, finishing in-flight items", zap.String("signal", sig.String()))
			cancel()
		case <-done:
			return
		}
		select {
		case <-sigCh:
			log.Error("Received second signal, exiting immediately")
			os.Exit(130)
		case <-done:
		}
	}()
}

func startStatusServer(
	config *domain.Config,
	pipeline *app.Pipeline,
	ledger domain.Ledger,
	runs domain.RunRepository,
	log *zap.Logger,
	multiLog *logger.MultiLogger,
) *http.Server {
	router := api.SetupRouter(api.RouterDeps{
		Pipeline:    pipeline,
		Ledger:      ledger,
		Runs:        runs,
		LogsDir:     multiLog.LogsDir(),
		Logger:      log,
		MultiLogger: multiLog,
	})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("Status server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Status server failed", zap.Error(err))
		}
	}()

	return server
}

func printSummary(out io.Writer, report app.LoadReport, stats *domain.RunStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Run Summary:")
	fmt.Fprintf(w, "  Run ID:\t%s\n", stats.RunID)
	fmt.Fprintf(w, "  Input lines:\t%d\n", report.Lines)
	fmt.Fprintf(w, "  Skipped (completed):\t%d\n", report.AlreadyCompleted)
	fmt.Fprintf(w, "  Skipped (duplicate/malformed):\t%d\n", report.Duplicates+report.Malformed)
	fmt.Fprintf(w, "  Queued:\t%d\n", stats.Total)
	fmt.Fprintf(w, "  Completed:\t%d\n", stats.Succeeded)
	fmt.Fprintf(w, "  Failed:\t%d\n", stats.Failed)
	fmt.Fprintf(w, "  Unprocessed:\t%d\n", stats.Unprocessed)
	fmt.Fprintf(w, "  Media found:\t%d\n", stats.Descriptors)
	fmt.Fprintf(w, "  Bytes written:\t%d\n", stats.BytesWritten)
	fmt.Fprintf(w, "  Duration:\t%s\n", stats.Duration().Round(time.Millisecond))
	if stats.Interrupted {
		fmt.Fprintln(w, "  Interrupted:\tyes")
	}
	w.Flush()
}

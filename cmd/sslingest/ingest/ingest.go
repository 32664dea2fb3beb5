package ingest

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sslingest/internal/config"
	"sslingest/internal/dao"
	"sslingest/internal/database"
	"sslingest/internal/notification"
	"sslingest/internal/services"
	"sslingest/internal/ssllabs"
	"sslingest/pkg/logger"
)

// Options holds flag values shared by the ingest commands
type Options struct {
	ConfigPath  string
	Host        string
	IP          string
	StartNew    bool
	FromCache   bool
	Wait        bool
	HostsFile   string
	RunsDir     string
	WaitBetween time.Duration
}

// App wires config, database, API client and optional notifier for a
// single command invocation
type App struct {
	cfg      *config.Config
	rawDao   dao.RawDAO
	client   *ssllabs.Client
	notifier *notification.ReportClient
	logger   *logger.Logger
}

func NewApp(configPath string) (*App, error) {
	appLogger := logger.NewLogger(logrus.InfoLevel)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	database.InitDB(&cfg.DB)

	// Discord run reports are optional
	var notifier *notification.ReportClient
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		notifier, err = notification.NewReportClient()
		if err != nil {
			appLogger.WithError(err).Warn("Failed to initialize Discord client")
			notifier = nil
		} else {
			appLogger.Info("Discord run reports enabled")
		}
	}

	return &App{
		cfg:      cfg,
		rawDao:   dao.NewRawDAO(database.DB),
		client:   ssllabs.NewClient(&cfg.API),
		notifier: notifier,
		logger:   appLogger,
	}, nil
}

func (a *App) Close() error {
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.logger.WithError(err).Warn("Error closing Discord client")
		}
	}
	return database.Close()
}

func (a *App) ingestService() services.IngestServiceMethods {
	return services.NewIngestServiceWithNotifier(a.rawDao, a.client, &a.cfg.Ingest, a.notifier)
}

// runCommand handles the lifecycle every ingest command shares: app setup,
// signal-cancelled context, teardown.
func runCommand(opts *Options, fn func(ctx context.Context, app *App) error) error {
	app, err := NewApp(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			app.logger.WithError(closeErr).Error("Error closing application")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		app.logger.WithFields(logger.Fields{
			"signal": sig.String(),
		}).Info("Received shutdown signal")
		cancel()
	}()

	return fn(ctx, app)
}

// NewInfoCommand creates the info command
func NewInfoCommand() *cobra.Command {
	opts := &Options{}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Fetch /info and store the raw response",
		Long:  `Fetch SSL Labs engine and criteria version metadata from /info and store the raw response body`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runCommand(opts, func(ctx context.Context, app *App) error {
				doc, err := app.ingestService().IngestInfo(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Stored info document %s\n", doc.UUID)
				return nil
			})
		},
	}

	infoCmd.Flags().StringVar(&opts.ConfigPath, "config", "", "Configuration file path")

	return infoCmd
}

// NewAnalyzeCommand creates the analyze command
func NewAnalyzeCommand() *cobra.Command {
	opts := &Options{FromCache: true}

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Fetch /analyze for a host and store the raw response",
		Long: `Fetch an SSL Labs assessment for a host and store the raw response
body, plus one summary document per endpoint the assessment lists`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runCommand(opts, func(ctx context.Context, app *App) error {
				doc, err := app.ingestService().IngestAnalyze(ctx, opts.Host, services.AnalyzeRunOptions{
					StartNew:  opts.StartNew,
					FromCache: opts.FromCache,
					Wait:      opts.Wait,
				})
				if err != nil {
					return err
				}
				fmt.Printf("Stored analyze document %s (status %s)\n", doc.UUID, doc.Status)
				return nil
			})
		},
	}

	analyzeCmd.Flags().StringVar(&opts.ConfigPath, "config", "", "Configuration file path")
	analyzeCmd.Flags().StringVarP(&opts.Host, "host", "H", "", "Target host to analyze (required)")
	analyzeCmd.Flags().BoolVar(&opts.StartNew, "start-new", false, "Force a new assessment instead of a cached one")
	analyzeCmd.Flags().BoolVar(&opts.FromCache, "from-cache", true, "Accept cached assessment results")
	analyzeCmd.Flags().BoolVar(&opts.Wait, "wait", false, "Poll until the assessment is READY or ERROR")

	analyzeCmd.MarkFlagRequired("host")

	return analyzeCmd
}

// NewEndpointCommand creates the endpoint command
func NewEndpointCommand() *cobra.Command {
	opts := &Options{}

	endpointCmd := &cobra.Command{
		Use:   "endpoint",
		Short: "Fetch /getEndpointData for one endpoint and store the raw response",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runCommand(opts, func(ctx context.Context, app *App) error {
				doc, err := app.ingestService().IngestEndpoint(ctx, opts.Host, opts.IP)
				if err != nil {
					return err
				}
				fmt.Printf("Stored endpoint document %s\n", doc.UUID)
				return nil
			})
		},
	}

	endpointCmd.Flags().StringVar(&opts.ConfigPath, "config", "", "Configuration file path")
	endpointCmd.Flags().StringVarP(&opts.Host, "host", "H", "", "Target host (required)")
	endpointCmd.Flags().StringVar(&opts.IP, "ip", "", "Endpoint IP address (required)")

	endpointCmd.MarkFlagRequired("host")
	endpointCmd.MarkFlagRequired("ip")

	return endpointCmd
}

// NewRunCommand creates the run command, the full three-stage sequence
func NewRunCommand() *cobra.Command {
	opts := &Options{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full ingest sequence for a host",
		Long: `Fetch /info, then /analyze (waiting for the assessment to finish),
then /getEndpointData for every endpoint the assessment reported,
storing each raw response in its collection`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runCommand(opts, func(ctx context.Context, app *App) error {
				report, err := app.ingestService().IngestRun(ctx, opts.Host)
				if err != nil {
					return err
				}
				fmt.Printf("Run complete for %s: analyze %s, %d endpoint documents\n",
					report.Host, report.AnalyzeUUID, report.EndpointCount)
				return nil
			})
		},
	}

	runCmd.Flags().StringVar(&opts.ConfigPath, "config", "", "Configuration file path")
	runCmd.Flags().StringVarP(&opts.Host, "host", "H", "", "Target host (required)")

	runCmd.MarkFlagRequired("host")

	return runCmd
}

// NewBatchCommand creates the batch command
func NewBatchCommand() *cobra.Command {
	opts := &Options{}

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze every host listed in a file",
		Long: `Analyze each host in the given file (one per line, or a YAML list),
continuing past per-host failures. A per-run log is written under the
runs directory`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runCommand(opts, func(ctx context.Context, app *App) error {
				if opts.WaitBetween > 0 {
					app.cfg.Ingest.WaitBetween = opts.WaitBetween
				}

				batch := services.NewBatchService(app.rawDao, app.client, &app.cfg.Ingest,
					opts.RunsDir, app.notifier)
				report, err := batch.IngestBatch(ctx, opts.HostsFile)
				if err != nil {
					return err
				}

				fmt.Printf("Batch %s: %d hosts processed, %d failed (log: %s)\n",
					report.RunID, report.Processed, report.Failed, report.LogPath)
				for host, reason := range report.FailedHosts {
					fmt.Printf("  failed: %s (%s)\n", host, reason)
				}
				return nil
			})
		},
	}

	batchCmd.Flags().StringVar(&opts.ConfigPath, "config", "", "Configuration file path")
	batchCmd.Flags().StringVar(&opts.HostsFile, "hosts-file", "", "File with hosts to analyze (required)")
	batchCmd.Flags().StringVar(&opts.RunsDir, "runs-dir", "./runs", "Directory for per-run logs")
	batchCmd.Flags().DurationVar(&opts.WaitBetween, "wait-between", 0, "Delay between API calls (overrides config)")

	batchCmd.MarkFlagRequired("hosts-file")

	return batchCmd
}

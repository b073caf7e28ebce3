package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nexconsult/nfse-api/internal/config"
	"github.com/nexconsult/nfse-api/internal/logger"
	"github.com/nexconsult/nfse-api/internal/services"
	"github.com/nexconsult/nfse-api/internal/utils"
)

// defaultRangeDays is the span downloaded when no dates are given
const defaultRangeDays = 30

type batchOptions struct {
	inicio         string
	fim            string
	skipDownloaded bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &batchOptions{}

	cmd := &cobra.Command{
		Use:   "nfse-batch",
		Short: "Download the XML and PDF of every NFSe issued in a date range",
		Long: "Searches the issued documents on the Emissor Nacional portal and downloads the XML and PDF of each one.\n" +
			"Without dates the 30 days ending today are used.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := resolveRange(opts, time.Now())
			if err != nil {
				return err
			}
			return runBatch(cmd.Context(), start, end, opts.skipDownloaded)
		},
	}

	cmd.Flags().StringVar(&opts.inicio, "inicio", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.fim, "fim", "", "end date (YYYY-MM-DD), defaults to today")
	cmd.Flags().BoolVar(&opts.skipDownloaded, "skip-downloaded", false, "skip documents recorded in the download ledger")

	return cmd
}

// resolveRange turns the flags into a date range relative to now
func resolveRange(opts *batchOptions, now time.Time) (time.Time, time.Time, error) {
	end := utils.TruncateDay(now)
	if opts.fim != "" {
		parsed, err := utils.ParseISODate(opts.fim)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --fim %q: expected YYYY-MM-DD", opts.fim)
		}
		end = parsed
	}

	start := end.AddDate(0, 0, -(defaultRangeDays - 1))
	if opts.inicio != "" {
		parsed, err := utils.ParseISODate(opts.inicio)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --inicio %q: expected YYYY-MM-DD", opts.inicio)
		}
		start = parsed
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("--inicio %s is after --fim %s", start.Format(utils.ISODateLayout), end.Format(utils.ISODateLayout))
	}
	return start, end, nil
}

func runBatch(ctx context.Context, start, end time.Time, skipDownloaded bool) error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logger.New(cfg.Log.Level, cfg.Log.Format)

	container, err := services.NewContainer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer container.Close()

	runner := &batchRunner{
		service:        container.NFSeService,
		ledger:         container.Ledger,
		skipDownloaded: skipDownloaded,
		logger:         logger,
	}

	summary, err := runner.Run(ctx, start, end)
	logger.WithField("summary", summary).Info("Batch finished")
	return err
}

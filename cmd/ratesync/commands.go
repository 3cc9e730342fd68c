package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tasas/ratesync/internal/api"
	"github.com/tasas/ratesync/internal/config"
	"github.com/tasas/ratesync/internal/domain"
	"github.com/tasas/ratesync/internal/ingestion"
	"github.com/tasas/ratesync/internal/notify"
	"github.com/tasas/ratesync/internal/ratecalc"
	"github.com/tasas/ratesync/internal/reconciliation"
	"github.com/tasas/ratesync/internal/repository"
	"github.com/tasas/ratesync/internal/schedule"
	"github.com/tasas/ratesync/internal/scrape"
)

var configPath string

// deps bundles everything a command needs, built from one config load.
type deps struct {
	cfg     *config.Config
	db      *sql.DB
	records *repository.RecordRepo
	ledgers *repository.LedgerRepo
	recon   *reconciliation.Service
	ingest  *ingestion.Service
	calc    *ratecalc.Calculator
}

func openDeps() (*deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	records := repository.NewRecordRepo(db)
	ledgers := repository.NewLedgerRepo(db)

	return &deps{
		cfg:     cfg,
		db:      db,
		records: records,
		ledgers: ledgers,
		recon:   reconciliation.NewService(records, ledgers),
		ingest:  ingestion.NewService(records, ledgers),
		calc:    ratecalc.NewCalculator(records),
	}, nil
}

func (d *deps) close() {
	d.db.Close()
}

// ledgerIDs is every ledger the scheduler walks: the aggregate plus one per
// series.
func ledgerIDs() []string {
	ids := []string{string(domain.SeriesAll)}
	for _, s := range domain.KnownSeries {
		ids = append(ids, string(s))
	}
	return ids
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:           "ratesync",
		Short:         "Daily rate-series tracker and reconciliation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(serveCmd(ctx), detectCmd(), resolveCmd(), scanCmd())
	return root.ExecuteContext(ctx)
}

func serveCmd(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled scrape/reconcile jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps()
			if err != nil {
				return err
			}
			defer d.close()

			loc, err := time.LoadLocation(d.cfg.Timezone)
			if err != nil {
				return fmt.Errorf("load timezone %s: %w", d.cfg.Timezone, err)
			}

			var sources []schedule.Source
			client := scrape.NewClient(scrape.ClientConfig{})
			if url := d.cfg.Sources.CentralBankURL; url != "" {
				sources = append(sources, scrape.NewCentralBankSource(client, url))
			}
			if url := d.cfg.Sources.StateBankURL; url != "" {
				sources = append(sources, scrape.NewStateBankSource(client, url))
			}

			notifier := notify.NewNotifier(notify.SmtpConfig{
				Server:       d.cfg.Smtp.Server,
				Port:         d.cfg.Smtp.Port,
				EmailAddress: d.cfg.Smtp.Address,
				Password:     d.cfg.Smtp.Password,
			}, d.cfg.Smtp.Recipients)

			runner := schedule.NewRunner(
				loc, d.recon, d.ingest, notifier, sources, ledgerIDs(), d.cfg.Quantity,
			)
			if err := runner.Register(
				d.cfg.Schedules.Scrape, d.cfg.Schedules.Detect,
				d.cfg.Schedules.Scan, d.cfg.Schedules.Resolve,
			); err != nil {
				return fmt.Errorf("register schedules: %w", err)
			}
			defer runner.Stop()

			router := api.NewRouter(d.records, d.ledgers, d.recon, d.ingest, d.calc)
			srv := &http.Server{Addr: ":" + d.cfg.Port, Handler: router}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			log.Info().Str("port", d.cfg.Port).Str("db", d.cfg.DBPath).Msg("ratesync listening")

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				return err
			}
		},
	}
}

func detectCmd() *cobra.Command {
	var quantity int
	cmd := &cobra.Command{
		Use:   "detect <ledger-id>",
		Short: "Run one gap-detection pass for a ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps()
			if err != nil {
				return err
			}
			defer d.close()

			report, err := d.recon.DetectGaps(args[0], quantity)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
	cmd.Flags().IntVar(&quantity, "quantity", 30, "max days per pass")
	return cmd
}

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <ledger-id>",
		Short: "Run one conflict-resolution pass for a ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps()
			if err != nil {
				return err
			}
			defer d.close()

			report, err := d.recon.ResolveConflicts(args[0])
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func scanCmd() *cobra.Command {
	var quantity int
	var field string
	cmd := &cobra.Command{
		Use:   "scan <ledger-id>",
		Short: "Scan in-range records for one missing series field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps()
			if err != nil {
				return err
			}
			defer d.close()

			gaps, err := d.recon.ScanMissingField(args[0], quantity, domain.Series(field))
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"gaps": gaps, "count": len(gaps)})
		},
	}
	cmd.Flags().IntVar(&quantity, "quantity", 30, "max days per pass")
	cmd.Flags().StringVar(&field, "field", "", "series field to scan for")
	return cmd
}

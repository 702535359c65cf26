package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"glp-hedge-bot/internal/alerts"
	"glp-hedge-bot/internal/app"
	"glp-hedge-bot/internal/config"
	"glp-hedge-bot/internal/logging"
	"glp-hedge-bot/internal/state/sqlite"

	"github.com/shopspring/decimal"
)

const (
	defaultVerifyEnvFile = ".env"
	defaultVerifyTimeout = 2 * time.Minute
)

// verify runs a single hedge cycle with order submission disabled and prints
// the resulting plans. -stats prints the latest telemetry record and -errors
// the recorded collaborator failures.
func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	stats := flag.Bool("stats", false, "print the latest telemetry record and exit")
	errorsView := flag.Bool("errors", false, "print the most recent error records and exit")
	limit := flag.Int("limit", 20, "number of error records printed with -errors")
	timeout := flag.Duration("timeout", defaultVerifyTimeout, "overall timeout for the verification cycle")
	flag.Parse()

	if err := config.LoadEnv(defaultVerifyEnvFile); err != nil {
		fatal(err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}

	if *stats || *errorsView {
		store, err := sqlite.New(cfg.State.SQLitePath)
		if err != nil {
			fatal(err)
		}
		defer store.Close()
		if *stats {
			err = printStats(context.Background(), os.Stdout, store)
		} else {
			err = printErrors(context.Background(), os.Stdout, store, *limit)
		}
		if err != nil {
			fatal(err)
		}
		return
	}

	dryRunConfig(cfg)

	log := logging.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	application, err := app.New(cfg, log)
	if err != nil {
		fatal(err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	report, err := application.RunCycle(ctx)
	if err != nil {
		fatal(err)
	}
	printReport(report)
}

func printReport(report app.CycleReport) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOKEN\tSYMBOL\tTARGET\tCURRENT\tLEVERAGE\tACTION\tQTY\tMARGIN\tSKIP\tERROR")
	for _, tr := range report.Tokens {
		if tr.Err != nil {
			fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t-\t-\t-\t-\t%v\n", tr.Token, tr.Symbol, tr.Err)
			continue
		}
		plan := tr.Plan
		qty := decimal.NewFromFloat(plan.Hedge.Quantity).StringFixed(6)
		margin := string(plan.Margin.Direction)
		skip := "-"
		if res := tr.Result; res != nil {
			if res.Quantity > 0 {
				qty = decimal.NewFromFloat(res.Quantity).String()
			}
			if res.MarginAmount > 0 {
				margin = fmt.Sprintf("%s %s", plan.Margin.Direction, decimal.NewFromFloat(res.MarginAmount).StringFixed(2))
			}
			if res.Skip != "" {
				skip = string(res.Skip)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t-\n",
			tr.Token,
			tr.Symbol,
			decimal.NewFromFloat(plan.TargetShortSize).StringFixed(6),
			decimal.NewFromFloat(plan.CurrentShortSize).StringFixed(6),
			decimal.NewFromFloat(plan.Leverage).StringFixed(2),
			plan.Hedge.Kind,
			qty,
			margin,
			skip,
		)
	}
	_ = w.Flush()
	if report.Summary != nil {
		fmt.Printf("\nnet worth: $%s (share value $%s)\n",
			decimal.NewFromFloat(report.Summary.NetWorthUSD).StringFixed(2),
			decimal.NewFromFloat(report.Summary.ShareValueUSD).StringFixed(2),
		)
	}
	fmt.Printf("token errors: %d\n", report.TokenErrors)
}

// dryRunConfig disables every side effect of a cycle: orders, notifications,
// metrics, timescale rows and writes to the bot's state file.
func dryRunConfig(cfg *config.Config) {
	cfg.Hedge.DryRun = true
	cfg.Timescale.Enabled = false
	cfg.Telegram.Enabled = false
	disabled := false
	cfg.Metrics.Enabled = &disabled
	cfg.State.SQLitePath = ":memory:"
}

func printStats(ctx context.Context, w io.Writer, store *sqlite.Store) error {
	rec, ok, err := store.Latest(ctx)
	if err != nil {
		return err
	}
	if !ok {
		_, err = fmt.Fprintln(w, "no telemetry recorded yet")
		return err
	}
	_, err = fmt.Fprint(w, alerts.FormatFields(rec.Fields()))
	return err
}

func printErrors(ctx context.Context, w io.Writer, store *sqlite.Store, limit int) error {
	records, err := store.Errors(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		_, err = fmt.Fprintln(w, "no errors recorded")
		return err
	}
	for i, rec := range records {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprint(w, alerts.FormatFields(rec.Fields()))
	}
	return nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

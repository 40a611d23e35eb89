// Command batchrun executes one batch job synchronously and prints the
// terminal result as JSON. It is the scheduler entry point: cron or a
// container job invokes it per cycle, and a non-zero exit signals a
// run-level failure.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/cardcycle/internal/analytics"
	"github.com/dvloznov/cardcycle/internal/artifact"
	"github.com/dvloznov/cardcycle/internal/batch"
	"github.com/dvloznov/cardcycle/internal/config"
	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/executors"
	"github.com/dvloznov/cardcycle/internal/ledger/mysqlstore"
	"github.com/dvloznov/cardcycle/internal/logger"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("CONFIG_PATH"), "Path to the YAML config file (or set CONFIG_PATH env)")
		jobName    = flag.String("job", "", "Job to run: TransactionPosting, InterestCalculation, StatementGeneration or DataExportImport")
		mode       = flag.String("mode", "", "DataExportImport mode: export or import")
		inputPath  = flag.String("input", "", "Interchange file for import mode (local path or gs:// URI)")
		cycleStart = flag.String("cycle-start", "", "Cycle window start, YYYY-MM-DD (defaults to current month)")
		cycleEnd   = flag.String("cycle-end", "", "Cycle window end, YYYY-MM-DD (defaults to current month)")
		asOf       = flag.String("as-of", "", "Business date for synthesized transactions, YYYY-MM-DD (defaults to today)")
	)
	flag.Parse()

	log := logger.New()

	if *jobName == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	params := batch.Params{Mode: *mode, InputPath: *inputPath}
	params.CycleStart = parseDateFlag(log, "cycle-start", *cycleStart)
	params.CycleEnd = parseDateFlag(log, "cycle-end", *cycleEnd)
	params.AsOf = parseDateFlag(log, "as-of", *asOf)

	ctx := context.Background()

	db, err := mysqlstore.Open(cfg.Store.MySQL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MySQL")
	}
	store := mysqlstore.NewStore(db)

	artifacts := artifact.NewStore(cfg.Artifacts.Dir, cfg.Artifacts.GCSBucket)

	var sink *analytics.Sink
	if cfg.Analytics.Project != "" {
		sink, err = analytics.NewSink(ctx, cfg.Analytics.Project, cfg.Analytics.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create analytics sink")
		}
		defer sink.Close()
	}

	orch := batch.NewOrchestrator(log,
		executors.NewPostingExecutor(store, log),
		executors.NewInterestExecutor(store, cfg.Interest.DefaultRateBPS, log),
		executors.NewStatementExecutor(store, artifacts, executors.StatementConfig{
			MinPaymentBPS:   cfg.Statement.MinPaymentBPS,
			MinPaymentFloor: domain.Money(cfg.Statement.MinPaymentFloor),
			GraceDays:       cfg.Statement.GraceDays,
		}, log),
		executors.NewExportImportExecutor(store, artifacts, sink, log),
	)

	res, err := orch.Run(ctx, *jobName, params)
	if err != nil {
		log.Fatal().Err(err).Msg("Run rejected")
	}

	snap := res.Snapshot()
	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render result")
	}
	fmt.Println(string(out))

	if snap.Status == batch.StatusFailed {
		os.Exit(1)
	}
}

func parseDateFlag(log zerolog.Logger, name, value string) civil.Date {
	if value == "" {
		return civil.Date{}
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		log.Fatal().Err(err).Str("flag", name).Msg("Invalid date flag")
	}
	return d
}

package main

import (
	"context"
	"flag"
	"os"

	"github.com/dvloznov/ledger-consolidation/internal/config"
	infra "github.com/dvloznov/ledger-consolidation/internal/infra/bigquery"
	"github.com/dvloznov/ledger-consolidation/internal/logger"
)

var (
	projectID = flag.String("project", "", "GCP project ID (defaults to LEDGER_GCP_PROJECT)")
	datasetID = flag.String("dataset", "", "BigQuery dataset ID (defaults to LEDGER_DATASET)")
	appliedBy = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.NewWithOptions(os.Stderr, logger.Format(cfg.LogFormat), cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	project, dataset := cfg.GCPProject, cfg.Dataset
	if *projectID != "" {
		project = *projectID
	}
	if *datasetID != "" {
		dataset = *datasetID
	}
	if project == "" {
		log.Fatal().Msg("-project flag or LEDGER_GCP_PROJECT is required")
	}

	repo, err := infra.NewBigQueryRunRepository(ctx, project, dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer repo.Close()

	log.Info().
		Str("project", project).
		Str("dataset", dataset).
		Msg("Connected to BigQuery")

	applied, err := repo.Migrate(ctx, *appliedBy)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	if len(applied) == 0 {
		log.Info().Msg("No pending migrations")
		return
	}
	for _, m := range applied {
		log.Info().
			Int("version", m.Version).
			Str("name", m.Name).
			Msg("Applied migration")
	}
}

package main

import (
	"context"
	"flag"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/muneemjee/ledger/internal/audit"
	"github.com/muneemjee/ledger/internal/config"
	"github.com/muneemjee/ledger/internal/logger"
	dynamostore "github.com/muneemjee/ledger/pkg/store/dynamodb"
)

// Provisions the DynamoDB tables and, when configured, the immudb audit
// table. Safe to re-run: existing tables are left alone.
func main() {
	configPath := flag.String("config", "", "path to config file")
	timeout := flag.Duration("timeout", 5*time.Minute, "provisioning timeout")
	rcus := flag.Int64("rcus", 5, "provisioned read capacity units per table")
	wcus := flag.Int64("wcus", 5, "provisioned write capacity units per table")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot := logger.New("info")
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(cfg.Log.Level)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.DynamoDB.Region))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS configuration")
	}

	st, err := dynamostore.New(awsCfg, dynamostore.Config{
		AccountsTable:     cfg.DynamoDB.AccountsTable,
		TransactionsTable: cfg.DynamoDB.TransactionsTable,
		InvoicesTable:     cfg.DynamoDB.InvoicesTable,
		Endpoint:          cfg.DynamoDB.Endpoint,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create store")
	}

	log.Info().
		Str("accounts", cfg.DynamoDB.AccountsTable).
		Str("transactions", cfg.DynamoDB.TransactionsTable).
		Str("invoices", cfg.DynamoDB.InvoicesTable).
		Msg("provisioning DynamoDB tables")

	if err := st.CreateTables(ctx, *rcus, *wcus); err != nil {
		log.Fatal().Err(err).Msg("failed to provision tables")
	}
	log.Info().Msg("DynamoDB tables ready")

	if cfg.Audit.Address != "" {
		trail, err := audit.Open(ctx, audit.Config{
			Address:  cfg.Audit.Address,
			Port:     cfg.Audit.Port,
			Username: cfg.Audit.Username,
			Password: cfg.Audit.Password,
			Database: cfg.Audit.Database,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to provision audit trail")
		}
		if err := trail.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close audit trail")
		}
		log.Info().Msg("audit trail ready")
	}
}

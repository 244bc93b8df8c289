package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/muneemjee/ledger/internal/api"
	"github.com/muneemjee/ledger/internal/audit"
	"github.com/muneemjee/ledger/internal/auth"
	"github.com/muneemjee/ledger/internal/config"
	"github.com/muneemjee/ledger/internal/ledger"
	"github.com/muneemjee/ledger/internal/logger"
	s3store "github.com/muneemjee/ledger/pkg/objectstore/s3"
	dynamostore "github.com/muneemjee/ledger/pkg/store/dynamodb"
)

func main() {
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		boot := logger.New("info")
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	files, err := s3store.New(awsCfg, cfg.S3.Bucket, cfg.S3.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create object store")
	}

	var trail audit.Recorder = audit.Nop{}
	if cfg.Audit.Address != "" {
		trail, err = audit.Open(ctx, audit.Config{
			Address:  cfg.Audit.Address,
			Port:     cfg.Audit.Port,
			Username: cfg.Audit.Username,
			Password: cfg.Audit.Password,
			Database: cfg.Audit.Database,
		})
		if err != nil {
			log.Warn().Err(err).Msg("audit trail disabled")
			trail = audit.Nop{}
		}
	}
	defer func() {
		if err := trail.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close audit trail")
		}
	}()

	svc := ledger.New(st, files, trail, log, cfg.S3.URLTTL)
	server := api.NewServer(svc, auth.NewVerifier(cfg.JWT.Secret), log)

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: server.Router(cfg.Server.Mode),
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("starting API server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

package lambdafn

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/muneemjee/ledger/internal/audit"
	"github.com/muneemjee/ledger/internal/auth"
	"github.com/muneemjee/ledger/internal/config"
	"github.com/muneemjee/ledger/internal/ledger"
	"github.com/muneemjee/ledger/internal/logger"
	dynamostore "github.com/muneemjee/ledger/pkg/store/dynamodb"

	s3store "github.com/muneemjee/ledger/pkg/objectstore/s3"
)

// Bootstrap builds a fully wired Handler from configuration. Each Lambda
// main calls this once before lambda.Start, so every dependency is
// constructed explicitly at cold start rather than as an import side effect.
func Bootstrap(ctx context.Context) (*Handler, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.Log.Level)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.DynamoDB.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	st, err := dynamostore.New(awsCfg, dynamostore.Config{
		AccountsTable:     cfg.DynamoDB.AccountsTable,
		TransactionsTable: cfg.DynamoDB.TransactionsTable,
		InvoicesTable:     cfg.DynamoDB.InvoicesTable,
		Endpoint:          cfg.DynamoDB.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}

	files, err := s3store.New(awsCfg, cfg.S3.Bucket, cfg.S3.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("create object store: %w", err)
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
			// The trail is best-effort; a missing audit backend shouldn't
			// keep the function from serving.
			log.Warn().Err(err).Msg("audit trail disabled")
			trail = audit.Nop{}
		}
	}

	svc := ledger.New(st, files, trail, log, cfg.S3.URLTTL)
	return NewHandler(svc, auth.NewVerifier(cfg.JWT.Secret), log), nil
}

package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/muneemjee/ledger/pkg/store"
)

// Config holds the settings for the DynamoDB-backed store.
type Config struct {
	// AccountsTable, TransactionsTable and InvoicesTable name the three
	// collections. All are keyed (UserID HASH, ID RANGE) so every lookup
	// carries the owning user.
	AccountsTable     string
	TransactionsTable string
	InvoicesTable     string

	// Endpoint overrides the service endpoint (e.g. local DynamoDB).
	Endpoint string
}

// Store implements store.Store on DynamoDB. Account, transaction and invoice
// documents live in separate tables sharing the same composite key schema.
type Store struct {
	client *dynamodb.Client
	cfg    Config
}

// New creates a DynamoDB store from an already-loaded AWS configuration.
func New(awsCfg aws.Config, cfg Config) (*Store, error) {
	if cfg.AccountsTable == "" || cfg.TransactionsTable == "" || cfg.InvoicesTable == "" {
		return nil, errors.New("dynamodb: all table names must be configured")
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Store{client: client, cfg: cfg}, nil
}

// ListAccounts returns every account owned by userID, sorted by name.
func (s *Store) ListAccounts(ctx context.Context, userID string) ([]*store.Account, error) {
	items, err := s.queryByUser(ctx, s.cfg.AccountsTable, userID)
	if err != nil {
		return nil, err
	}

	accounts := make([]*store.Account, 0, len(items))
	for _, item := range items {
		var account store.Account
		if err := attributevalue.UnmarshalMap(item, &account); err != nil {
			return nil, fmt.Errorf("failed to unmarshal account: %w", err)
		}
		accounts = append(accounts, &account)
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Name < accounts[j].Name
	})
	return accounts, nil
}

// GetAccount looks an account up by both the owning user and the account ID.
// A match under a different user is indistinguishable from absence.
func (s *Store) GetAccount(ctx context.Context, userID, accountID string) (*store.Account, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.cfg.AccountsTable),
		Key:            compositeKey(userID, accountID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem operation failed: %w", err)
	}
	if len(result.Item) == 0 {
		return nil, store.ErrAccountNotFound
	}

	var account store.Account
	if err := attributevalue.UnmarshalMap(result.Item, &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return &account, nil
}

// CreateAccount inserts a new account document.
func (s *Store) CreateAccount(ctx context.Context, account *store.Account) error {
	return s.putItem(ctx, s.cfg.AccountsTable, account)
}

// ListTransactions returns every transaction owned by userID, newest first.
func (s *Store) ListTransactions(ctx context.Context, userID string) ([]*store.Transaction, error) {
	items, err := s.queryByUser(ctx, s.cfg.TransactionsTable, userID)
	if err != nil {
		return nil, err
	}

	transactions := make([]*store.Transaction, 0, len(items))
	for _, item := range items {
		var tx store.Transaction
		if err := attributevalue.UnmarshalMap(item, &tx); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}

	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].Date.After(transactions[j].Date)
	})
	return transactions, nil
}

// ListInvoices returns every invoice owned by userID, newest first.
func (s *Store) ListInvoices(ctx context.Context, userID string) ([]*store.Invoice, error) {
	items, err := s.queryByUser(ctx, s.cfg.InvoicesTable, userID)
	if err != nil {
		return nil, err
	}

	invoices := make([]*store.Invoice, 0, len(items))
	for _, item := range items {
		var invoice store.Invoice
		if err := attributevalue.UnmarshalMap(item, &invoice); err != nil {
			return nil, fmt.Errorf("failed to unmarshal invoice: %w", err)
		}
		invoices = append(invoices, &invoice)
	}

	sort.Slice(invoices, func(i, j int) bool {
		return invoices[i].Date.After(invoices[j].Date)
	})
	return invoices, nil
}

// CreateInvoice inserts a new invoice document.
func (s *Store) CreateInvoice(ctx context.Context, invoice *store.Invoice) error {
	return s.putItem(ctx, s.cfg.InvoicesTable, invoice)
}

// ApplyTransaction adjusts the referenced account's balance by delta and
// inserts the transaction record in a single TransactWriteItems call. The
// balance change is an atomic ADD, so concurrent recorders never interleave
// a read-modify-write, and a failed insert never leaves a dangling balance
// update. The account item must already exist under tx.UserID.
func (s *Store) ApplyTransaction(ctx context.Context, delta float64, tx *store.Transaction) error {
	item, err := attributevalue.MarshalMap(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	deltaAttr, err := attributevalue.Marshal(delta)
	if err != nil {
		return fmt.Errorf("failed to marshal balance delta: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:           aws.String(s.cfg.AccountsTable),
					Key:                 compositeKey(tx.UserID, tx.AccountID),
					UpdateExpression:    aws.String("SET UpdatedAt = :now ADD Balance :delta"),
					ConditionExpression: aws.String("attribute_exists(ID)"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":delta": deltaAttr,
						":now":   &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
					},
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(s.cfg.TransactionsTable),
					Item:      item,
				},
			},
		},
	}

	if _, err := s.client.TransactWriteItems(ctx, input); err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			for _, reason := range canceled.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return store.ErrAccountNotFound
				}
			}
		}
		return fmt.Errorf("TransactWriteItems operation failed: %w", err)
	}
	return nil
}

// CreateTables provisions the three tables and waits until they are active.
// Tables that already exist are left alone.
func (s *Store) CreateTables(ctx context.Context, rcus, wcus int64) error {
	for _, table := range []string{s.cfg.AccountsTable, s.cfg.TransactionsTable, s.cfg.InvoicesTable} {
		if err := s.createTable(ctx, table, rcus, wcus); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) createTable(ctx context.Context, table string, rcus, wcus int64) error {
	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("UserID"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("ID"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("UserID"),
				KeyType:       types.KeyTypeHash,
			},
			{
				AttributeName: aws.String("ID"),
				KeyType:       types.KeyTypeRange,
			},
		},
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(rcus),
			WriteCapacityUnits: aws.Int64(wcus),
		},
	})
	if err != nil {
		var alreadyExists *types.ResourceInUseException
		if errors.As(err, &alreadyExists) {
			return nil
		}
		return err
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(table),
	}, 5*time.Minute)
}

func (s *Store) queryByUser(ctx context.Context, table, userID string) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue

	input := &dynamodb.QueryInput{
		TableName:              aws.String(table),
		KeyConditionExpression: aws.String("UserID = :userId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userId": &types.AttributeValueMemberS{Value: userID},
		},
	}

	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("Query operation failed: %w", err)
		}
		items = append(items, result.Items...)

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return items, nil
}

func (s *Store) putItem(ctx context.Context, table string, record any) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem operation failed: %w", err)
	}
	return nil
}

func compositeKey(userID, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"UserID": &types.AttributeValueMemberS{Value: userID},
		"ID":     &types.AttributeValueMemberS{Value: id},
	}
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	logging "github.com/ipfs/go-log/v2"

	"github.com/mehul-tandon/WipeOut/internal/config"
	"github.com/mehul-tandon/WipeOut/internal/models"
)

var log = logging.Logger("store/dynamo")

// DynamoDB persists certificates in an AWS DynamoDB table keyed by
// certificate id. Writes are conditional on the id not existing, which
// gives the same overwrite-never guarantee as the file store.
type DynamoDB struct {
	db        *dynamodb.Client
	tableName string
}

// NewDynamoDBStore creates a new DynamoDB-backed store
func NewDynamoDBStore(cfg config.DynamoConfig) (*DynamoDB, error) {
	ctx := context.Background()

	// Use custom BaseEndpoint if endpoint is specified
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.Endpoint))

		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     "dummy",
				SecretAccessKey: "dummy",
			},
		}))
	}

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	store := &DynamoDB{
		db:        dynamodb.NewFromConfig(awsCfg),
		tableName: cfg.CertificateTableName,
	}

	return store, store.initialize(ctx, cfg)
}

// initialize creates the certificate table when running against a local
// endpoint. In production the table must already exist.
func (d *DynamoDB) initialize(ctx context.Context, cfg config.DynamoConfig) error {
	_, err := d.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(d.tableName),
	})
	if err == nil {
		log.Infow("Table already exists", "table_name", d.tableName)
		return nil
	}
	// If no endpoint was set we are in production mode and want to fail
	// when the table doesn't already exist.
	if cfg.Endpoint == "" {
		return fmt.Errorf("failed to check if table %s exists: %w", d.tableName, err)
	}

	input := &dynamodb.CreateTableInput{
		TableName: aws.String(d.tableName),
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("certificate_id"),
				KeyType:       types.KeyTypeHash,
			},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("certificate_id"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		BillingMode: types.BillingModePayPerRequest, // Simpler than provisioned
	}
	if _, err := d.db.CreateTable(ctx, input); err != nil {
		return fmt.Errorf("failed to create table %s: %w", d.tableName, err)
	}

	log.Infow("DynamoDB store initialized",
		"table_name", d.tableName,
		"region", d.db.Options().Region,
		"endpoint", d.db.Options().BaseEndpoint)
	return nil
}

func (d *DynamoDB) Put(ctx context.Context, cert *models.Certificate) error {
	payload, err := json.Marshal(cert)
	if err != nil {
		return fmt.Errorf("encoding certificate: %w", err)
	}

	item := map[string]types.AttributeValue{
		"certificate_id": &types.AttributeValueMemberS{Value: cert.CertificateID},
		"payload":        &types.AttributeValueMemberS{Value: string(payload)},
		"inserted_at":    &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
	}

	_, err = d.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(certificate_id)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, cert.CertificateID)
		}
		log.Errorw("Error storing certificate", "certificate_id", cert.CertificateID, "error", err)
		return fmt.Errorf("failed to store certificate: %w", err)
	}

	return nil
}

func (d *DynamoDB) Get(ctx context.Context, id string) (*models.Certificate, error) {
	result, err := d.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"certificate_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate %s: %w", id, err)
	}
	if len(result.Item) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	attr, ok := result.Item["payload"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("certificate %s has no payload attribute", id)
	}

	var cert models.Certificate
	if err := json.Unmarshal([]byte(attr.Value), &cert); err != nil {
		return nil, fmt.Errorf("decoding certificate %s: %w", id, err)
	}
	return &cert, nil
}

var _ Store = (*DynamoDB)(nil)

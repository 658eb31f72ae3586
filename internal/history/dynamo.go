package history

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/vidvault/backend/internal/models"
)

// sortKeyCategory prefixes every sort key; history currently records only
// video lifecycle events.
const sortKeyCategory = "Video"

// DynamoAPI is the subset of the DynamoDB client the log uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// record is the persisted item shape: partition key is the owner identity,
// sort key is "Video#<epoch-millis>" so items stay unique and time-ordered.
type record struct {
	Owner   string `dynamodbav:"owner"`
	SortKey string `dynamodbav:"sk"`
	models.HistoryEvent
}

// Log is the append-only per-owner event log. Events are inserted exactly
// once and never updated or deleted.
type Log struct {
	client DynamoAPI
	table  string
	logger *zap.Logger

	mu         sync.Mutex
	lastMillis int64
}

// NewLog creates a history log over a DynamoDB table.
func NewLog(client DynamoAPI, table string, logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{client: client, table: table, logger: logger}
}

// NewClient creates a DynamoDB client using credentials from config or env.
func NewClient(ctx context.Context, region, accessKeyID, secretAccessKey string) (*dynamodb.Client, error) {
	if accessKeyID == "" || secretAccessKey == "" {
		accessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
		secretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, secretAccessKey, "",
		)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}

// Append stores one lifecycle event. The timestamp is assigned here as
// string-encoded epoch millis, strictly increasing across calls so two
// same-millisecond emissions cannot collide on the sort key.
func (l *Log) Append(ctx context.Context, ev models.HistoryEvent) error {
	ev.Timestamp = strconv.FormatInt(l.nextMillis(), 10)

	item, err := attributevalue.MarshalMap(record{
		Owner:        ev.Username,
		SortKey:      sortKeyCategory + "#" + ev.Timestamp,
		HistoryEvent: ev,
	})
	if err != nil {
		return fmt.Errorf("marshal history event: %w", err)
	}
	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put history event: %w", err)
	}
	l.logger.Debug("history event appended",
		zap.String("owner", ev.Username),
		zap.String("video_key", ev.VideoKey),
		zap.String("status", ev.Status),
	)
	return nil
}

// ListByOwner returns the owner's events in sort-key order. The query keys on
// the owner partition and the "Video" sort-key prefix; items whose username
// attribute does not match the owner are dropped as a second filter pass, so
// a shared or migrated partition can never leak another owner's events.
// An empty result is a valid state, not an error.
func (l *Log) ListByOwner(ctx context.Context, owner string) ([]models.HistoryEvent, error) {
	out, err := l.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(l.table),
		KeyConditionExpression: aws.String("#pk = :owner AND begins_with(#sk, :prefix)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": "owner",
			"#sk": "sk",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner":  &types.AttributeValueMemberS{Value: owner},
			":prefix": &types.AttributeValueMemberS{Value: sortKeyCategory},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	events := make([]models.HistoryEvent, 0, len(out.Items))
	for _, item := range out.Items {
		var rec record
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal history event: %w", err)
		}
		if rec.Username != owner {
			continue
		}
		events = append(events, rec.HistoryEvent)
	}
	return events, nil
}

func (l *Log) nextMillis() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UnixMilli()
	if now <= l.lastMillis {
		now = l.lastMillis + 1
	}
	l.lastMillis = now
	return now
}

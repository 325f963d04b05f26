package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"bilingual-tutor/internal/domain"
)

const (
	pkPrefixDay = "DAY#"
	skPrefixReq = "REQ#"
	ttlDuration = 30 * 24 * time.Hour // 30-day TTL
)

// dynamodbAPI is the minimal DynamoDB interface required by UsageClient.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// UsageClient writes token usage records to a DynamoDB table.
type UsageClient struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new UsageClient.
func New(api dynamodbAPI, tableName string) (*UsageClient, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &UsageClient{api: api, tableName: tableName, now: time.Now}, nil
}

// dayPK partitions records by UTC calendar day.
func dayPK(ts time.Time) string {
	return pkPrefixDay + ts.UTC().Format(time.DateOnly)
}

func requestSK(ts time.Time, requestID string) string {
	return skPrefixReq + ts.UTC().Format(time.RFC3339Nano) + "#" + requestID
}

// RecordUsage persists one usage record. CreatedAt defaults to the current time.
func (c *UsageClient) RecordUsage(ctx context.Context, rec domain.UsageRecord) error {
	if strings.TrimSpace(rec.RequestID) == "" {
		return errors.New("repository: RecordUsage: request id is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = c.now()
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                usageItem(rec),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: RecordUsage: %w", err)
	}
	return nil
}

func usageItem(rec domain.UsageRecord) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":               &types.AttributeValueMemberS{Value: dayPK(rec.CreatedAt)},
		"SK":               &types.AttributeValueMemberS{Value: requestSK(rec.CreatedAt, rec.RequestID)},
		"requestId":        &types.AttributeValueMemberS{Value: rec.RequestID},
		"model":            &types.AttributeValueMemberS{Value: rec.Model},
		"promptTokens":     numAttr(int64(rec.Usage.PromptTokens)),
		"completionTokens": numAttr(int64(rec.Usage.CompletionTokens)),
		"totalTokens":      numAttr(int64(rec.Usage.TotalTokens)),
		"latencyMs":        numAttr(rec.Latency.Milliseconds()),
		"createdAt":        &types.AttributeValueMemberS{Value: rec.CreatedAt.UTC().Format(time.RFC3339)},
		"ttl":              numAttr(rec.CreatedAt.Add(ttlDuration).Unix()),
	}
}

func numAttr(n int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

package ratelimit

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
)

// dynamodbAPI is the minimal DynamoDB surface the limiter needs.
// Defined here for testability.
type dynamodbAPI interface {
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoLimiter shares the fixed-window counters across instances through a
// DynamoDB table keyed by client key. It gives the same observable semantics
// as MemoryLimiter but without single-instance affinity.
type DynamoLimiter struct {
	api       dynamodbAPI
	tableName string
	window    time.Duration
	quota     int

	now func() time.Time
}

func NewDynamoLimiter(api dynamodbAPI, tableName string, window time.Duration, quota int) (*DynamoLimiter, error) {
	if api == nil {
		return nil, errors.New("ratelimit: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("ratelimit: table name must not be empty")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &DynamoLimiter{api: api, tableName: tableName, window: window, quota: quota, now: time.Now}, nil
}

// Allow first tries to open a fresh window for the key (unknown key or
// elapsed reset time), then falls back to incrementing the current window's
// counter while it is below quota. Two conditional writes keep the
// increment-then-compare race window no worse than the in-memory map.
func (l *DynamoLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now()
	nowMs := strconv.FormatInt(now.UnixMilli(), 10)
	resetMs := strconv.FormatInt(now.Add(l.window).UnixMilli(), 10)

	keyAttr := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "RATE#" + key},
	}

	_, err := l.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(l.tableName),
		Key:                 keyAttr,
		UpdateExpression:    aws.String("SET #c = :one, resetAt = :reset"),
		ConditionExpression: aws.String("attribute_not_exists(resetAt) OR resetAt < :now"),
		ExpressionAttributeNames: map[string]string{
			"#c": "count",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":   &types.AttributeValueMemberN{Value: "1"},
			":reset": &types.AttributeValueMemberN{Value: resetMs},
			":now":   &types.AttributeValueMemberN{Value: nowMs},
		},
	})
	if err == nil {
		return true, nil
	}
	if !isConditionalFailure(err) {
		return false, fmt.Errorf("ratelimit: open window for %q: %w", key, err)
	}

	_, err = l.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(l.tableName),
		Key:                 keyAttr,
		UpdateExpression:    aws.String("SET #c = #c + :one"),
		ConditionExpression: aws.String("#c < :quota"),
		ExpressionAttributeNames: map[string]string{
			"#c": "count",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":   &types.AttributeValueMemberN{Value: "1"},
			":quota": &types.AttributeValueMemberN{Value: strconv.Itoa(l.quota)},
		},
	})
	if err == nil {
		return true, nil
	}
	if isConditionalFailure(err) {
		return false, nil
	}
	return false, fmt.Errorf("ratelimit: increment window for %q: %w", key, err)
}

func isConditionalFailure(err error) bool {
	var cond *types.ConditionalCheckFailedException
	return errors.As(err, &cond)
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"webhook-chat/internal/domain"
)

const (
	skPrefixFailure = "FAIL#"
	ttlDuration     = 30 * 24 * time.Hour // 30-day TTL
	maxDetailLen    = 1000
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Client writes failure diagnostics to a DynamoDB table.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// sessionPK returns the partition key for a chat session.
func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

// failureSK orders failures chronologically within a session.
func failureSK(ts time.Time, turnID string) string {
	return skPrefixFailure + ts.UTC().Format(time.RFC3339Nano) + "#" + turnID
}

// ttlValue returns a Unix timestamp 30 days in the future.
func ttlValue() int64 {
	return time.Now().Add(ttlDuration).Unix()
}

// NewFailureRecord builds a record keyed by session and the current time.
func NewFailureRecord(sessionID, turnID, kind, detail string, statusCode int) domain.FailureRecord {
	now := time.Now().UTC()
	return domain.FailureRecord{
		PK:         sessionPK(sessionID),
		SK:         failureSK(now, turnID),
		SessionID:  sessionID,
		TurnID:     turnID,
		Kind:       kind,
		Detail:     truncateUTF8(detail, maxDetailLen),
		StatusCode: statusCode,
		OccurredAt: now.Format(time.RFC3339),
		TTL:        ttlValue(),
	}
}

// RecordFailure persists one failure record.
// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (c *Client) RecordFailure(ctx context.Context, rec domain.FailureRecord) error {
	if rec.PK == "" || rec.SK == "" {
		return errors.New("repository: RecordFailure: PK and SK are required")
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                failureItem(rec),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: RecordFailure: %w", err)
	}
	return nil
}

// Record builds a failure record for the current time and persists it.
func (c *Client) Record(ctx context.Context, sessionID, turnID, kind, detail string, statusCode int) error {
	return c.RecordFailure(ctx, NewFailureRecord(sessionID, turnID, kind, detail, statusCode))
}

// ListFailures returns the most recent failures of a session, oldest first.
func (c *Client) ListFailures(ctx context.Context, sessionID string, limit int) ([]domain.FailureRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixFailure},
		},
		// Read newest first so LIMIT keeps the latest failures.
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: ListFailures query: %w", err)
	}

	recs := make([]domain.FailureRecord, 0, len(out.Items))
	for _, item := range out.Items {
		rec, err := itemToFailure(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListFailures unmarshal: %w", err)
		}
		recs = append(recs, rec)
	}
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

func failureItem(rec domain.FailureRecord) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: rec.PK},
		"SK":         &types.AttributeValueMemberS{Value: rec.SK},
		"sessionId":  &types.AttributeValueMemberS{Value: rec.SessionID},
		"turnId":     &types.AttributeValueMemberS{Value: rec.TurnID},
		"kind":       &types.AttributeValueMemberS{Value: rec.Kind},
		"detail":     &types.AttributeValueMemberS{Value: rec.Detail},
		"statusCode": &types.AttributeValueMemberN{Value: strconv.Itoa(rec.StatusCode)},
		"occurredAt": &types.AttributeValueMemberS{Value: rec.OccurredAt},
		"ttl":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", rec.TTL)},
	}
}

func itemToFailure(item map[string]types.AttributeValue) (domain.FailureRecord, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.FailureRecord{}, err
	}
	sk, err := strAttr(item, "SK")
	if err != nil {
		return domain.FailureRecord{}, err
	}
	kind, err := strAttr(item, "kind")
	if err != nil {
		return domain.FailureRecord{}, err
	}
	sessionID, _ := strAttr(item, "sessionId")
	turnID, _ := strAttr(item, "turnId")
	detail, _ := strAttr(item, "detail")
	occurredAt, _ := strAttr(item, "occurredAt")
	statusCode, _ := intAttr(item, "statusCode")

	return domain.FailureRecord{
		PK:         pk,
		SK:         sk,
		SessionID:  sessionID,
		TurnID:     turnID,
		Kind:       kind,
		Detail:     detail,
		StatusCode: statusCode,
		OccurredAt: occurredAt,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

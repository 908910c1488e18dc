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
	"github.com/google/uuid"

	"panda-assistant/internal/domain"
)

const (
	skPrefixCmd      = "CMD#"
	skPrefixReminder = "REMINDER#"
	skReminderUpper  = "REMINDER$" // '$' sorts right after '#'
	skMeta           = "META#"
	commandTTL       = 30 * 24 * time.Hour
	reminderGrace    = 24 * time.Hour
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client keeps each session's command log and reminders in one DynamoDB table.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

func cmdSK(ts time.Time) string {
	return skPrefixCmd + ts.UTC().Format(time.RFC3339Nano)
}

func reminderSK(due time.Time, id string) string {
	return skPrefixReminder + due.UTC().Format(time.RFC3339) + "#" + id
}

// GetHistory returns up to limit of the session's most recent commands, oldest first.
func (c *Client) GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.CommandRecord, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixCmd},
		},
		// Newest first so LIMIT keeps the most recent context.
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}

	out, err := c.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: GetHistory query: %w", err)
	}

	recs := make([]domain.CommandRecord, 0, len(out.Items))
	for _, item := range out.Items {
		rec, err := itemToCommand(item)
		if err != nil {
			return nil, fmt.Errorf("repository: GetHistory unmarshal: %w", err)
		}
		recs = append(recs, rec)
	}
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

// RecordCommand appends an interpreted command to the session log and bumps the
// session counters in one transaction.
func (c *Client) RecordCommand(ctx context.Context, sessionID, command, response, intent string) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("repository: RecordCommand: session id is required")
	}
	now := c.now().UTC()
	rec := domain.CommandRecord{
		PK:        sessionPK(sessionID),
		SK:        cmdSK(now),
		SessionID: sessionID,
		Command:   command,
		Response:  response,
		Intent:    intent,
		TTL:       now.Add(commandTTL).Unix(),
	}

	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                commandItem(rec),
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			},
			{
				Update: &types.Update{
					TableName: aws.String(c.tableName),
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: rec.PK},
						"SK": &types.AttributeValueMemberS{Value: skMeta},
					},
					UpdateExpression: aws.String("SET sessionId = :sid, lastActivity = :now, #ttl = :ttl ADD commands :one"),
					ExpressionAttributeNames: map[string]string{
						"#ttl": "ttl",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":sid": &types.AttributeValueMemberS{Value: sessionID},
						":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
						":ttl": &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.TTL, 10)},
						":one": &types.AttributeValueMemberN{Value: "1"},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: RecordCommand: %w", err)
	}
	return nil
}

// SaveReminder stores a reminder; DynamoDB expires it a day after it is due.
func (c *Client) SaveReminder(ctx context.Context, r domain.Reminder) error {
	if strings.TrimSpace(r.SessionID) == "" || strings.TrimSpace(r.Task) == "" {
		return errors.New("repository: SaveReminder: session id and task are required")
	}
	if r.Due.IsZero() {
		return errors.New("repository: SaveReminder: due time is required")
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":        &types.AttributeValueMemberS{Value: sessionPK(r.SessionID)},
			"SK":        &types.AttributeValueMemberS{Value: reminderSK(r.Due, uuid.NewString())},
			"sessionId": &types.AttributeValueMemberS{Value: r.SessionID},
			"task":      &types.AttributeValueMemberS{Value: r.Task},
			"due":       &types.AttributeValueMemberS{Value: r.Due.UTC().Format(time.RFC3339)},
			"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(r.Due.Add(reminderGrace).Unix(), 10)},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: SaveReminder: %w", err)
	}
	return nil
}

// PendingReminders returns the session's reminders due after the current time,
// soonest first.
func (c *Client) PendingReminders(ctx context.Context, sessionID string) ([]domain.Reminder, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :from AND :to"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			":from": &types.AttributeValueMemberS{Value: skPrefixReminder + c.now().UTC().Format(time.RFC3339)},
			":to":   &types.AttributeValueMemberS{Value: skReminderUpper},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: PendingReminders query: %w", err)
	}

	rems := make([]domain.Reminder, 0, len(out.Items))
	for _, item := range out.Items {
		task, err := strAttr(item, "task")
		if err != nil {
			return nil, fmt.Errorf("repository: PendingReminders unmarshal: %w", err)
		}
		dueRaw, err := strAttr(item, "due")
		if err != nil {
			return nil, fmt.Errorf("repository: PendingReminders unmarshal: %w", err)
		}
		due, err := time.Parse(time.RFC3339, dueRaw)
		if err != nil {
			return nil, fmt.Errorf("repository: PendingReminders parse due: %w", err)
		}
		rems = append(rems, domain.Reminder{SessionID: sessionID, Task: task, Due: due})
	}
	return rems, nil
}

func itemToCommand(item map[string]types.AttributeValue) (domain.CommandRecord, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.CommandRecord{}, err
	}
	sk, err := strAttr(item, "SK")
	if err != nil {
		return domain.CommandRecord{}, err
	}
	command, err := strAttr(item, "command")
	if err != nil {
		return domain.CommandRecord{}, err
	}
	response, _ := strAttr(item, "response") // allow empty
	intent, _ := strAttr(item, "intent")
	sessionID, _ := strAttr(item, "sessionId")

	return domain.CommandRecord{
		PK:        pk,
		SK:        sk,
		SessionID: sessionID,
		Command:   command,
		Response:  response,
		Intent:    intent,
	}, nil
}

func commandItem(rec domain.CommandRecord) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: rec.PK},
		"SK":        &types.AttributeValueMemberS{Value: rec.SK},
		"sessionId": &types.AttributeValueMemberS{Value: rec.SessionID},
		"command":   &types.AttributeValueMemberS{Value: rec.Command},
		"response":  &types.AttributeValueMemberS{Value: rec.Response},
		"intent":    &types.AttributeValueMemberS{Value: rec.Intent},
		"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.TTL, 10)},
	}
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

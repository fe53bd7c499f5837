// Package dynamo implements the event store on a single DynamoDB table with
// two global secondary indexes: status-index on (status, created_at) for
// inbox ordering and the sparse status-last-attempt-index on
// (status, last_delivery_attempt) for attempt-window queries. Expired records
// are removed by the table's TTL on the expires_at attribute.
package dynamo

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/eventrelay/eventrelay/internal/errs"
	"github.com/eventrelay/eventrelay/internal/model"
	"github.com/eventrelay/eventrelay/internal/store"
)

const (
	StatusIndex      = "status-index"
	LastAttemptIndex = "status-last-attempt-index"

	attrID          = "id"
	attrCreatedAt   = "created_at"
	attrStatus      = "status"
	attrUpdatedAt   = "updated_at"
	attrAttempts    = "delivery_attempts"
	attrLastAttempt = "last_delivery_attempt"
	attrLatencyMS   = "delivery_latency_ms"
	attrError       = "error_message"
)

var ErrBuildExpression = errors.New("failed to build store expression")

// API is the subset of the DynamoDB client the store uses.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type Store struct {
	client API
	table  string
}

var _ store.EventStore = (*Store)(nil)

func New(client API, table string) *Store {
	return &Store{client: client, table: table}
}

func (s *Store) Put(ctx context.Context, event *model.Event) error {
	item, err := attributevalue.MarshalMap(event)
	if err != nil {
		return errs.Wrap(store.ErrStoreUnavailable, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return errs.Wrap(store.ErrStoreUnavailable, err)
	}

	return nil
}

// GetByID resolves the full composite key from the partial one by querying
// the partition key alone. Callers that mutate must reuse the returned
// CreatedAt to address the exact record.
func (s *Store) GetByID(ctx context.Context, id string) (*model.Event, error) {
	keyCond := expression.Key(attrID).Equal(expression.Value(id))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, errs.Wrap(ErrBuildExpression, err)
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, errs.Wrap(store.ErrStoreUnavailable, err)
	}

	if len(out.Items) == 0 {
		return nil, store.ErrNotFound
	}

	event := &model.Event{}

	err = attributevalue.UnmarshalMap(out.Items[0], event)
	if err != nil {
		return nil, errs.Wrap(store.ErrStoreUnavailable, err)
	}

	return event, nil
}

func (s *Store) UpdateFields(ctx context.Context, id string, createdAt time.Time, fields store.Fields) error {
	if fields.IsZero() {
		return nil
	}

	update := expression.UpdateBuilder{}

	if fields.Status != nil {
		update = update.Set(expression.Name(attrStatus), expression.Value(*fields.Status))
	}

	if fields.UpdatedAt != nil {
		update = update.Set(expression.Name(attrUpdatedAt), expression.Value(*fields.UpdatedAt))
	}

	if fields.DeliveryAttempts != nil {
		update = update.Set(expression.Name(attrAttempts), expression.Value(*fields.DeliveryAttempts))
	}

	if fields.LastDeliveryAttempt != nil {
		update = update.Set(expression.Name(attrLastAttempt), expression.Value(*fields.LastDeliveryAttempt))
	}

	if fields.DeliveryLatencyMS != nil {
		update = update.Set(expression.Name(attrLatencyMS), expression.Value(*fields.DeliveryLatencyMS))
	}

	if fields.ErrorMessage != nil {
		update = update.Set(expression.Name(attrError), expression.Value(*fields.ErrorMessage))
	}

	// Guard against resurrecting a deleted record: updates must never create.
	cond := expression.AttributeExists(expression.Name(attrID))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return errs.Wrap(ErrBuildExpression, err)
	}

	key, err := s.compositeKey(id, createdAt)
	if err != nil {
		return err
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return store.ErrNotFound
		}

		return errs.Wrap(store.ErrStoreUnavailable, err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, id string, createdAt time.Time) error {
	key, err := s.compositeKey(id, createdAt)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       key,
	})
	if err != nil {
		return errs.Wrap(store.ErrStoreUnavailable, err)
	}

	return nil
}

func (s *Store) QueryByStatus(
	ctx context.Context,
	status model.Status,
	order store.Order,
	limit int,
) ([]*model.Event, error) {
	keyCond := expression.Key(attrStatus).Equal(expression.Value(status))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, errs.Wrap(ErrBuildExpression, err)
	}

	in := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(StatusIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(order == store.Ascending),
	}

	if limit > 0 {
		in.Limit = aws.Int32(int32(limit)) //nolint:gosec
	}

	out, err := s.client.Query(ctx, in)
	if err != nil {
		return nil, errs.Wrap(store.ErrStoreUnavailable, err)
	}

	return unmarshalEvents(out.Items)
}

func (s *Store) QueryByStatusAndAttemptWindow(
	ctx context.Context,
	status model.Status,
	from, to time.Time,
) ([]*model.Event, error) {
	keyCond := expression.Key(attrStatus).Equal(expression.Value(status)).
		And(expression.Key(attrLastAttempt).Between(expression.Value(from), expression.Value(to)))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, errs.Wrap(ErrBuildExpression, err)
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(LastAttemptIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, errs.Wrap(store.ErrStoreUnavailable, err)
	}

	return unmarshalEvents(out.Items)
}

func (s *Store) Scan(ctx context.Context, limit int) ([]*model.Event, error) {
	in := &dynamodb.ScanInput{TableName: aws.String(s.table)}

	if limit > 0 {
		in.Limit = aws.Int32(int32(limit)) //nolint:gosec
	}

	out, err := s.client.Scan(ctx, in)
	if err != nil {
		return nil, errs.Wrap(store.ErrStoreUnavailable, err)
	}

	return unmarshalEvents(out.Items)
}

// compositeKey marshals both key attributes through attributevalue so the
// created_at encoding always matches what Put wrote.
func (s *Store) compositeKey(id string, createdAt time.Time) (map[string]types.AttributeValue, error) {
	createdAttr, err := attributevalue.Marshal(createdAt)
	if err != nil {
		return nil, errs.Wrap(store.ErrStoreUnavailable, err)
	}

	return map[string]types.AttributeValue{
		attrID:        &types.AttributeValueMemberS{Value: id},
		attrCreatedAt: createdAttr,
	}, nil
}

func unmarshalEvents(items []map[string]types.AttributeValue) ([]*model.Event, error) {
	events := make([]*model.Event, 0, len(items))

	err := attributevalue.UnmarshalListOfMaps(items, &events)
	if err != nil {
		return nil, errs.Wrap(store.ErrStoreUnavailable, err)
	}

	return events, nil
}

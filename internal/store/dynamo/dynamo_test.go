package dynamo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventrelay/eventrelay/internal/model"
	"github.com/eventrelay/eventrelay/internal/store"
	"github.com/eventrelay/eventrelay/internal/store/dynamo"
	"github.com/eventrelay/eventrelay/utils/ptr"
)

type fakeDynamoAPI struct {
	putInput    *dynamodb.PutItemInput
	queryInput  *dynamodb.QueryInput
	updateInput *dynamodb.UpdateItemInput
	deleteInput *dynamodb.DeleteItemInput
	scanInput   *dynamodb.ScanInput

	queryOutput *dynamodb.QueryOutput
	scanOutput  *dynamodb.ScanOutput
	err         error
}

func (f *fakeDynamoAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putInput = in
	return &dynamodb.PutItemOutput{}, f.err
}

func (f *fakeDynamoAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryInput = in

	if f.err != nil {
		return nil, f.err
	}

	if f.queryOutput != nil {
		return f.queryOutput, nil
	}

	return &dynamodb.QueryOutput{}, nil
}

func (f *fakeDynamoAPI) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updateInput = in
	return &dynamodb.UpdateItemOutput{}, f.err
}

func (f *fakeDynamoAPI) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deleteInput = in
	return &dynamodb.DeleteItemOutput{}, f.err
}

func (f *fakeDynamoAPI) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scanInput = in

	if f.err != nil {
		return nil, f.err
	}

	if f.scanOutput != nil {
		return f.scanOutput, nil
	}

	return &dynamodb.ScanOutput{}, nil
}

func marshalEvent(t *testing.T, event *model.Event) map[string]types.AttributeValue {
	t.Helper()

	item, err := attributevalue.MarshalMap(event)
	require.NoError(t, err)

	return item
}

func testEvent() *model.Event {
	return model.NewEvent("evt-1", "user.created", "auth-service",
		map[string]any{"user": "u-1"}, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestPut(t *testing.T) {
	api := &fakeDynamoAPI{}
	s := dynamo.New(api, "events")

	require.NoError(t, s.Put(t.Context(), testEvent()))

	require.NotNil(t, api.putInput)
	assert.Equal(t, "events", *api.putInput.TableName)
	assert.Contains(t, api.putInput.Item, "id")
	assert.Contains(t, api.putInput.Item, "created_at")
	assert.Contains(t, api.putInput.Item, "status")
	assert.Contains(t, api.putInput.Item, "expires_at")
}

func TestGetByID(t *testing.T) {
	t.Run("resolves composite key by partition key", func(t *testing.T) {
		event := testEvent()
		api := &fakeDynamoAPI{queryOutput: &dynamodb.QueryOutput{
			Items: []map[string]types.AttributeValue{marshalEvent(t, event)},
		}}
		s := dynamo.New(api, "events")

		got, err := s.GetByID(t.Context(), "evt-1")
		require.NoError(t, err)
		assert.Equal(t, event.ID, got.ID)
		assert.True(t, event.CreatedAt.Equal(got.CreatedAt))

		require.NotNil(t, api.queryInput)
		assert.Nil(t, api.queryInput.IndexName)
		assert.EqualValues(t, 1, *api.queryInput.Limit)
	})

	t.Run("empty result", func(t *testing.T) {
		s := dynamo.New(&fakeDynamoAPI{}, "events")

		_, err := s.GetByID(t.Context(), "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("backend failure", func(t *testing.T) {
		s := dynamo.New(&fakeDynamoAPI{err: errors.New("throttled")}, "events")

		_, err := s.GetByID(t.Context(), "evt-1")
		assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	})
}

func TestUpdateFields(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("writes only provided fields", func(t *testing.T) {
		api := &fakeDynamoAPI{}
		s := dynamo.New(api, "events")

		err := s.UpdateFields(t.Context(), "evt-1", createdAt, store.Fields{
			Status:    ptr.PointTo(model.StatusDelivered),
			UpdatedAt: ptr.PointTo(createdAt.Add(time.Second)),
		})
		require.NoError(t, err)

		require.NotNil(t, api.updateInput)
		assert.Equal(t, "events", *api.updateInput.TableName)
		assert.Contains(t, api.updateInput.Key, "id")
		assert.Contains(t, api.updateInput.Key, "created_at")
		require.NotNil(t, api.updateInput.ConditionExpression)
		assert.Contains(t, *api.updateInput.UpdateExpression, "SET")
	})

	t.Run("no fields is a no-op", func(t *testing.T) {
		api := &fakeDynamoAPI{}
		s := dynamo.New(api, "events")

		require.NoError(t, s.UpdateFields(t.Context(), "evt-1", createdAt, store.Fields{}))
		assert.Nil(t, api.updateInput)
	})

	t.Run("condition failure maps to not found", func(t *testing.T) {
		api := &fakeDynamoAPI{err: &types.ConditionalCheckFailedException{}}
		s := dynamo.New(api, "events")

		err := s.UpdateFields(t.Context(), "evt-1", createdAt, store.Fields{
			Status: ptr.PointTo(model.StatusDelivered),
		})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	event := testEvent()
	api := &fakeDynamoAPI{}
	s := dynamo.New(api, "events")

	require.NoError(t, s.Delete(t.Context(), event.ID, event.CreatedAt))

	require.NotNil(t, api.deleteInput)
	assert.Contains(t, api.deleteInput.Key, "id")

	// The key's created_at must round-trip through the same marshaling Put
	// used, or deletes would silently miss the record.
	item := marshalEvent(t, event)
	assert.Equal(t, item["created_at"], api.deleteInput.Key["created_at"])
}

func TestQueryByStatus(t *testing.T) {
	t.Run("queries the status index", func(t *testing.T) {
		event := testEvent()
		api := &fakeDynamoAPI{queryOutput: &dynamodb.QueryOutput{
			Items: []map[string]types.AttributeValue{marshalEvent(t, event)},
		}}
		s := dynamo.New(api, "events")

		got, err := s.QueryByStatus(t.Context(), model.StatusPending, store.Descending, 50)
		require.NoError(t, err)
		require.Len(t, got, 1)

		require.NotNil(t, api.queryInput)
		assert.Equal(t, dynamo.StatusIndex, *api.queryInput.IndexName)
		assert.False(t, *api.queryInput.ScanIndexForward)
		assert.EqualValues(t, 50, *api.queryInput.Limit)
	})

	t.Run("ascending order", func(t *testing.T) {
		api := &fakeDynamoAPI{}
		s := dynamo.New(api, "events")

		_, err := s.QueryByStatus(t.Context(), model.StatusPending, store.Ascending, 0)
		require.NoError(t, err)

		assert.True(t, *api.queryInput.ScanIndexForward)
		assert.Nil(t, api.queryInput.Limit)
	})
}

func TestQueryByStatusAndAttemptWindow(t *testing.T) {
	api := &fakeDynamoAPI{}
	s := dynamo.New(api, "events")

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	_, err := s.QueryByStatusAndAttemptWindow(t.Context(), model.StatusPending, from, to)
	require.NoError(t, err)

	require.NotNil(t, api.queryInput)
	assert.Equal(t, dynamo.LastAttemptIndex, *api.queryInput.IndexName)
	assert.Contains(t, *api.queryInput.KeyConditionExpression, "BETWEEN")
}

func TestScan(t *testing.T) {
	event := testEvent()
	api := &fakeDynamoAPI{scanOutput: &dynamodb.ScanOutput{
		Items: []map[string]types.AttributeValue{marshalEvent(t, event)},
	}}
	s := dynamo.New(api, "events")

	got, err := s.Scan(t.Context(), 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "evt-1", got[0].ID)

	require.NotNil(t, api.scanInput)
	assert.EqualValues(t, 100, *api.scanInput.Limit)
}

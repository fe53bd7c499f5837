package dispatcher_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventrelay/eventrelay/internal/dispatcher"
	"github.com/eventrelay/eventrelay/internal/model"
	"github.com/eventrelay/eventrelay/internal/secrets"
	"github.com/eventrelay/eventrelay/internal/store/memory"
)

type fakeAPI struct {
	token    string
	tokenErr error
	events   []*model.Event
	inboxErr error
	ackErr   error

	mu    sync.Mutex
	acked []string
}

func (f *fakeAPI) Token(context.Context, string, string) (string, error) {
	if f.tokenErr != nil {
		return "", f.tokenErr
	}

	return f.token, nil
}

func (f *fakeAPI) Inbox(context.Context, string, int) ([]*model.Event, error) {
	if f.inboxErr != nil {
		return nil, f.inboxErr
	}

	return f.events, nil
}

func (f *fakeAPI) Ack(_ context.Context, _ string, eventID string) error {
	if f.ackErr != nil {
		return f.ackErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, eventID)

	return nil
}

func secretSource(webhookURL string) secrets.Static {
	return secrets.Static{Values: secrets.Values{
		APIKey:     "key-123",
		WebhookURL: webhookURL,
	}}
}

func seedBatch(t *testing.T, s *memory.Store, n int) []*model.Event {
	t.Helper()

	base := time.Now().UTC().Add(-time.Minute)
	events := make([]*model.Event, 0, n)

	for i := range n {
		event := model.NewEvent(
			"evt-"+string(rune('a'+i)), "user.created", "auth-service",
			map[string]any{}, base.Add(time.Duration(i)*time.Second),
		)
		require.NoError(t, s.Put(t.Context(), event))
		events = append(events, event)
	}

	return events
}

func newDispatcher(
	s *memory.Store,
	api *fakeAPI,
	webhookURL string,
	opts ...dispatcher.Option,
) *dispatcher.Dispatcher {
	return dispatcher.New(
		dispatcher.Config{SecretID: "relay/secret", Username: "api", BatchSize: 100},
		api,
		s,
		secretSource(webhookURL),
		dispatcher.NewDeliverer(fastRetryConfig(), time.Second),
		nil,
		opts...,
	)
}

func TestRunDeliversAndAcknowledges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := memory.New()
	events := seedBatch(t, s, 3)
	api := &fakeAPI{token: "tok", events: events}

	report, err := newDispatcher(s, api, srv.URL).Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalEvents)
	assert.Equal(t, 3, report.Succeeded)
	assert.Zero(t, report.Failed)
	assert.Zero(t, report.TotalRetries)
	assert.Equal(t, 3, report.Acknowledged)
	assert.Len(t, api.acked, 3)

	// Delivery success records attempts but leaves the status transition to
	// the acknowledgment protocol.
	got, err := s.GetByID(t.Context(), events[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, 1, got.DeliveryAttempts)
	require.NotNil(t, got.LastDeliveryAttempt)
}

func TestRunMarksExhaustedEventsFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := memory.New()
	events := seedBatch(t, s, 2)
	api := &fakeAPI{token: "tok", events: events}

	report, err := newDispatcher(s, api, srv.URL).Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalEvents)
	assert.Zero(t, report.Succeeded)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 4, report.TotalRetries)
	assert.Zero(t, report.Acknowledged)
	assert.Empty(t, api.acked)

	got, err := s.GetByID(t.Context(), events[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, 3, got.DeliveryAttempts)
	assert.NotEmpty(t, got.ErrorMessage)
}

func TestRunAckFailureLeavesEventPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := memory.New()
	events := seedBatch(t, s, 1)
	api := &fakeAPI{token: "tok", events: events, ackErr: errors.New("ack endpoint down")}

	report, err := newDispatcher(s, api, srv.URL).Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded)
	assert.Zero(t, report.Acknowledged)

	// Unacknowledged means the event is picked up again next run.
	got, err := s.GetByID(t.Context(), events[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestRunAbortsOnSetupFailures(t *testing.T) {
	s := memory.New()

	t.Run("missing webhook url", func(t *testing.T) {
		d := dispatcher.New(
			dispatcher.Config{SecretID: "relay/secret", Username: "api"},
			&fakeAPI{},
			s,
			secrets.Static{Values: secrets.Values{APIKey: "key-123"}},
			dispatcher.NewDeliverer(fastRetryConfig(), time.Second),
			nil,
		)

		_, err := d.Run(t.Context())
		assert.ErrorIs(t, err, dispatcher.ErrConfig)
	})

	t.Run("missing api key", func(t *testing.T) {
		d := dispatcher.New(
			dispatcher.Config{SecretID: "relay/secret", Username: "api"},
			&fakeAPI{},
			s,
			secrets.Static{Values: secrets.Values{WebhookURL: "http://localhost:9"}},
			dispatcher.NewDeliverer(fastRetryConfig(), time.Second),
			nil,
		)

		_, err := d.Run(t.Context())
		assert.ErrorIs(t, err, dispatcher.ErrConfig)
	})

	t.Run("token exchange failure", func(t *testing.T) {
		api := &fakeAPI{tokenErr: dispatcher.ErrAuthFailed}

		_, err := newDispatcher(s, api, "http://localhost:9").Run(t.Context())
		assert.ErrorIs(t, err, dispatcher.ErrAuthFailed)
	})

	t.Run("inbox fetch failure", func(t *testing.T) {
		api := &fakeAPI{token: "tok", inboxErr: dispatcher.ErrInboxFetch}

		_, err := newDispatcher(s, api, "http://localhost:9").Run(t.Context())
		assert.ErrorIs(t, err, dispatcher.ErrInboxFetch)
	})
}

func TestRunEmptyInbox(t *testing.T) {
	api := &fakeAPI{token: "tok"}

	report, err := newDispatcher(memory.New(), api, "http://localhost:9").Run(t.Context())
	require.NoError(t, err)

	assert.Zero(t, report.TotalEvents)
	assert.Empty(t, api.acked)
}

func TestRunTruncatesToBatchSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := memory.New()
	events := seedBatch(t, s, 5)
	api := &fakeAPI{token: "tok", events: events}

	d := dispatcher.New(
		dispatcher.Config{SecretID: "relay/secret", Username: "api", BatchSize: 2},
		api,
		s,
		secretSource(srv.URL),
		dispatcher.NewDeliverer(fastRetryConfig(), time.Second),
		nil,
	)

	report, err := d.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalEvents)
	assert.Len(t, api.acked, 2)
}

func TestRunMixedOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// One event carries a poison payload marker in its type.
		if r.ContentLength > 200 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := memory.New()
	good := model.NewEvent("evt-good", "user.created", "auth-service",
		map[string]any{}, time.Now().UTC())
	bad := model.NewEvent("evt-bad", "user.created", "auth-service",
		map[string]any{"padding": string(make([]byte, 300))}, time.Now().UTC())
	require.NoError(t, s.Put(t.Context(), good))
	require.NoError(t, s.Put(t.Context(), bad))

	api := &fakeAPI{token: "tok", events: []*model.Event{good, bad}}

	report, err := newDispatcher(s, api, srv.URL).Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalEvents)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"evt-good"}, api.acked)

	gotBad, err := s.GetByID(t.Context(), "evt-bad")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, gotBad.Status)
	assert.Equal(t, 1, gotBad.DeliveryAttempts)
}

package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eventrelay/eventrelay/internal/errs"
	"github.com/eventrelay/eventrelay/internal/model"
)

// APIClient is the dispatcher's view of the relay API: authenticate once per
// run, then poll the inbox and acknowledge deliveries.
type APIClient interface {
	Token(ctx context.Context, username, apiKey string) (string, error)
	Inbox(ctx context.Context, token string, limit int) ([]*model.Event, error)
	Ack(ctx context.Context, token, eventID string) error
}

type Client struct {
	baseURL string
	client  *http.Client
}

var _ APIClient = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Token exchanges the API key for a short-lived bearer credential.
func (c *Client) Token(ctx context.Context, username, apiKey string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", apiKey)

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/token", strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", errs.Wrap(ErrAuthFailed, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errs.Wrap(ErrAuthFailed, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errs.Wrapf(ErrAuthFailed, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	tokenResponse := struct {
		AccessToken string `json:"access_token"`
	}{}

	err = json.NewDecoder(resp.Body).Decode(&tokenResponse)
	if err != nil {
		return "", errs.Wrap(ErrAuthFailed, err)
	}

	return tokenResponse.AccessToken, nil
}

func (c *Client) Inbox(ctx context.Context, token string, limit int) ([]*model.Event, error) {
	inboxURL := c.baseURL + "/inbox"
	if limit > 0 {
		inboxURL += "?limit=" + strconv.Itoa(limit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, inboxURL, nil)
	if err != nil {
		return nil, errs.Wrap(ErrInboxFetch, err)
	}

	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errs.Wrap(ErrInboxFetch, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.Wrapf(ErrInboxFetch, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	var events []*model.Event

	err = json.NewDecoder(resp.Body).Decode(&events)
	if err != nil {
		return nil, errs.Wrap(ErrInboxFetch, err)
	}

	return events, nil
}

func (c *Client) Ack(ctx context.Context, token, eventID string) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/inbox/"+eventID+"/ack", nil,
	)
	if err != nil {
		return errs.Wrap(ErrAckRejected, err)
	}

	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return errs.Wrap(ErrAckRejected, err)
	}

	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	}

	return errs.Wrapf(ErrAckRejected, fmt.Sprintf("HTTP %d", resp.StatusCode))
}

// Package secrets fetches the relay's operational secrets (API key, webhook
// URL, webhook signing secret, token signing key) from AWS Secrets Manager.
// Fetched values are cached for the lifetime of the process; the cache is an
// explicit object so tests can construct and invalidate it, never a hidden
// module-level singleton. Cached values are advisory, not authoritative.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/eventrelay/eventrelay/internal/errs"
)

var (
	ErrSecretUnavailable = errors.New("failed to retrieve secret")
	ErrSecretMalformed   = errors.New("secret value is not a JSON object")
)

// API is the subset of the Secrets Manager client the cache uses.
type API interface {
	GetSecretValue(
		ctx context.Context,
		in *secretsmanager.GetSecretValueInput,
		opts ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// Values are the well-known keys of the relay secret.
type Values struct {
	APIKey          string `json:"api_key"`
	WebhookURL      string `json:"webhook_url"`
	WebhookSecret   string `json:"webhook_secret"`
	TokenSigningKey string `json:"token_signing_key"`
}

type Cache struct {
	api API

	mu     sync.RWMutex
	values map[string]*Values
}

func NewCache(api API) *Cache {
	return &Cache{
		api:    api,
		values: make(map[string]*Values),
	}
}

// Get returns the parsed secret, fetching it at most once per secret id.
func (c *Cache) Get(ctx context.Context, secretID string) (*Values, error) {
	c.mu.RLock()
	cached, ok := c.values[secretID]
	c.mu.RUnlock()

	if ok {
		return cached, nil
	}

	out, err := c.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &secretID,
	})
	if err != nil {
		return nil, errs.Wrap(ErrSecretUnavailable, err)
	}

	raw := []byte{}
	if out.SecretString != nil {
		raw = []byte(*out.SecretString)
	} else {
		raw = out.SecretBinary
	}

	values := &Values{}

	err = json.Unmarshal(raw, values)
	if err != nil {
		return nil, errs.Wrap(ErrSecretMalformed, err)
	}

	c.mu.Lock()
	c.values[secretID] = values
	c.mu.Unlock()

	return values, nil
}

// Invalidate drops all cached values; the next Get refetches.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values = make(map[string]*Values)
}

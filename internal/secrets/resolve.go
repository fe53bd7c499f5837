package secrets

import (
	"context"

	"github.com/eventrelay/eventrelay/internal/config"
)

// Static is a SecretSource carrying fixed values, used with inline config
// and in tests.
type Static struct {
	Values Values
}

func (s Static) Get(_ context.Context, _ string) (*Values, error) {
	return &s.Values, nil
}

// FromInline converts inline config values.
func FromInline(inline *config.InlineSecrets) *Values {
	return &Values{
		APIKey:          inline.APIKey,
		WebhookURL:      inline.WebhookURL,
		WebhookSecret:   inline.WebhookSecret,
		TokenSigningKey: inline.TokenSigningKey,
	}
}

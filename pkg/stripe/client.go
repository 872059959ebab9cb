package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/avermeer/teambase-backend/pkg/config"
	"github.com/avermeer/teambase-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)

// keyPrefixes maps each environment to the secret-key prefixes it accepts.
// Catching a live key in test (or the reverse) at boot beats finding out
// from a failed charge.
var keyPrefixes = map[string][]string{
	testEnv: {"sk_test", "rk_test"},
	liveEnv: {"sk_live", "rk_live"},
}

// Client holds the configured Stripe API client together with the
// webhook signing secret and the environment it was validated against.
type Client struct {
	api           *stripe.Client
	environment   string
	signingSecret string
}

// NewClient validates the Stripe secrets against the configured
// environment and builds the API client.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("stripe api key is required")
	}
	if !keyMatchesEnv(env, apiKey) {
		return nil, fmt.Errorf("stripe environment %q requires a %s secret key", env, env)
	}

	signingSecret := strings.TrimSpace(cfg.WebhookSecret)
	if signingSecret == "" {
		return nil, errors.New("stripe webhook secret is required")
	}

	stripe.Key = apiKey
	client := &Client{
		api:           stripe.NewClient(apiKey),
		environment:   env,
		signingSecret: signingSecret,
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}
	return client, nil
}

// API returns the underlying Stripe API client.
func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		return testEnv, nil
	}
	if _, ok := keyPrefixes[env]; !ok {
		return "", errInvalidStripeEnv
	}
	return env, nil
}

func keyMatchesEnv(env, key string) bool {
	for _, prefix := range keyPrefixes[env] {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

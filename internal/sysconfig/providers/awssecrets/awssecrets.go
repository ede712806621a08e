// Package awssecrets serves configuration from a JSON secret in AWS Secrets
// Manager and polls it for changes.
package awssecrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/tidewire/tidewire/internal/sysconfig"
)

// ID is the bootstrap identifier of this provider.
const ID = "awssecrets"

// Bootstrap keys.
const (
	keyPrefix = sysconfig.KeyPrefix + "config.aws."

	KeyRegion          = keyPrefix + "region"
	KeySecretID        = keyPrefix + "secret_id"
	KeyAuthType        = keyPrefix + "auth.type"
	KeyAccessKeyID     = keyPrefix + "access_key_id"
	KeySecretAccessKey = keyPrefix + "secret_access_key"
	KeySessionToken    = keyPrefix + "session_token"
	KeyEndpoint        = keyPrefix + "endpoint"
	KeyPollInterval    = keyPrefix + "poll.interval"
)

const (
	defaultHTTPTimeout  = 30 * time.Second
	defaultPollInterval = time.Minute
)

type secretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// clientFactory builds the Secrets Manager client from the bootstrap values.
type clientFactory func(ctx context.Context, bootstrap map[string]string) (secretsAPI, error)

type Provider struct {
	newClient clientFactory

	mu        sync.Mutex
	client    secretsAPI
	secretID  string
	poller    *sysconfig.Poller
	listeners sysconfig.Listeners
}

func New() *Provider {
	return &Provider{newClient: newSDKClient}
}

func newWithClient(client secretsAPI) *Provider {
	return &Provider{newClient: func(context.Context, map[string]string) (secretsAPI, error) {
		return client, nil
	}}
}

func newSDKClient(ctx context.Context, bootstrap map[string]string) (secretsAPI, error) {
	region := strings.TrimSpace(bootstrap[KeyRegion])
	if region == "" {
		return nil, fmt.Errorf("%s is required", KeyRegion)
	}

	authType := strings.ToLower(strings.TrimSpace(bootstrap[KeyAuthType]))
	switch authType {
	case "", "default_chain":
		authType = "default_chain"
	case "access_key":
		if strings.TrimSpace(bootstrap[KeyAccessKeyID]) == "" || strings.TrimSpace(bootstrap[KeySecretAccessKey]) == "" {
			return nil, errors.New("aws access key id and secret access key are required")
		}
	default:
		return nil, errors.New("unsupported aws credential auth type")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithHTTPClient(&http.Client{Timeout: defaultHTTPTimeout}),
	}
	if authType == "access_key" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			strings.TrimSpace(bootstrap[KeyAccessKeyID]),
			strings.TrimSpace(bootstrap[KeySecretAccessKey]),
			strings.TrimSpace(bootstrap[KeySessionToken]),
		)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := strings.TrimSpace(bootstrap[KeyEndpoint])
	return secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func (p *Provider) Initialize(ctx context.Context, _ string, bootstrap map[string]string) error {
	secretID := strings.TrimSpace(bootstrap[KeySecretID])
	if secretID == "" {
		return fmt.Errorf("%s is required", KeySecretID)
	}
	interval := defaultPollInterval
	if raw := strings.TrimSpace(bootstrap[KeyPollInterval]); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return fmt.Errorf("%s must be a non-negative duration", KeyPollInterval)
		}
		interval = d
	}

	client, err := p.newClient(ctx, bootstrap)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.client = client
	p.secretID = secretID
	p.mu.Unlock()

	initial, err := p.Configuration(ctx)
	if err != nil {
		return err
	}
	if interval > 0 {
		poller := sysconfig.StartPoller(ID, interval, initial, p.Configuration, &p.listeners)
		p.mu.Lock()
		p.poller = poller
		p.mu.Unlock()
	}
	return nil
}

// Configuration fetches the secret and decodes it as a flat JSON object.
func (p *Provider) Configuration(ctx context.Context) (map[string]string, error) {
	p.mu.Lock()
	client, secretID := p.client, p.secretID
	p.mu.Unlock()
	if client == nil {
		return nil, errors.New("aws secrets provider is not initialized")
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s: %w", secretID, err)
	}
	if out == nil || out.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", secretID)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(*out.SecretString), &raw); err != nil {
		return nil, fmt.Errorf("secret %s is not a JSON object: %w", secretID, err)
	}
	values := make(map[string]string, len(raw))
	for key, v := range raw {
		key = strings.TrimSpace(key)
		if key == "" || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			values[key] = s
			continue
		}
		values[key] = strings.TrimSpace(fmt.Sprint(v))
	}
	return values, nil
}

func (p *Provider) RegisterListener(l sysconfig.Listener) {
	p.listeners.Add(l)
}

func (p *Provider) Close() error {
	p.mu.Lock()
	poller := p.poller
	p.poller = nil
	p.mu.Unlock()
	poller.Stop()
	return nil
}

// Package vault serves configuration from a Vault KV secret and polls it for
// changes.
package vault

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidewire/tidewire/internal/sysconfig"
)

// ID is the bootstrap identifier of this provider.
const ID = "vault"

// Bootstrap keys.
const (
	keyPrefix = sysconfig.KeyPrefix + "config.vault."

	KeyAddress         = keyPrefix + "address"
	KeyNamespace       = keyPrefix + "namespace"
	KeyAuthType        = keyPrefix + "auth.type"
	KeyToken           = keyPrefix + "token"
	KeyAppRoleMount    = keyPrefix + "approle.mount"
	KeyAppRoleRoleID   = keyPrefix + "approle.role_id"
	KeyAppRoleSecretID = keyPrefix + "approle.secret_id"
	KeyTLSSkipVerify   = keyPrefix + "tls.skip_verify"
	KeyTLSCACertFile   = keyPrefix + "tls.ca_cert_file"
	KeyMount           = keyPrefix + "mount"
	KeyPath            = keyPrefix + "path"
	KeyKVVersion       = keyPrefix + "kv.version"
	KeyPollInterval    = keyPrefix + "poll.interval"
)

const (
	defaultMount        = "secret"
	defaultPollInterval = 30 * time.Second
)

type Provider struct {
	mu        sync.Mutex
	client    *Client
	mount     string
	path      string
	version   int
	poller    *sysconfig.Poller
	listeners sysconfig.Listeners
}

func New() *Provider {
	return &Provider{}
}

func (p *Provider) Initialize(ctx context.Context, _ string, bootstrap map[string]string) error {
	client, err := NewClient(ctx, optionsFromBootstrap(bootstrap))
	if err != nil {
		return err
	}

	version := 2
	if raw := strings.TrimSpace(bootstrap[KeyKVVersion]); raw != "" {
		version, err = strconv.Atoi(raw)
		if err != nil || (version != 1 && version != 2) {
			return fmt.Errorf("%s must be 1 or 2", KeyKVVersion)
		}
	}
	mount := strings.TrimSpace(bootstrap[KeyMount])
	if mount == "" {
		mount = defaultMount
	}
	path := strings.TrimSpace(bootstrap[KeyPath])
	if path == "" {
		return fmt.Errorf("%s is required", KeyPath)
	}

	interval := defaultPollInterval
	if raw := strings.TrimSpace(bootstrap[KeyPollInterval]); raw != "" {
		interval, err = time.ParseDuration(raw)
		if err != nil || interval < 0 {
			return fmt.Errorf("%s must be a non-negative duration", KeyPollInterval)
		}
	}

	p.mu.Lock()
	p.client = client
	p.mount = mount
	p.path = path
	p.version = version
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

func optionsFromBootstrap(bootstrap map[string]string) Options {
	opts := Options{
		Address:          strings.TrimSpace(bootstrap[KeyAddress]),
		Namespace:        strings.TrimSpace(bootstrap[KeyNamespace]),
		AuthType:         strings.TrimSpace(bootstrap[KeyAuthType]),
		Token:            firstNonEmpty(bootstrap[KeyToken], os.Getenv("VAULT_TOKEN")),
		AppRoleMountPath: strings.TrimSpace(bootstrap[KeyAppRoleMount]),
		AppRoleRoleID:    strings.TrimSpace(bootstrap[KeyAppRoleRoleID]),
		AppRoleSecretID:  firstNonEmpty(bootstrap[KeyAppRoleSecretID], os.Getenv("VAULT_SECRET_ID")),
		TLSSkipVerify:    strings.EqualFold(strings.TrimSpace(bootstrap[KeyTLSSkipVerify]), "true"),
		TLSCACertFile:    strings.TrimSpace(bootstrap[KeyTLSCACertFile]),
	}
	if opts.Address == "" {
		opts.Address = strings.TrimSpace(os.Getenv("VAULT_ADDR"))
	}
	return opts
}

func (p *Provider) Configuration(ctx context.Context) (map[string]string, error) {
	p.mu.Lock()
	client, mount, path, version := p.client, p.mount, p.path, p.version
	p.mu.Unlock()
	if client == nil {
		return nil, fmt.Errorf("vault provider is not initialized")
	}
	return client.ReadKV(ctx, mount, path, version)
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

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
)

const (
	authTypeToken   = "token"
	authTypeAppRole = "approle"

	defaultAppRoleMount = "approle"
	requestTimeout      = 30 * time.Second
)

// Options are the connection settings read from the bootstrap file.
type Options struct {
	Address          string
	Namespace        string
	AuthType         string
	Token            string
	AppRoleMountPath string
	AppRoleRoleID    string
	AppRoleSecretID  string
	TLSSkipVerify    bool
	TLSCACertFile    string
}

// Client reads KV secrets with an authenticated Vault API client.
type Client struct {
	api *vaultapi.Client
}

// NewClient builds an API client and authenticates it. AppRole logins
// happen here, so a bad credential fails provider initialization.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	address := strings.TrimSpace(opts.Address)
	if address == "" {
		return nil, errors.New("vault address is required")
	}

	cfg := vaultapi.DefaultConfig()
	if cfg.Error != nil {
		return nil, fmt.Errorf("vault client defaults: %w", cfg.Error)
	}
	cfg.Address = address
	cfg.Timeout = requestTimeout
	if err := cfg.ConfigureTLS(&vaultapi.TLSConfig{
		CACert:   strings.TrimSpace(opts.TLSCACertFile),
		Insecure: opts.TLSSkipVerify,
	}); err != nil {
		return nil, fmt.Errorf("vault tls: %w", err)
	}

	api, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client setup: %w", err)
	}
	// NewClient picks up VAULT_TOKEN on its own; authentication below is
	// explicit.
	api.ClearToken()
	if ns := strings.TrimSpace(opts.Namespace); ns != "" {
		api.SetNamespace(ns)
	}

	token, err := authenticate(ctx, api, opts)
	if err != nil {
		return nil, err
	}
	api.SetToken(token)
	return &Client{api: api}, nil
}

func authenticate(ctx context.Context, api *vaultapi.Client, opts Options) (string, error) {
	authType := strings.ToLower(strings.TrimSpace(opts.AuthType))
	switch authType {
	case "", authTypeToken:
		token := strings.TrimSpace(opts.Token)
		if token == "" {
			return "", errors.New("vault token is required")
		}
		return token, nil
	case authTypeAppRole:
		return appRoleLogin(ctx, api, opts)
	default:
		return "", fmt.Errorf("vault auth type %q is invalid", opts.AuthType)
	}
}

func appRoleLogin(ctx context.Context, api *vaultapi.Client, opts Options) (string, error) {
	roleID := strings.TrimSpace(opts.AppRoleRoleID)
	secretID := strings.TrimSpace(opts.AppRoleSecretID)
	if roleID == "" || secretID == "" {
		return "", errors.New("vault AppRole login requires a role ID and a secret ID")
	}
	mount := trimPath(opts.AppRoleMountPath)
	if mount == "" {
		mount = defaultAppRoleMount
	}

	loginPath := "auth/" + mount + "/login"
	secret, err := api.Logical().WriteWithContext(ctx, loginPath, map[string]any{
		"role_id":   roleID,
		"secret_id": secretID,
	})
	if err != nil {
		return "", fmt.Errorf("vault approle login at %s: %w", loginPath, err)
	}
	if secret == nil || secret.Auth == nil || strings.TrimSpace(secret.Auth.ClientToken) == "" {
		return "", fmt.Errorf("vault approle login at %s returned no client token", loginPath)
	}
	return secret.Auth.ClientToken, nil
}

// ReadKV reads one secret and flattens its fields to strings. For KV
// version 2 the payload is unwrapped from the "data" envelope.
func (c *Client) ReadKV(ctx context.Context, mount, path string, version int) (map[string]string, error) {
	mount = trimPath(mount)
	path = trimPath(path)
	if path == "" {
		return nil, errors.New("vault secret path is required")
	}

	full := mount + "/" + path
	if version == 2 {
		full = mount + "/data/" + path
	}
	secret, err := c.api.Logical().ReadWithContext(ctx, full)
	if err != nil {
		return nil, fmt.Errorf("vault read %s: %w", full, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("vault read %s: secret not found", full)
	}

	data := secret.Data
	if version == 2 {
		inner, ok := data["data"].(map[string]any)
		if !ok {
			return map[string]string{}, nil
		}
		data = inner
	}
	return flatten(data), nil
}

func flatten(data map[string]any) map[string]string {
	out := make(map[string]string, len(data))
	for key, raw := range data {
		key = strings.TrimSpace(key)
		if key == "" || raw == nil {
			continue
		}
		out[key] = strings.TrimSpace(fmt.Sprint(raw))
	}
	return out
}

func trimPath(path string) string {
	return strings.Trim(strings.TrimSpace(path), "/")
}

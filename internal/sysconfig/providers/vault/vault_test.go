package vault

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tidewire/tidewire/internal/sysconfig"
)

func TestProviderReadsKVv2(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "s.token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Path != "/v1/secret/data/tidewire/server" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(t, w, map[string]any{
			"data": map[string]any{
				"data": map[string]any{
					"tidewire.repository.provider": "postgres",
					"tidewire.repository.jdbc.url": "postgres://db/tidewire",
					"tidewire.log.level":           "debug",
				},
				"metadata": map[string]any{"version": 3},
			},
		})
	}))
	defer server.Close()

	p := New()
	err := p.Initialize(context.Background(), t.TempDir(), map[string]string{
		KeyAddress:      server.URL,
		KeyToken:        "s.token",
		KeyPath:         "tidewire/server",
		KeyPollInterval: "0",
	})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer p.Close()

	values, err := p.Configuration(context.Background())
	if err != nil {
		t.Fatalf("Configuration() error = %v", err)
	}
	if values["tidewire.repository.provider"] != "postgres" || values["tidewire.log.level"] != "debug" {
		t.Fatalf("unexpected values: %v", values)
	}
	if _, ok := values["metadata"]; ok {
		t.Fatalf("KV v2 metadata leaked into values: %v", values)
	}
}

func TestProviderReadsKVv1WithAppRole(t *testing.T) {
	t.Parallel()

	var loginCalled bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/platform-approle/login":
			defer r.Body.Close()
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode login body: %v", err)
			}
			if body["role_id"] != "role-id" || body["secret_id"] != "secret-id" {
				t.Errorf("unexpected login body: %v", body)
			}
			loginCalled = true
			writeJSON(t, w, map[string]any{"auth": map[string]any{"client_token": "token-from-approle"}})
		case "/v1/kv/tidewire":
			if r.Header.Get("X-Vault-Token") != "token-from-approle" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			writeJSON(t, w, map[string]any{"data": map[string]any{"tidewire.a": "1", "tidewire.n": 5}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	p := New()
	err := p.Initialize(context.Background(), "", map[string]string{
		KeyAddress:         server.URL,
		KeyAuthType:        "approle",
		KeyAppRoleMount:    "platform-approle",
		KeyAppRoleRoleID:   "role-id",
		KeyAppRoleSecretID: "secret-id",
		KeyMount:           "kv",
		KeyPath:            "tidewire",
		KeyKVVersion:       "1",
		KeyPollInterval:    "0",
	})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer p.Close()
	if !loginCalled {
		t.Fatal("expected approle login endpoint to be called")
	}

	values, err := p.Configuration(context.Background())
	if err != nil {
		t.Fatalf("Configuration() error = %v", err)
	}
	if values["tidewire.a"] != "1" || values["tidewire.n"] != "5" {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestProviderInitializeValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"missing path":   {KeyAddress: "http://127.0.0.1:1", KeyToken: "t"},
		"bad kv version": {KeyAddress: "http://127.0.0.1:1", KeyToken: "t", KeyPath: "p", KeyKVVersion: "3"},
		"bad interval":   {KeyAddress: "http://127.0.0.1:1", KeyToken: "t", KeyPath: "p", KeyPollInterval: "often"},
		"bad auth type":  {KeyAddress: "http://127.0.0.1:1", KeyAuthType: "ldap", KeyPath: "p"},
	}
	for name, bootstrap := range cases {
		t.Run(name, func(t *testing.T) {
			if err := New().Initialize(context.Background(), "", bootstrap); err == nil {
				t.Fatalf("expected Initialize() to fail for %v", bootstrap)
			}
		})
	}
}

func TestProviderPollNotifiesOnChange(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	value := "1"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		v := value
		mu.Unlock()
		writeJSON(t, w, map[string]any{"data": map[string]any{"data": map[string]any{"tidewire.a": v}}})
	}))
	defer server.Close()

	p := New()
	err := p.Initialize(context.Background(), "", map[string]string{
		KeyAddress:      server.URL,
		KeyToken:        "s.token",
		KeyPath:         "tidewire",
		KeyPollInterval: "10ms",
	})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer p.Close()

	changed := make(chan struct{}, 1)
	p.RegisterListener(sysconfig.ListenerFunc(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}))

	mu.Lock()
	value = "2"
	mu.Unlock()

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for poll notification")
	}
}

func TestProviderReadError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		writeJSON(t, w, map[string]any{"errors": []string{"permission denied"}})
	}))
	defer server.Close()

	err := New().Initialize(context.Background(), "", map[string]string{
		KeyAddress: server.URL,
		KeyToken:   "s.token",
		KeyPath:    "tidewire",
	})
	if err == nil {
		t.Fatal("expected Initialize() to fail when Vault denies the read")
	}
}

func TestNewClientValidatesAuthentication(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{name: "address", opts: Options{Token: "s.token"}, want: "address is required"},
		{name: "token", opts: Options{Address: "http://127.0.0.1:8200"}, want: "token is required"},
		{name: "auth type", opts: Options{Address: "http://127.0.0.1:8200", AuthType: "ldap"}, want: "\"ldap\" is invalid"},
		{
			name: "approle ids",
			opts: Options{Address: "http://127.0.0.1:8200", AuthType: "AppRole", AppRoleRoleID: "role-id"},
			want: "requires a role ID and a secret ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewClient(context.Background(), tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("NewClient() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, payload map[string]any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

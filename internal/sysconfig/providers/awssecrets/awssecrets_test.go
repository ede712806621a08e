package awssecrets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/tidewire/tidewire/internal/sysconfig"
)

type fakeSecrets struct {
	mu     sync.Mutex
	secret string
	err    error
	ids    []string
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, aws.ToString(in.SecretId))
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(f.secret)}, nil
}

func (f *fakeSecrets) set(secret string) {
	f.mu.Lock()
	f.secret = secret
	f.mu.Unlock()
}

func TestProviderDecodesJSONSecret(t *testing.T) {
	fake := &fakeSecrets{secret: `{"tidewire.repository.provider":"mysql","tidewire.repository.create.schema":true,"tidewire.pool":5}`}
	p := newWithClient(fake)
	err := p.Initialize(context.Background(), "", map[string]string{
		KeySecretID:     "prod/tidewire",
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
	if values["tidewire.repository.provider"] != "mysql" {
		t.Fatalf("provider = %q", values["tidewire.repository.provider"])
	}
	if values["tidewire.repository.create.schema"] != "true" || values["tidewire.pool"] != "5" {
		t.Fatalf("non-string values not flattened: %v", values)
	}
	if fake.ids[0] != "prod/tidewire" {
		t.Fatalf("secret id = %q", fake.ids[0])
	}
}

func TestProviderInitializeErrors(t *testing.T) {
	t.Run("missing secret id", func(t *testing.T) {
		if err := newWithClient(&fakeSecrets{}).Initialize(context.Background(), "", nil); err == nil {
			t.Fatal("expected error without secret id")
		}
	})
	t.Run("not json", func(t *testing.T) {
		err := newWithClient(&fakeSecrets{secret: "plain"}).Initialize(context.Background(), "", map[string]string{KeySecretID: "s"})
		if err == nil || !strings.Contains(err.Error(), "not a JSON object") {
			t.Fatalf("Initialize() error = %v", err)
		}
	})
	t.Run("api failure", func(t *testing.T) {
		err := newWithClient(&fakeSecrets{err: errors.New("AccessDenied")}).Initialize(context.Background(), "", map[string]string{KeySecretID: "s"})
		if err == nil || !strings.Contains(err.Error(), "AccessDenied") {
			t.Fatalf("Initialize() error = %v", err)
		}
	})
	t.Run("missing region", func(t *testing.T) {
		if err := New().Initialize(context.Background(), "", map[string]string{KeySecretID: "s"}); err == nil {
			t.Fatal("expected error without region")
		}
	})
	t.Run("incomplete access key", func(t *testing.T) {
		err := New().Initialize(context.Background(), "", map[string]string{
			KeySecretID:    "s",
			KeyRegion:      "us-east-1",
			KeyAuthType:    "access_key",
			KeyAccessKeyID: "AKIA",
		})
		if err == nil {
			t.Fatal("expected error with incomplete static credentials")
		}
	})
}

func TestProviderPollsForChanges(t *testing.T) {
	fake := &fakeSecrets{secret: `{"tidewire.a":"1"}`}
	p := newWithClient(fake)
	if err := p.Initialize(context.Background(), "", map[string]string{KeySecretID: "s", KeyPollInterval: "10ms"}); err != nil {
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
	fake.set(`{"tidewire.a":"2"}`)

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for poll notification")
	}
}

func TestProviderUsesSDKAgainstEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Amz-Target"); got != "secretsmanager.GetSecretValue" {
			t.Errorf("X-Amz-Target = %q", got)
		}
		w.Header().Set("Content-Type", "application/x-amz-json-1.1")
		_, _ = w.Write([]byte(`{"Name":"tidewire","SecretString":"{\"tidewire.a\":\"from-aws\"}"}`))
	}))
	defer server.Close()

	p := New()
	err := p.Initialize(context.Background(), "", map[string]string{
		KeySecretID:        "tidewire",
		KeyRegion:          "us-east-1",
		KeyAuthType:        "access_key",
		KeyAccessKeyID:     "AKIDEXAMPLE",
		KeySecretAccessKey: "secret",
		KeyEndpoint:        server.URL,
		KeyPollInterval:    "0",
	})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer p.Close()

	values, err := p.Configuration(context.Background())
	if err != nil {
		t.Fatalf("Configuration() error = %v", err)
	}
	if values["tidewire.a"] != "from-aws" {
		t.Fatalf("values = %v", values)
	}
}

package apperr

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := Wrap(KindConfigLoad, "file:///tmp/connector.properties", io.ErrUnexpectedEOF)

	if !errors.Is(err, KindConfigLoad) {
		t.Fatalf("errors.Is(err, KindConfigLoad) = false, want true")
	}
	if errors.Is(err, KindInstantiation) {
		t.Fatalf("errors.Is(err, KindInstantiation) = true, want false")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("cause was not preserved")
	}
}

func TestErrorIsThroughWrapping(t *testing.T) {
	inner := New(KindNoConnectorsFound, "")
	outer := fmt.Errorf("bootstrap: %w", inner)

	if !errors.Is(outer, KindNoConnectorsFound) {
		t.Fatalf("errors.Is through fmt wrapping = false, want true")
	}
	kind, ok := KindOf(outer)
	if !ok || kind != KindNoConnectorsFound {
		t.Fatalf("KindOf() = %q, %v; want %q, true", kind, ok, KindNoConnectorsFound)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "kind only",
			err:  New(KindNoConnectorsFound, ""),
			want: "no connectors were found",
		},
		{
			name: "with detail",
			err:  New(KindBootstrapKeyMissing, "tidewire.config.provider"),
			want: "bootstrap configuration does not name a configuration provider: tidewire.config.provider",
		},
		{
			name: "with cause",
			err:  Wrap(KindShutdown, "db;shutdown=true", errors.New("boom")),
			want: "repository shutdown failed: db;shutdown=true: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Fatalf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassified(t *testing.T) {
	if Classified(errors.New("plain")) {
		t.Fatal("plain error reported as classified")
	}
	if !Classified(fmt.Errorf("x: %w", New(KindQuery, ""))) {
		t.Fatal("wrapped classified error not detected")
	}
}

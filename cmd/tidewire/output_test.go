package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tidewire/tidewire/internal/connectors"
	"github.com/tidewire/tidewire/internal/connectors/builtin"
)

func TestWriteProperties_SortedAndVerbatim(t *testing.T) {
	var out bytes.Buffer
	err := writeProperties(&out, map[string]string{
		"tidewire.repository.provider":      "postgres",
		"tidewire.log.level":                "debug",
		"tidewire.repository.jdbc.password": "*****",
	})
	if err != nil {
		t.Fatalf("writeProperties() error = %v", err)
	}
	want := "tidewire.log.level=debug\n" +
		"tidewire.repository.jdbc.password=*****\n" +
		"tidewire.repository.provider=postgres\n"
	if got := out.String(); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestWriteConnectors(t *testing.T) {
	var out bytes.Buffer
	err := writeConnectors(&out, []connectors.Descriptor{
		{
			ShortName:     "PostgresConnector",
			CanonicalName: builtin.PostgresClass,
			SourceLocator: "builtin://tidewire/postgres/connector.properties",
			Instance:      &builtin.PostgresConnector{},
		},
		{ShortName: "Bare", CanonicalName: "org.example.Bare"},
	})
	if err != nil {
		t.Fatalf("writeConnectors() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q, want header plus two rows", lines)
	}
	if !strings.HasPrefix(lines[0], "SHORT NAME") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "FROM,TO") || !strings.Contains(lines[1], builtin.PostgresClass) {
		t.Fatalf("row = %q", lines[1])
	}
	if fields := strings.Fields(lines[2]); len(fields) != 3 || fields[2] != "-" {
		t.Fatalf("row = %q, want directions placeholder and empty source", lines[2])
	}
}

// Package apperr defines the error kinds shared by the configuration,
// connector and repository subsystems.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. A Kind is itself an error so callers can match
// with errors.Is(err, apperr.KindConnectorConflict).
type Kind string

const (
	KindConfigDirectory     Kind = "config_directory"
	KindBootstrapMissing    Kind = "bootstrap_missing"
	KindBootstrapKeyMissing Kind = "bootstrap_key_missing"
	KindProviderLoad        Kind = "provider_load"
	KindNotInitialized      Kind = "not_initialized"
	KindConfigRefresh       Kind = "config_refresh"

	KindNoConnectorsFound    Kind = "no_connectors_found"
	KindConnectorInit        Kind = "connector_init"
	KindConfigLoad           Kind = "config_load"
	KindMissingProviderClass Kind = "missing_provider_class"
	KindInstantiation        Kind = "instantiation"

	KindRepoProviderMissing   Kind = "repo_provider_missing"
	KindRepoProviderLoad      Kind = "repo_provider_load"
	KindRepoConnectURLMissing Kind = "repo_connect_url_missing"
	KindRepoInit              Kind = "repo_init"

	KindConnectorConflict Kind = "connector_conflict"
	KindRegistration      Kind = "registration"
	KindTransaction       Kind = "transaction"
	KindQuery             Kind = "query"
	KindSchemaLookup      Kind = "schema_lookup"
	KindSchemaCreate      Kind = "schema_create"
	KindShutdown          Kind = "shutdown"
)

var messages = map[Kind]string{
	KindConfigDirectory:     "configuration directory is not usable",
	KindBootstrapMissing:    "bootstrap configuration file is missing or unreadable",
	KindBootstrapKeyMissing: "bootstrap configuration does not name a configuration provider",
	KindProviderLoad:        "unable to load configuration provider",
	KindNotInitialized:      "configuration system has not been initialized",
	KindConfigRefresh:       "unable to refresh configuration",

	KindNoConnectorsFound:    "no connectors were found",
	KindConnectorInit:        "unable to initialize connectors",
	KindConfigLoad:           "failed to load connector configuration",
	KindMissingProviderClass: "connector configuration did not include a provider class",
	KindInstantiation:        "failed to instantiate connector",

	KindRepoProviderMissing:   "repository provider is not configured",
	KindRepoProviderLoad:      "unable to load repository provider",
	KindRepoConnectURLMissing: "repository connection URL is not configured",
	KindRepoInit:              "unable to initialize repository",

	KindConnectorConflict: "connector is already registered with a different canonical name",
	KindRegistration:      "unable to register connector",
	KindTransaction:       "repository transaction failed",
	KindQuery:             "repository query failed",
	KindSchemaLookup:      "unable to determine whether the repository schema exists",
	KindSchemaCreate:      "unable to create the repository schema",
	KindShutdown:          "repository shutdown failed",
}

func (k Kind) Error() string {
	if msg, ok := messages[k]; ok {
		return msg
	}
	return string(k)
}

// Error is a classified failure. Detail names the offending value (a path,
// key or identifier) and Err keeps the low-level cause.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

// New returns an error of the given kind without an underlying cause.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap returns an error of the given kind that keeps err as its cause.
func Wrap(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is the Kind of this error.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}

// Classified reports whether err already carries a kind.
func Classified(err error) bool {
	_, ok := KindOf(err)
	return ok
}

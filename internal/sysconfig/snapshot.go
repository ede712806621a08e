package sysconfig

import (
	"maps"
	"slices"
	"strings"
)

const maskedValue = "********"

var secretKeyMarkers = []string{"password", "secret", "token"}

// Snapshot is an immutable view of the configuration at one point in time.
// The zero value and a nil *Snapshot are empty.
type Snapshot struct {
	values map[string]string
}

// NewSnapshot copies values into a new Snapshot.
func NewSnapshot(values map[string]string) *Snapshot {
	out := make(map[string]string, len(values))
	for k, v := range values {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[k] = v
	}
	return &Snapshot{values: out}
}

func (s *Snapshot) Lookup(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.values[key]
	return v, ok
}

// Get returns the trimmed value for key, or "" when unset.
func (s *Snapshot) Get(key string) string {
	v, _ := s.Lookup(key)
	return strings.TrimSpace(v)
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// Keys returns all keys in sorted order.
func (s *Snapshot) Keys() []string {
	if s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(s.values))
}

// Map returns a copy of every key and value.
func (s *Snapshot) Map() map[string]string {
	if s == nil {
		return map[string]string{}
	}
	return maps.Clone(s.values)
}

// Sub returns the keys under prefix with the prefix stripped.
func (s *Snapshot) Sub(prefix string) map[string]string {
	out := make(map[string]string)
	if s == nil {
		return out
	}
	for k, v := range s.values {
		if rest, ok := strings.CutPrefix(k, prefix); ok && rest != "" {
			out[rest] = v
		}
	}
	return out
}

// Masked returns a copy where values of credential-like keys are hidden.
func (s *Snapshot) Masked() map[string]string {
	out := s.Map()
	for k, v := range out {
		if v != "" && IsSecretKey(k) {
			out[k] = maskedValue
		}
	}
	return out
}

// IsSecretKey reports whether key names a credential.
func IsSecretKey(key string) bool {
	key = strings.ToLower(key)
	for _, marker := range secretKeyMarkers {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}

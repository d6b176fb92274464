package config

import "strings"

// secretKeys may not be addressed from the command line. Credentials
// belong in the environment as ${VAR} references.
var secretKeys = map[string]bool{
	"apiKey":        true,
	"credential":    true,
	"redisPassword": true,
}

// Key addresses one value in the raw config document, e.g. "cache.backend".
type Key []string

// ParseKey splits a dotted key. Empty segments and secret fields are rejected.
func ParseKey(dotted string) (Key, error) {
	if dotted == "" {
		return nil, &ConfigError{Message: "empty config key"}
	}
	k := Key(strings.Split(dotted, "."))
	for _, seg := range k {
		switch {
		case seg == "":
			return nil, &ConfigError{Message: "config key " + dotted + " has an empty segment"}
		case secretKeys[seg]:
			return nil, &ConfigError{Message: "config key " + seg + " holds a secret; set it through the environment"}
		}
	}
	return k, nil
}

func (k Key) String() string { return strings.Join(k, ".") }

// parent walks to the map holding k's last segment. With create, missing or
// scalar intermediates are replaced by empty maps.
func (k Key) parent(raw map[string]any, create bool) map[string]any {
	m := raw
	for _, seg := range k[:len(k)-1] {
		next, ok := m[seg].(map[string]any)
		if !ok {
			if !create {
				return nil
			}
			next = map[string]any{}
			m[seg] = next
		}
		m = next
	}
	return m
}

// Get returns the value at k.
func (k Key) Get(raw map[string]any) (any, bool) {
	m := k.parent(raw, false)
	if m == nil {
		return nil, false
	}
	v, ok := m[k[len(k)-1]]
	return v, ok
}

// Set stores v at k, creating intermediate sections as needed.
func (k Key) Set(raw map[string]any, v any) {
	k.parent(raw, true)[k[len(k)-1]] = v
}

// Unset removes the value at k and reports whether it was present.
func (k Key) Unset(raw map[string]any) bool {
	m := k.parent(raw, false)
	if m == nil {
		return false
	}
	if _, ok := m[k[len(k)-1]]; !ok {
		return false
	}
	delete(m, k[len(k)-1])
	return true
}

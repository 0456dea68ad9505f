package storage

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultProfile names the state used when none is configured.
const DefaultProfile = "default"

// Options select the location of a store. Backends ignore fields that do
// not apply to them.
type Options struct {
	// Profile separates independent logins sharing a backend.
	Profile string
	// Dir overrides the state directory of the fs backend.
	Dir string
	// RedisURL is the server of the redis backend.
	RedisURL string
	// RedisPrefix overrides DefaultRedisPrefix.
	RedisPrefix string
}

// BackendFactory is a function that creates a new Store instance.
type BackendFactory func(opts Options) (Store, error)

// BackendRegistry maps backend names to their factory functions.
var BackendRegistry = make(map[string]BackendFactory)

func init() {
	BackendRegistry["fs"] = func(opts Options) (Store, error) {
		return NewFileSystemStore(opts.Dir, opts.Profile)
	}
	BackendRegistry["memory"] = func(opts Options) (Store, error) {
		return OpenInMemoryStore(opts.Profile), nil
	}
	BackendRegistry["redis"] = func(opts Options) (Store, error) {
		return NewRedisStore(opts.RedisURL, opts.RedisPrefix, opts.Profile)
	}
}

// Open creates a store with the named backend.
func Open(name string, opts Options) (Store, error) {
	factory, ok := BackendRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown storage backend: %s", name)
	}
	if opts.Profile == "" {
		opts.Profile = DefaultProfile
	}
	if err := ValidateProfile(opts.Profile); err != nil {
		return nil, err
	}
	return factory(opts)
}

// ValidateProfile rejects profile names that are unsafe as a file name or
// key segment: up to 64 of a-z, A-Z, 0-9, '-', '_' and '.', not starting
// with '.'.
func ValidateProfile(profile string) error {
	if profile == "" || len(profile) > 64 || strings.HasPrefix(profile, ".") {
		return fmt.Errorf("invalid storage profile: %q", profile)
	}
	for _, r := range profile {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return fmt.Errorf("invalid storage profile: %q", profile)
		}
	}
	return nil
}

// BackendNames lists the registered backends in sorted order.
func BackendNames() []string {
	names := make([]string, 0, len(BackendRegistry))
	for name := range BackendRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

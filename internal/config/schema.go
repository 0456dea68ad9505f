package config

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OptionType represents the expected type of a configuration option value.
type OptionType string

const (
	// TypeString is a plain string value (the default for all config values).
	TypeString OptionType = "string"
	// TypeBool is a boolean value (true/false/yes/no/1/0/on/off).
	TypeBool OptionType = "bool"
	// TypeInt is an integer value.
	TypeInt OptionType = "int"
	// TypeFloat is a decimal value.
	TypeFloat OptionType = "float"
	// TypeDuration is a Go time.Duration value (e.g. "30s", "5m", "1h").
	TypeDuration OptionType = "duration"
	// TypeURL is an absolute URL. Validation only warns: the resolver treats
	// unusable values as absent.
	TypeURL OptionType = "url"
)

// Global option keys.
const (
	KeyAPIURL            = "api.url"
	KeyAPIBackendLabel   = "api.backend-label"
	KeyHost              = "host"
	KeyScheme            = "scheme"
	KeyBaseDomainDefault = "base-domain.default"
	KeyLanguage          = "lang"
	KeyFormat            = "format"
	KeyHTTPTimeout       = "http.timeout"
	KeyHTTPRateLimit     = "http.rate-limit"
	KeyHTTPBurst         = "http.burst"
	KeyStorageBackend    = "storage.backend"
	KeyStorageDir        = "storage.dir"
	KeyStorageProfile    = "storage.profile"
	KeyStorageRedisURL   = "storage.redis-url"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
	KeyLogFile           = "log.file"
	KeyLogMaxSizeMB      = "log.max-size-mb"
	KeyLogMaxFiles       = "log.max-files"
)

// ConfigOption declares a single configuration option with its type, default,
// documentation, and environment variable override.
type ConfigOption struct {
	// Key is the option name as it appears in the config file (kebab-case).
	Key string
	// Type is the expected value type for validation.
	Type OptionType
	// Default is the default value as a string, or "" for no default.
	Default string
	// Description is a human-readable description of the option.
	Description string
	// Section is "" for global options, or a command name.
	Section string
	// EnvVar is the environment variable that overrides this option, or "".
	EnvVar string
}

// ConfigSchema declares the expected configuration options for the application.
// It is used for validation, documentation, typed getters, and env var mapping.
type ConfigSchema struct {
	options   []*ConfigOption
	byKey     map[string]*ConfigOption
	bySection map[string]map[string]*ConfigOption
}

// NewSchema creates a new empty ConfigSchema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{
		byKey:     make(map[string]*ConfigOption),
		bySection: make(map[string]map[string]*ConfigOption),
	}
}

// Register adds a ConfigOption to the schema. Duplicate keys within the same
// section are silently overwritten (last registration wins).
func (s *ConfigSchema) Register(opt ConfigOption) {
	ref := new(ConfigOption)
	*ref = opt
	s.options = append(s.options, ref)
	if opt.Section == "" {
		s.byKey[opt.Key] = ref
		return
	}
	if s.bySection[opt.Section] == nil {
		s.bySection[opt.Section] = make(map[string]*ConfigOption)
	}
	s.bySection[opt.Section][opt.Key] = ref
}

// RegisterAll adds multiple ConfigOptions to the schema.
func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns the ConfigOption for a key in a given section ("" for global).
// Returns nil if the key is not registered.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	if section == "" {
		return s.byKey[key]
	}
	if sec, ok := s.bySection[section]; ok {
		return sec[key]
	}
	return nil
}

// IsKnown returns true if the key is registered in the given section.
// Global keys are also known inside command sections.
func (s *ConfigSchema) IsKnown(section, key string) bool {
	if section != "" {
		if sec, ok := s.bySection[section]; ok && sec[key] != nil {
			return true
		}
	}
	return s.byKey[key] != nil
}

// GlobalOptions returns all registered global options.
func (s *ConfigSchema) GlobalOptions() []ConfigOption {
	return s.SectionOptions("")
}

// SectionOptions returns all registered options for a specific section.
func (s *ConfigSchema) SectionOptions(section string) []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns a sorted list of all registered non-empty section names.
func (s *ConfigSchema) Sections() []string {
	out := make([]string, 0, len(s.bySection))
	for sec := range s.bySection {
		out = append(out, sec)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the effective value for a global config key by checking,
// in order: (1) the environment variable declared in the schema for this
// key, then the same variable in loaded .env files, (2) the config value,
// (3) the schema default. Returns "" if the key is not found anywhere.
func (s *ConfigSchema) Resolve(c *Config, key string) string {
	v, _ := s.ResolveSource(c, key)
	return v
}

// ResolveSource is Resolve, also reporting where the value came from:
// "env", "config", "default" or "" when unset.
func (s *ConfigSchema) ResolveSource(c *Config, key string) (string, string) {
	opt := s.Lookup("", key)
	if opt != nil && opt.EnvVar != "" {
		if v, ok := c.LookupEnv(opt.EnvVar); ok {
			return v, "env"
		}
	}
	if v, ok := c.GetGlobalOption(key); ok {
		return v, "config"
	}
	if opt != nil && opt.Default != "" {
		return opt.Default, "default"
	}
	return "", ""
}

// ResolveInt is Resolve parsed as an integer. Unparseable values fall back
// to the schema default, then 0.
func (s *ConfigSchema) ResolveInt(c *Config, key string) int {
	if i, err := strconv.Atoi(strings.TrimSpace(s.Resolve(c, key))); err == nil {
		return i
	}
	if opt := s.Lookup("", key); opt != nil {
		if i, err := strconv.Atoi(opt.Default); err == nil {
			return i
		}
	}
	return 0
}

// ResolveFloat is Resolve parsed as a float, with ResolveInt's fallbacks.
func (s *ConfigSchema) ResolveFloat(c *Config, key string) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s.Resolve(c, key)), 64); err == nil {
		return f
	}
	if opt := s.Lookup("", key); opt != nil {
		if f, err := strconv.ParseFloat(opt.Default, 64); err == nil {
			return f
		}
	}
	return 0
}

// ResolveDuration is Resolve parsed as a duration, with ResolveInt's
// fallbacks.
func (s *ConfigSchema) ResolveDuration(c *Config, key string) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(s.Resolve(c, key))); err == nil {
		return d
	}
	if opt := s.Lookup("", key); opt != nil {
		if d, err := time.ParseDuration(opt.Default); err == nil {
			return d
		}
	}
	return 0
}

// ValidateConfig checks a loaded Config against the schema and returns a list
// of human-readable issues (empty if the config is valid). Validation includes:
//   - Unknown global options (not in schema)
//   - Unknown command options (not in schema for that section, and not global)
//   - Type mismatches for options with declared types
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string

	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
			continue
		}
		if err := validateType(opt.Type, value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}

	for section, opts := range c.Commands {
		for key, value := range opts {
			if !s.IsKnown(section, key) {
				issues = append(issues, fmt.Sprintf("unknown option for command %q: %q (value: %q)", section, key, value))
				continue
			}
			opt := s.Lookup(section, key)
			if opt == nil {
				opt = s.Lookup("", key)
			}
			if err := validateType(opt.Type, value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
			}
		}
	}

	sort.Strings(issues)
	return issues
}

func validateType(t OptionType, value string) error {
	switch t {
	case TypeString, "":
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	case TypeFloat:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("expected float, got %q", value)
		}
	case TypeDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("expected duration, got %q", value)
		}
	case TypeURL:
		if value == "" {
			return nil
		}
		u, err := url.Parse(value)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("expected absolute URL, got %q", value)
		}
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	return nil
}

// FormatHelp returns a formatted, human-readable reference of all registered
// options in the schema, grouped by section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder

	if globals := s.GlobalOptions(); len(globals) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			writeOptionHelp(&b, o)
		}
	}

	for _, sec := range s.Sections() {
		opts := s.SectionOptions(sec)
		if len(opts) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n[%s] Options:\n", sec)
		for _, o := range opts {
			writeOptionHelp(&b, o)
		}
	}

	return b.String()
}

func writeOptionHelp(b *strings.Builder, o ConfigOption) {
	fmt.Fprintf(b, "  %-24s %s", o.Key, o.Description)
	parts := make([]string, 0, 3)
	if o.Type != "" && o.Type != TypeString {
		parts = append(parts, fmt.Sprintf("type: %s", o.Type))
	}
	if o.Default != "" {
		parts = append(parts, fmt.Sprintf("default: %s", o.Default))
	}
	if o.EnvVar != "" {
		parts = append(parts, fmt.Sprintf("env: %s", o.EnvVar))
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
}

// DefaultSchema returns the canonical schema declaring all known storefront
// configuration options. This is the single source of truth for option
// names, types, defaults, descriptions, and environment variable overrides.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll(defaultGlobalOptions())
	s.RegisterAll(defaultCommandOptions())
	return s
}

func defaultGlobalOptions() []ConfigOption {
	return []ConfigOption{
		// Tenant resolution
		{Key: KeyAPIURL, Type: TypeURL, Description: "Backend API base URL, used verbatim", EnvVar: "STOREFRONT_API_URL"},
		{Key: KeyAPIBackendLabel, Type: TypeString, Default: "api", Description: "Label substituted for the tenant label to derive the API host"},
		{Key: KeyHost, Type: TypeString, Description: "Navigation host the client acts for (e.g. shop1.example.com)", EnvVar: "STOREFRONT_HOST"},
		{Key: KeyScheme, Type: TypeString, Default: "https", Description: "Scheme of public store URLs"},
		{Key: KeyBaseDomainDefault, Type: TypeString, Default: "localhost", Description: "Base domain when none can be derived"},
		{Key: KeyLanguage, Type: TypeString, Description: "Preferred language for localized titles (BCP 47)", EnvVar: "STOREFRONT_LANG"},
		{Key: KeyFormat, Type: TypeString, Default: "table", Description: "Output format: table, json, yaml"},

		// HTTP gateway
		{Key: KeyHTTPTimeout, Type: TypeDuration, Default: "15s", Description: "Per-request timeout"},
		{Key: KeyHTTPRateLimit, Type: TypeFloat, Default: "10", Description: "Maximum requests per second"},
		{Key: KeyHTTPBurst, Type: TypeInt, Default: "5", Description: "Request burst size"},

		// Persisted state
		{Key: KeyStorageBackend, Type: TypeString, Default: "fs", Description: "State backend: fs, memory, redis", EnvVar: "STOREFRONT_STORAGE"},
		{Key: KeyStorageDir, Type: TypeString, Description: "State directory of the fs backend"},
		{Key: KeyStorageProfile, Type: TypeString, Default: "default", Description: "State profile name", EnvVar: "STOREFRONT_PROFILE"},
		{Key: KeyStorageRedisURL, Type: TypeURL, Description: "Redis server of the redis backend", EnvVar: "STOREFRONT_REDIS_URL"},

		// Logging
		{Key: KeyLogLevel, Type: TypeString, Default: "warn", Description: "Log level: debug, info, warn, error", EnvVar: "STOREFRONT_LOG_LEVEL"},
		{Key: KeyLogFormat, Type: TypeString, Default: "text", Description: "Log format: text, json"},
		{Key: KeyLogFile, Type: TypeString, Description: "Log file path (rotated)", EnvVar: "STOREFRONT_LOG_FILE"},
		{Key: KeyLogMaxSizeMB, Type: TypeInt, Default: "10", Description: "Max log file size in MB before rotation"},
		{Key: KeyLogMaxFiles, Type: TypeInt, Default: "5", Description: "Max number of rotated log backup files"},
	}
}

func defaultCommandOptions() []ConfigOption {
	return []ConfigOption{
		// [products] section
		{Key: "filter", Section: "products", Type: TypeString, Description: "Default filter expression for products list"},
		{Key: "public", Section: "products", Type: TypeBool, Default: "false", Description: "List the tenant's public catalog instead of the owner's"},

		// [orders] section
		{Key: "status", Section: "orders", Type: TypeString, Description: "Only list orders with this status"},
	}
}

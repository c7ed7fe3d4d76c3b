// Package config loads the TOML configuration file that describes the
// server's listen address, token budget policy, provider credentials and
// backend catalog. Parsing uses the teacher's own (promoted to direct)
// pelletier/go-toml/v2 dependency.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// BackendConfig is the TOML shape of one [[backend]] table entry.
type BackendConfig struct {
	Model      string            `toml:"model"`
	Context    int               `toml:"context"`
	Vision     bool              `toml:"vision"`
	Thinking   bool              `toml:"thinking"`
	ModelMatch []string          `toml:"model_match"`
	KeyAdd     map[string]any    `toml:"key_add"`
	KeyDelete  []string          `toml:"key_delete"`
	KeyRename  map[string]string `toml:"key_rename"`
	MaxPerDay  int               `toml:"max_per_day"`
	MaxPerHour int               `toml:"max_per_hour"`
	MaxPer5h   int               `toml:"max_per_5h"`
}

// ProviderConfig is the TOML shape of one [provider.<name>] table entry.
type ProviderConfig struct {
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	APIVersion string `toml:"api_version"`
}

// Config is the top-level shape of the proxy's TOML configuration file.
type Config struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	LogLevel       string `toml:"log_level"`
	RequestTimeout int    `toml:"request_timeout"`
	MaxRetries     int    `toml:"max_retries"`

	// MaxTokensLimit is "ignore", "request", or a positive integer encoded
	// as a string so a single TOML field can carry all three forms.
	MaxTokensLimit string `toml:"max_tokens_limit"`
	MinTokensLimit string `toml:"min_tokens_limit"`

	// TLS fields are accepted for forward compatibility but are out of
	// scope for this package: the server shell loads certificates, not
	// the request-lifecycle engine.
	HTTPSEnabled bool   `toml:"https_enabled"`
	SSLKeyFile   string `toml:"ssl_key_file"`
	SSLCertFile  string `toml:"ssl_cert_file"`
	SSLCAFile    string `toml:"ssl_ca_file"`

	// Tokens maps a bearer token to an arbitrary label. An empty map
	// disables authentication entirely.
	Tokens map[string]string `toml:"tokens"`

	Provider map[string]ProviderConfig `toml:"provider"`
	Backend  []BackendConfig           `toml:"backend"`
}

// DefaultRequestTimeoutSeconds is used when request_timeout is unset or zero.
const DefaultRequestTimeoutSeconds = 90

// DefaultContextWindow is used for a backend whose context field is unset or zero.
const DefaultContextWindow = 128000

// Load reads and parses the TOML configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeoutSeconds
	}
	// MaxTokensLimit/MinTokensLimit are left as-is when unset: an empty
	// string falls through dialect.MaxTokensPolicy's own "anything else"
	// branch (§4.3.2's documented absent-config default), rather than
	// being coerced to "ignore" here and short-circuiting that branch.
	if c.Tokens == nil {
		c.Tokens = map[string]string{}
	}
	for i := range c.Backend {
		if c.Backend[i].Context <= 0 {
			c.Backend[i].Context = DefaultContextWindow
		}
	}
}

// AuthEnabled reports whether the [tokens] table has at least one entry.
func (c *Config) AuthEnabled() bool {
	return len(c.Tokens) > 0
}

// IsValidToken reports whether token matches a configured entry.
func (c *Config) IsValidToken(token string) bool {
	if !c.AuthEnabled() {
		return true
	}
	_, ok := c.Tokens[token]
	return ok
}

// Package config is the YAML config format for the authd server,
// grounded in cmd/dex/config.go's shape (typed sections,
// a Validate method collecting every bad field before failing) and
// its $ENV_VAR substitution convention
// (cmd/dex/config_env_replacer.go).
package config

import (
	"fmt"
	"strings"

	"github.com/ghodss/yaml"

	"github.com/exampleauth/authd/internal/oidcproc"
	"github.com/exampleauth/authd/internal/openidsession"
)

// Config is the top-level config format for the authd binary.
type Config struct {
	// Prod selects cookie SameSite=Strict; dev selects SameSite=None for
	// cross-origin local development. The CORS origin list comes from
	// web.allowedOrigins in both modes.
	Prod bool `json:"prod"`

	Web       Web                     `json:"web"`
	Telemetry Telemetry               `json:"telemetry"`
	Store     Store                   `json:"store"`
	Frontend  Frontend                `json:"frontend"`
	Mailer    Mailer                  `json:"mailer"`
	OIDC      map[string]OIDCProvider `json:"oidc"`
	Logger    Logger                  `json:"logger"`
}

// Web is the HTTP listener and CORS configuration.
type Web struct {
	Addr           string   `json:"addr"`
	AllowedOrigins []string `json:"allowedOrigins"`
}

// Telemetry is the metrics/health listener, defaulted if unset.
type Telemetry struct {
	Addr string `json:"addr"`
}

// Store selects and configures the User Store backend.
type Store struct {
	// Type is one of "memory" or "sqlite".
	Type string `json:"type"`
	// File is the sqlite database path; ignored for "memory".
	File string `json:"file"`
}

// Frontend configures the URL builder for OOB links.
type Frontend struct {
	BaseURL string `json:"baseURL"`
}

// Mailer selects and configures mail delivery.
type Mailer struct {
	// Type is one of "dev" (log only) or "relay".
	Type  string      `json:"type"`
	Relay RelayConfig `json:"relay"`
}

// RelayConfig mirrors internal/mailer.RelayConfig's wire shape.
type RelayConfig struct {
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"apiKey"`
	Sender   string `json:"sender"`
	DKIM     DKIM   `json:"dkim"`
}

// DKIM mirrors internal/mailer.DKIM's wire shape.
type DKIM struct {
	Domain     string `json:"domain"`
	Selector   string `json:"selector"`
	PrivateKey string `json:"privateKey"`
}

// OIDCProvider is one entry of the closed provider set,
// keyed in YAML by provider name ("Google", "Facebook").
type OIDCProvider struct {
	ClientID     string `json:"clientID"`
	ClientSecret string `json:"clientSecret"`
}

// Logger configures the logrus backend shared by every component.
type Logger struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Load reads and parses a YAML config file, substituting $ENV_VAR
// placeholders before unmarshaling into strongly typed fields.
func Load(data []byte, getenv func(string) string) (*Config, error) {
	expanded, err := replaceEnvPlaceholders(string(data), getenv)
	if err != nil {
		return nil, fmt.Errorf("config: expanding environment placeholders: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return nil, fmt.Errorf("config: parsing yaml: %w", err)
	}
	if c.Telemetry.Addr == "" {
		c.Telemetry.Addr = ":9090"
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate collects every bad field before failing, matching the
// cmd/dex/config.go's Validate shape.
func (c Config) Validate() error {
	checks := []struct {
		bad    bool
		errMsg string
	}{
		{c.Web.Addr == "", "web.addr must be set"},
		{c.Store.Type != "memory" && c.Store.Type != "sqlite", "store.type must be \"memory\" or \"sqlite\""},
		{c.Store.Type == "sqlite" && c.Store.File == "", "store.file must be set when store.type is \"sqlite\""},
		{c.Frontend.BaseURL == "", "frontend.baseURL must be set"},
		{c.Mailer.Type != "dev" && c.Mailer.Type != "relay", "mailer.type must be \"dev\" or \"relay\""},
		{c.Mailer.Type == "relay" && c.Mailer.Relay.Endpoint == "", "mailer.relay.endpoint must be set when mailer.type is \"relay\""},
	}

	var bad []string
	for _, check := range checks {
		if check.bad {
			bad = append(bad, check.errMsg)
		}
	}
	if len(bad) != 0 {
		return fmt.Errorf("invalid config:\n\t-\t%s", strings.Join(bad, "\n\t-\t"))
	}
	return nil
}

// OIDCProcessorConfig projects the OIDC section into oidcproc.Config.
func (c Config) OIDCProcessorConfig() (oidcproc.Config, error) {
	out := oidcproc.Config{Providers: make(map[openidsession.Provider]oidcproc.ProviderConfig)}
	for name, p := range c.OIDC {
		provider := openidsession.Provider(name)
		if provider != openidsession.Google && provider != openidsession.Facebook {
			return oidcproc.Config{}, fmt.Errorf("config: unknown oidc provider %q", name)
		}
		out.Providers[provider] = oidcproc.ProviderConfig{ClientID: p.ClientID, ClientSecret: p.ClientSecret}
	}
	return out, nil
}

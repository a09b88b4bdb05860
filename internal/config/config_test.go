package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
prod: false
web:
  addr: ":8080"
  allowedOrigins: ["https://app.example.test"]
store:
  type: memory
frontend:
  baseURL: "https://app.example.test"
mailer:
  type: dev
oidc:
  Google:
    clientID: "client-123"
    clientSecret: "$GOOGLE_CLIENT_SECRET"
logger:
  level: info
  format: json
`

func TestLoadSubstitutesEnvPlaceholders(t *testing.T) {
	env := map[string]string{"GOOGLE_CLIENT_SECRET": "supersecret"}
	cfg, err := Load([]byte(sampleYAML), func(k string) string { return env[k] })
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Web.Addr)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "supersecret", cfg.OIDC["Google"].ClientSecret)

	procCfg, err := cfg.OIDCProcessorConfig()
	require.NoError(t, err)
	assert.Len(t, procCfg.Providers, 1)
}

func TestValidateRejectsIncompleteConfig(t *testing.T) {
	_, err := Load([]byte(`web: {}`), func(string) string { return "" })
	assert.Error(t, err)
}

func TestValidateRejectsUnknownOIDCProvider(t *testing.T) {
	const bad = `
web:
  addr: ":8080"
store:
  type: memory
frontend:
  baseURL: "https://app.example.test"
mailer:
  type: dev
oidc:
  Twitter:
    clientID: "x"
    clientSecret: "y"
`
	cfg, err := Load([]byte(bad), func(string) string { return "" })
	require.NoError(t, err)
	_, err = cfg.OIDCProcessorConfig()
	assert.Error(t, err)
}

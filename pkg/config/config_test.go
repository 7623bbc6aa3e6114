package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string `yaml:"name"`
	Stripe struct {
		SecretKey string `yaml:"secret_key"`
	} `yaml:"stripe"`
	Workers int `yaml:"workers"`
}

func TestLoad_FileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payment.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: payment\nstripe:\n  secret_key: sk_file\n"), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("PAYMENT_STRIPE_SECRET_KEY", "sk_env")

	cfg, err := Load("payment", map[string]interface{}{"workers": 4})
	require.NoError(t, err)

	var out sample
	require.NoError(t, cfg.Unmarshal(&out))
	assert.Equal(t, "payment", out.Name)
	assert.Equal(t, "sk_env", out.Stripe.SecretKey)
	assert.Equal(t, 4, out.Workers)
}

func TestLoad_MissingDirectoryFallsBackToDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", t.TempDir())
	t.Setenv("PAYMENT_WORKERS", "8")

	cfg, err := Load("payment", map[string]interface{}{"workers": 2, "name": "payment"})
	require.NoError(t, err)

	var out sample
	require.NoError(t, cfg.Unmarshal(&out))
	assert.Equal(t, 8, out.Workers)
	assert.Equal(t, "payment", cfg.GetString("name"))
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load("payment", nil)
	assert.Error(t, err)
}

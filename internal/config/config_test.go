package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STATE_SECRET", "s3cr3t")

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dev", c.App.Env)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, 30, c.Remember.Days)
	assert.Equal(t, "hg_remember", c.Remember.CookieName)
	assert.Equal(t, 5, c.Storage.Postgres.MaxOpenConns)
	assert.Equal(t, "30s", c.Storage.Postgres.OpTimeout)
	assert.False(t, c.IsProd())
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	path := writeYAML(t, `
app:
  env: prod
server:
  addr: ":9090"
state:
  secret: from-yaml
remember:
  days: 7
`)
	t.Setenv("REMEMBER_DAYS", "14")
	t.Setenv("STORAGE_DSN", "postgres://u:p@localhost/hg")

	c, err := Load(path)
	require.NoError(t, err)

	assert.True(t, c.IsProd())
	assert.Equal(t, ":9090", c.Server.Addr)
	assert.Equal(t, 14, c.Remember.Days, "env wins over yaml")
	assert.Equal(t, "postgres://u:p@localhost/hg", c.Storage.DSN)
}

func TestLoadRequiresStateSecret(t *testing.T) {
	t.Setenv("STATE_SECRET", "")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state.secret")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeYAML(t, `
state:
  secret: x
sessions:
  ttl: "not-a-duration"
`)
	_, err := Load(path)
	assert.Error(t, err)
}

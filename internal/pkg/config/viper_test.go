package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
app:
  server:
    cors: "https://a.example, ,https://b.example"
  maintenance:
    endpoints:
      - /api/v1/twofactor
      - ""
totp:
  issuer: Posture
  skew: 1
database:
  pool:
    max_conn_lifetime_seconds: 90
mfa:
  key: AAECAw==
`

func TestViperFromBytes(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "Posture", cfg.GetString("totp.issuer"))
	assert.Equal(t, uint(1), cfg.GetUint("totp.skew"))
	assert.Equal(t, 90*time.Second, cfg.GetSecond("database.pool.max_conn_lifetime_seconds"))
	assert.Equal(t, []byte{0, 1, 2, 3}, cfg.GetBinary("mfa.key"))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.GetArray("app.server.cors"))
	assert.Equal(t, []string{"/api/v1/twofactor"}, cfg.GetArray("app.maintenance.endpoints"))
	assert.Empty(t, cfg.GetArray("missing.key"))
	assert.NoError(t, cfg.Close())

	_, err = NewViperFromBytes("", nil)
	assert.Error(t, err)
}

func TestViperFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	t.Setenv("POSTURE_TOTP_ISSUER", "Override")

	cfg, err := NewViper(path)
	require.NoError(t, err)
	assert.Equal(t, "Override", cfg.GetString("totp.issuer"))
}

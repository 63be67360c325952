package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KNOWSHARE_CONFIG", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.ListenAddr)
	assert.Equal(t, "knowledge_sharing.db", cfg.DatabasePath)
	assert.Equal(t, time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTRefreshExpiresIn)
	assert.Equal(t, "/uploads", cfg.UploadURLPath)
	assert.Equal(t, []string{"http://localhost:4200"}, cfg.CORSOrigins)
	assert.Equal(t, int64(10<<20), cfg.UploadMaxBytes)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "knowshare.yml")
	content := "PORT: \"8081\"\nDATABASE_PATH: from-file.db\nUPLOAD_URL_PATH: files/\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("KNOWSHARE_CONFIG", path)
	t.Setenv("DATABASE_PATH", "from-env.db")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.ListenAddr)
	assert.Equal(t, "from-env.db", cfg.DatabasePath)
	assert.Equal(t, "/files", cfg.UploadURLPath)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, path, cfg.ConfigFileUsed)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("KNOWSHARE_CONFIG", "")
	t.Setenv("JWT_EXPIRES_IN", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_EXPIRES_IN")
}

func TestCheckSecrets(t *testing.T) {
	t.Setenv("KNOWSHARE_CONFIG", "")
	t.Setenv("GIN_MODE", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.GinMode)
	assert.True(t, cfg.UsesDefaultSecrets())
	assert.ErrorIs(t, cfg.CheckSecrets(), ErrInsecureSecrets)

	cfg.JWTSecret = "prod-access"
	assert.ErrorIs(t, cfg.CheckSecrets(), ErrInsecureSecrets, "refresh secret is still the default")

	cfg.JWTRefreshSecret = "prod-refresh"
	assert.False(t, cfg.UsesDefaultSecrets())
	assert.NoError(t, cfg.CheckSecrets())

	debug := AppConfig{GinMode: "debug", JWTSecret: DefaultJWTSecret, JWTRefreshSecret: DefaultJWTRefreshSecret}
	assert.True(t, debug.UsesDefaultSecrets())
	assert.NoError(t, debug.CheckSecrets())
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "1h", want: time.Hour},
		{raw: "7d", want: 7 * 24 * time.Hour},
		{raw: " 30m ", want: 30 * time.Minute},
		{raw: "0d", wantErr: true},
		{raw: "-5m", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDuration(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/expenses")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, 10*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 720*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, 12, cfg.Security.BcryptCost)
	assert.Equal(t, DefaultCategories, cfg.Categories.Defaults)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("CATEGORIES_DEFAULTS", "Rent, Travel ,,Pets")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, []string{"Rent", "Travel", "Pets"}, cfg.Categories.Defaults)
}

func TestLoad_DotEnvFile(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")
	t.Setenv("DATABASE_URL", "")
	// godotenv never overrides variables that are already set.
	require.NoError(t, os.Unsetenv("JWT_ACCESS_SECRET"))
	require.NoError(t, os.Unsetenv("JWT_REFRESH_SECRET"))
	require.NoError(t, os.Unsetenv("DATABASE_URL"))

	path := filepath.Join(t.TempDir(), ".env")
	content := "JWT_ACCESS_SECRET=a\nJWT_REFRESH_SECRET=b\nDATABASE_URL=file.db\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "a", cfg.JWT.AccessSecret)
	assert.Equal(t, "file.db", cfg.Database.URL)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Database: DatabaseConfig{Driver: "pgx", URL: "postgres://db"},
		JWT:      JWTConfig{AccessSecret: "a", RefreshSecret: "b", AccessTTL: time.Minute, RefreshTTL: time.Hour},
	}
	assert.NoError(t, valid.Validate())

	sameSecrets := valid
	sameSecrets.JWT.RefreshSecret = "a"
	assert.Error(t, sameSecrets.Validate())

	noSecret := valid
	noSecret.JWT.AccessSecret = ""
	assert.Error(t, noSecret.Validate())

	badDriver := valid
	badDriver.Database.Driver = "mysql"
	assert.Error(t, badDriver.Validate())

	noURL := valid
	noURL.Database.URL = ""
	assert.Error(t, noURL.Validate())
}

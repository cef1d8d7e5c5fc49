package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "substance-source", config.Adobe.ClientID)
	assert.Equal(t, "account_type,openid,AdobeID,read_organizations", config.Adobe.Scope)
	assert.Equal(t, 60, config.Collections.PageLimit)
	assert.Equal(t, "substance3d_ripper_output", config.Output.BaseDirectory)
	assert.Equal(t, 30*time.Second, config.Transport.Timeout)
	assert.Equal(t, 5, config.Transport.MaxAttempts)
	assert.Equal(t, 0.5, config.Transport.BackoffFactor)
	assert.Equal(t, OnFailureAbort, config.Claim.OnFailure)
	assert.NoError(t, config.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("S3RIPPER_IMS_SID", "sid-from-env")
	t.Setenv("S3RIPPER_COLLECTIONS", "abc, def ,,ghi")
	t.Setenv("S3RIPPER_PAGE_LIMIT", "25")
	t.Setenv("S3RIPPER_MIN_DELAY", "1")
	t.Setenv("S3RIPPER_MAX_DELAY", "3")
	t.Setenv("S3RIPPER_TIMEOUT", "10s")
	t.Setenv("S3RIPPER_ON_PURCHASE_FAILURE", "SKIP")
	t.Setenv("S3RIPPER_FREE_ONLY", "true")
	t.Setenv("S3RIPPER_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "sid-from-env", config.Adobe.SessionID)
	assert.Equal(t, []string{"abc", "def", "ghi"}, config.Collections.IDs)
	assert.Equal(t, 25, config.Collections.PageLimit)
	assert.Equal(t, 1, config.Pacing.MinDelay)
	assert.Equal(t, 3, config.Pacing.MaxDelay)
	assert.Equal(t, 10*time.Second, config.Transport.Timeout)
	assert.Equal(t, OnFailureSkip, config.Claim.OnFailure)
	assert.True(t, config.Claim.FreeOnly)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("S3RIPPER_PAGE_LIMIT", "sixty")

	config := DefaultConfig()
	err := config.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3RIPPER_PAGE_LIMIT")
	assert.Equal(t, 60, config.Collections.PageLimit)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero page limit",
			mutate:  func(c *Config) { c.Collections.PageLimit = 0 },
			wantErr: "page limit must be positive",
		},
		{
			name:    "inverted delays",
			mutate:  func(c *Config) { c.Pacing.MinDelay, c.Pacing.MaxDelay = 5, 2 },
			wantErr: "max delay must not be below min delay",
		},
		{
			name:    "unknown purchase policy",
			mutate:  func(c *Config) { c.Claim.OnFailure = "retry" },
			wantErr: "invalid purchase failure policy",
		},
		{
			name:    "relative graphql url",
			mutate:  func(c *Config) { c.Adobe.GraphQLURL = "/beta/graphql" },
			wantErr: "GraphQL URL must be an absolute URL",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "blank collection id",
			mutate:  func(c *Config) { c.Collections.IDs = []string{"abc", " "} },
			wantErr: "collection ids cannot be blank",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsAllViolations(t *testing.T) {
	config := DefaultConfig()
	config.Output.BaseDirectory = ""
	config.Transport.MaxAttempts = 0

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output directory is required")
	assert.Contains(t, err.Error(), "max attempts must be positive")
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	config := DefaultConfig()
	config.Collections.IDs = []string{"col-1"}
	config.Pacing.MaxDelay = 9
	require.NoError(t, config.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, []string{"col-1"}, loaded.Collections.IDs)
	assert.Equal(t, 9, loaded.Pacing.MaxDelay)
	assert.Equal(t, 30*time.Second, loaded.Transport.Timeout)
}

func TestLoadFromFilePartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("output:\n  base_directory: /tmp/assets\ntransport:\n  timeout: 45s\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(path))

	assert.Equal(t, "/tmp/assets", config.Output.BaseDirectory)
	assert.Equal(t, 45*time.Second, config.Transport.Timeout)
	assert.Equal(t, 60, config.Collections.PageLimit)
	assert.Equal(t, "substance-source", config.Adobe.ClientID)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("output:\n  base_directory: from-file\npacing:\n  min_delay: 1\n  max_delay: 4\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	t.Setenv("S3RIPPER_OUTPUT_DIR", "from-env")
	t.Setenv("S3RIPPER_MAX_DELAY", "8")

	config, err := Load(path, map[string]interface{}{
		"output":  "from-flag",
		"ims-sid": "sid-from-flag",
	})
	require.NoError(t, err)

	assert.Equal(t, "from-flag", config.Output.BaseDirectory)
	assert.Equal(t, "sid-from-flag", config.Adobe.SessionID)
	assert.Equal(t, 8, config.Pacing.MaxDelay)
	assert.Equal(t, 1, config.Pacing.MinDelay)
}

func TestLoadFailsValidation(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")

	_, err = Load("", map[string]interface{}{"on-purchase-failure": "ignore"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

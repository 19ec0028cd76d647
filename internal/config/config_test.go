package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-signal-radar/internal/common"
)

func TestDefaults(t *testing.T) {
	cfg := defaults()

	assert.Equal(t, 100, cfg.QuotaFloor)
	assert.Equal(t, 5, cfg.QuotaSafetyMargin)
	assert.Equal(t, 60, cfg.QuotaCooldownSec)
	assert.Equal(t, 5, cfg.SurgeMinStars)
	assert.Equal(t, 10, cfg.RescoreThreshold)
	assert.Equal(t, "https://data.gharchive.org", cfg.ArchiveBaseURL)
	assert.NotEmpty(t, cfg.TrackedLangs)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		expectErr bool
	}{
		{
			name: "凭证齐全",
			mutate: func(c *Config) {
				c.GithubToken = "ghp_xxx"
				c.DatabaseDSN = "host=localhost"
			},
			expectErr: false,
		},
		{
			name: "缺少 GitHub token",
			mutate: func(c *Config) {
				c.DatabaseDSN = "host=localhost"
			},
			expectErr: true,
		},
		{
			name: "缺少数据库 DSN",
			mutate: func(c *Config) {
				c.GithubToken = "ghp_xxx"
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.expectErr {
				require.Error(t, err)
				assert.True(t, common.HasCode(err, common.ErrCodeConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("RADAR_GITHUB_TOKEN", "ghp_test")
	t.Setenv("RADAR_DATABASE_DSN", "host=localhost user=radar")
	t.Setenv("RADAR_QUOTA_FLOOR", "250")
	t.Setenv("RADAR_NOTIFY_MIN_SCORE", "80")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ghp_test", cfg.GithubToken)
	assert.Equal(t, 250, cfg.QuotaFloor)
	assert.Equal(t, 80, cfg.NotifyMinScore)
	// 未覆盖的保持默认
	assert.Equal(t, 60, cfg.QuotaCooldownSec)
}

func TestLoad_MissingCredentialIsFatal(t *testing.T) {
	t.Setenv("RADAR_GITHUB_TOKEN", "")
	t.Setenv("RADAR_DATABASE_DSN", "")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.ErrCodeConfig))
}

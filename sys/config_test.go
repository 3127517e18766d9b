package sys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DATABASE_PATH", "test.db")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.XPPerMessage)
	assert.Equal(t, 60*time.Second, cfg.XPCooldown)
	assert.Equal(t, 50, cfg.LevelUpBase)
	assert.True(t, cfg.EnableGlobalLeaderboard)
	assert.True(t, cfg.EnableServerLeaderboard)
	assert.False(t, cfg.EnableRankRoles)
	assert.Equal(t, 30*time.Second, cfg.LeaderboardCacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.CooldownSweepInterval)
	assert.Same(t, cfg, GlobalConfig)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DATABASE_PATH", "test.db")
	t.Setenv("OWNER_IDS", " 1 , 2")
	t.Setenv("XP_PER_MESSAGE", "5")
	t.Setenv("XP_COOLDOWN", "0")
	t.Setenv("LEVEL_UP_BASE", "100")
	t.Setenv("ENABLE_GLOBAL_LEADERBOARD", "false")
	t.Setenv("ENABLE_RANK_ROLES", "true")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, cfg.OwnerIDs)
	assert.Equal(t, 5, cfg.XPPerMessage)
	assert.Zero(t, cfg.XPCooldown)
	assert.Equal(t, 100, cfg.LevelUpBase)
	assert.False(t, cfg.EnableGlobalLeaderboard)
	assert.True(t, cfg.EnableRankRoles)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestMultiplierGate(t *testing.T) {
	hosted := &Config{OwnerIDs: []string{"1", "2"}}
	assert.True(t, hosted.CanChangeMultiplier("2"))
	assert.False(t, hosted.CanChangeMultiplier("3"))

	selfHosted := &Config{SelfHosted: true}
	assert.True(t, selfHosted.CanChangeMultiplier("3"))
}

func TestLoadConfigRejectsMalformedValues(t *testing.T) {
	cases := map[string]string{
		"XP_PER_MESSAGE":    "lots",
		"ENABLE_RANK_ROLES": "maybe",
		"LEVEL_UP_BASE":     "0",
		"XP_COOLDOWN":       "-5",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("DISCORD_TOKEN", "token")
			t.Setenv("DATABASE_PATH", "test.db")
			t.Setenv(key, value)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestValidateRequiresToken(t *testing.T) {
	cfg := &Config{LevelUpBase: 50, CooldownSweepInterval: time.Minute}
	assert.EqualError(t, cfg.Validate(), MsgConfigMissingToken)

	cfg.Token = "token"
	cfg.GuildID = "123"
	assert.Error(t, cfg.Validate())

	cfg.GuildID = "123456789012345678"
	assert.NoError(t, cfg.Validate())
}

package sys

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the bot reads from the environment at startup.
type Config struct {
	Token        string
	GuildID      string
	DatabasePath string
	OwnerIDs     []string
	SelfHosted   bool
	Silent       bool

	// Leveling
	XPPerMessage    int
	XPCooldown      time.Duration
	LevelUpBase     int
	AchievementFile string

	// Feature toggles
	EnableGlobalLeaderboard bool
	EnableServerLeaderboard bool
	EnableRankRoles         bool

	// Optional infrastructure
	RedisURL              string
	LeaderboardCacheTTL   time.Duration
	MetricsAddr           string
	CooldownSweepInterval time.Duration
}

var GlobalConfig *Config

// LoadConfig initializes the configuration from environment variables.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		folder := "."
		if info, err := os.Stat("data"); err == nil && info.IsDir() {
			folder = "./data"
		}
		dbPath = filepath.Join(folder, GetProjectName()+".db")
	}

	ownerIDsStr := os.Getenv("OWNER_IDS")
	var ownerIDs []string
	if ownerIDsStr != "" {
		ownerIDs = strings.Split(ownerIDsStr, ",")
		for i := range ownerIDs {
			ownerIDs[i] = strings.TrimSpace(ownerIDs[i])
		}
	}

	env := envReader{}
	cfg := &Config{
		Token:        os.Getenv("DISCORD_TOKEN"),
		GuildID:      os.Getenv("GUILD_ID"),
		DatabasePath: dbPath,
		OwnerIDs:     ownerIDs,
		SelfHosted:   env.bool("IS_SELF_HOSTED", true),
		Silent:       env.bool("SILENT", false),

		XPPerMessage:    env.int("XP_PER_MESSAGE", 1),
		XPCooldown:      env.seconds("XP_COOLDOWN", 60),
		LevelUpBase:     env.int("LEVEL_UP_BASE", 50),
		AchievementFile: os.Getenv("ACHIEVEMENTS_FILE"),

		EnableGlobalLeaderboard: env.bool("ENABLE_GLOBAL_LEADERBOARD", true),
		EnableServerLeaderboard: env.bool("ENABLE_SERVER_LEADERBOARD", true),
		EnableRankRoles:         env.bool("ENABLE_RANK_ROLES", false),

		RedisURL:              os.Getenv("REDIS_URL"),
		LeaderboardCacheTTL:   env.seconds("LEADERBOARD_CACHE_TTL", 30),
		MetricsAddr:           os.Getenv("METRICS_ADDR"),
		CooldownSweepInterval: env.seconds("COOLDOWN_SWEEP_INTERVAL", 600),
	}

	if env.err != nil {
		return nil, env.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Silent {
		SetSilentMode(true)
	}

	GlobalConfig = cfg
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf(MsgConfigMissingToken)
	}
	if c.GuildID != "" && (len(c.GuildID) < 17 || len(c.GuildID) > 20) {
		return fmt.Errorf("invalid GUILD_ID: must be a valid Snowflake")
	}
	if c.XPPerMessage < 0 {
		return fmt.Errorf("invalid XP_PER_MESSAGE: must not be negative")
	}
	if c.XPCooldown < 0 {
		return fmt.Errorf("invalid XP_COOLDOWN: must not be negative")
	}
	if c.LevelUpBase < 1 {
		return fmt.Errorf("invalid LEVEL_UP_BASE: must be at least 1")
	}
	if c.CooldownSweepInterval <= 0 {
		return fmt.Errorf("invalid COOLDOWN_SWEEP_INTERVAL: must be positive")
	}
	return nil
}

// IsOwner reports whether userID is listed in OWNER_IDS.
func (c *Config) IsOwner(userID string) bool {
	for _, id := range c.OwnerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// CanChangeMultiplier reports whether userID may change a guild's XP
// multiplier. Hosted instances reserve it for the owners.
func (c *Config) CanChangeMultiplier(userID string) bool {
	return c.SelfHosted || c.IsOwner(userID)
}

func GetProjectName() string {
	exePath, err := os.Executable()
	projectName := "bot"
	if err == nil {
		projectName = filepath.Base(exePath)
		projectName = strings.TrimSuffix(projectName, ".exe")

		if projectName == "main" || strings.HasPrefix(projectName, "go_build_") || strings.HasSuffix(projectName, ".test") {
			if modData, err := os.ReadFile("go.mod"); err == nil {
				lines := strings.Split(string(modData), "\n")
				if len(lines) > 0 && strings.HasPrefix(lines[0], "module ") {
					parts := strings.Split(lines[0], "/")
					projectName = strings.TrimSpace(parts[len(parts)-1])
				}
			}
		}
	}
	return projectName
}

// envReader parses typed variables and keeps the first failure.
type envReader struct {
	err error
}

func (e *envReader) int(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil && e.err == nil {
		e.err = fmt.Errorf(MsgConfigInvalidValue, key, raw, err)
	}
	if err != nil {
		return def
	}
	return v
}

func (e *envReader) bool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		if e.err == nil {
			e.err = fmt.Errorf(MsgConfigInvalidValue, key, raw, err)
		}
		return def
	}
	return v
}

func (e *envReader) seconds(key string, def int) time.Duration {
	return time.Duration(e.int(key, def)) * time.Second
}

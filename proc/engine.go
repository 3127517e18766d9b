package proc

import (
	"context"
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/knott/sys"
	"golang.org/x/time/rate"
)

type Scope string

const (
	ScopeServer Scope = "server"
	ScopeGlobal Scope = "global"

	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 25
)

var ErrScopeDisabled = errors.New("leaderboard scope is disabled")

type Options struct {
	XPPerMessage      int
	LevelUpBase       int
	Cooldown          time.Duration
	GlobalLeaderboard bool
	ServerLeaderboard bool
	RankRoles         bool
	// GrantsPerSecond throttles role grants; zero disables throttling.
	GrantsPerSecond float64
}

func OptionsFromConfig(cfg *sys.Config) Options {
	return Options{
		XPPerMessage:      cfg.XPPerMessage,
		LevelUpBase:       cfg.LevelUpBase,
		Cooldown:          cfg.XPCooldown,
		GlobalLeaderboard: cfg.EnableGlobalLeaderboard,
		ServerLeaderboard: cfg.EnableServerLeaderboard,
		RankRoles:         cfg.EnableRankRoles,
		GrantsPerSecond:   4,
	}
}

// Engine owns the leveling rules: XP gain, level-ups, achievements and rank
// roles. All state lives in the store except the cooldown map.
type Engine struct {
	store     *sys.Store
	opts      Options
	cooldowns *Cooldowns
	cache     *LeaderboardCache
	limiter   *rate.Limiter
}

// Leveling is the engine used by the Discord handlers once Setup has run.
var Leveling *Engine

func NewEngine(store *sys.Store, opts Options) *Engine {
	if opts.LevelUpBase < 1 {
		opts.LevelUpBase = 50
	}
	e := &Engine{
		store:     store,
		opts:      opts,
		cooldowns: NewCooldowns(opts.Cooldown),
	}
	if opts.GrantsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.GrantsPerSecond), 5)
	}
	return e
}

// WithCache makes leaderboard reads go through c.
func (e *Engine) WithCache(c *LeaderboardCache) *Engine {
	e.cache = c
	return e
}

func (e *Engine) Options() Options {
	return e.opts
}

// Setup seeds the achievement catalog, connects the optional leaderboard
// cache and publishes the engine as Leveling.
func Setup(ctx context.Context, cfg *sys.Config, store *sys.Store) (*Engine, error) {
	if err := seedCatalog(ctx, store, cfg.AchievementFile); err != nil {
		return nil, err
	}

	e := NewEngine(store, OptionsFromConfig(cfg))
	if cfg.RedisURL != "" {
		cache, err := DialLeaderboardCache(ctx, cfg.RedisURL, cfg.LeaderboardCacheTTL)
		if err != nil {
			sys.LogWarn(sys.MsgLevelingCacheFail, err)
		} else {
			sys.LogLeveling(sys.MsgLevelingCacheEnabled, cfg.LeaderboardCacheTTL)
			e.WithCache(cache)
		}
	}

	Leveling = e
	return e, nil
}

func (e *Engine) Close() {
	if e.cache != nil {
		_ = e.cache.Close()
	}
}

// --- Message pipeline ---

type MessageOutcome struct {
	Progress     ProgressResult
	Achievements []sys.AchievementDefinition
	Roles        *SyncReport
	Settings     sys.GuildSettings
}

// HandleMessage runs one guild message through the pipeline: cooldown,
// guild multiplier, progress, achievements, then rank roles on a level-up
// when they are enabled. It returns nil without error when the user is
// still on cooldown. Errors after the progress write are logged and do not
// stop the remaining steps. granter may be nil.
func (e *Engine) HandleMessage(ctx context.Context, g RoleGranter, userID, guildID snowflake.ID, now time.Time) (*MessageOutcome, error) {
	if !e.cooldowns.Allow(userID, guildID, now) {
		cooldownSkips.Inc()
		return nil, nil
	}

	settings, err := e.store.GetGuildSettings(ctx, guildID)
	if err != nil {
		storeErrors.WithLabelValues("guild_settings").Inc()
		return nil, err
	}

	res, err := e.ApplyMessageXP(ctx, userID, guildID, ComputeGain(e.opts.XPPerMessage, settings.XPMultiplier), now)
	if err != nil {
		return nil, err
	}
	out := &MessageOutcome{Progress: res, Settings: settings}

	// Progress is committed at this point.
	awards, err := e.EvaluateAndAward(ctx, userID, guildID, res.Progress.Level, res.Progress.TotalMessages, now)
	if err != nil {
		sys.LogLeveling(sys.MsgLevelingAwardFail, userID, guildID, err)
	}
	out.Achievements = awards
	for _, a := range awards {
		if a.RewardXP > 0 {
			out.Progress.Progress.XP += a.RewardXP
		}
	}

	if res.LeveledUp && e.opts.RankRoles && g != nil {
		report, err := e.SyncMember(ctx, g, guildID, userID, res.Progress.Level)
		if err != nil {
			sys.LogRoles(sys.MsgRolesMemberFail, userID, guildID, err)
		}
		out.Roles = &report
	}

	if res.LeveledUp || len(awards) > 0 {
		e.invalidate(ctx, guildID)
	}
	return out, nil
}

func (e *Engine) invalidate(ctx context.Context, guildID snowflake.ID) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx, guildID); err != nil {
		sys.LogWarn(sys.MsgLevelingCacheFail, err)
	}
}

// --- Queries ---

func (e *Engine) checkScope(scope Scope) error {
	switch scope {
	case ScopeGlobal:
		if !e.opts.GlobalLeaderboard {
			return ErrScopeDisabled
		}
	default:
		if !e.opts.ServerLeaderboard {
			return ErrScopeDisabled
		}
	}
	return nil
}

type RankInfo struct {
	Scope    Scope
	Progress sys.UserProgress
	Rank     int
	Title    string
	// NextLevelXP is the XP needed to leave the current level.
	NextLevelXP int
}

// Rank looks up the user's standing. found is false when the user has no
// progress in the scope yet.
func (e *Engine) Rank(ctx context.Context, userID, guildID snowflake.ID, scope Scope) (RankInfo, bool, error) {
	if err := e.checkScope(scope); err != nil {
		return RankInfo{}, false, err
	}

	var (
		p     sys.UserProgress
		rank  int
		found bool
		err   error
	)
	if scope == ScopeGlobal {
		p, found, err = e.store.GetGlobalProgress(ctx, userID)
		if err == nil && found {
			rank, found, err = e.store.GetGlobalRank(ctx, userID)
		}
	} else {
		p, found, err = e.store.GetProgress(ctx, userID, guildID)
		if err == nil && found {
			rank, found, err = e.store.GetRank(ctx, userID, guildID)
		}
	}
	if err != nil || !found {
		return RankInfo{}, false, err
	}

	return RankInfo{
		Scope:       scope,
		Progress:    p,
		Rank:        rank,
		Title:       TitleForLevel(p.Level),
		NextLevelXP: Threshold(p.Level, e.opts.LevelUpBase),
	}, true, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLeaderboardLimit
	case limit > MaxLeaderboardLimit:
		return MaxLeaderboardLimit
	}
	return limit
}

// Leaderboard returns the top entries of the scope, through the cache when
// one is configured.
func (e *Engine) Leaderboard(ctx context.Context, guildID snowflake.ID, scope Scope, limit int) ([]sys.LeaderboardEntry, error) {
	if err := e.checkScope(scope); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	cacheGuild := guildID
	if scope == ScopeGlobal {
		cacheGuild = 0
	}
	if e.cache != nil {
		entries, ok, err := e.cache.Get(ctx, cacheGuild, limit)
		if err != nil {
			sys.LogWarn(sys.MsgLevelingCacheFail, err)
		} else if ok {
			return entries, nil
		}
	}

	var (
		entries []sys.LeaderboardEntry
		err     error
	)
	if scope == ScopeGlobal {
		entries, err = e.store.GetGlobalLeaderboard(ctx, limit)
	} else {
		entries, err = e.store.GetLeaderboard(ctx, guildID, limit)
	}
	if err != nil {
		storeErrors.WithLabelValues("leaderboard").Inc()
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, cacheGuild, limit, entries); err != nil {
			sys.LogWarn(sys.MsgLevelingCacheFail, err)
		}
	}
	return entries, nil
}

// --- Administration ---

func (e *Engine) Settings(ctx context.Context, guildID snowflake.ID) (sys.GuildSettings, error) {
	return e.store.GetGuildSettings(ctx, guildID)
}

func (e *Engine) UpdateSettings(ctx context.Context, guildID snowflake.ID, u sys.GuildSettingsUpdate) (sys.GuildSettings, error) {
	return e.store.UpdateGuildSettings(ctx, guildID, u)
}

func (e *Engine) ToggleAnnouncements(ctx context.Context, guildID snowflake.ID) (bool, error) {
	return e.store.ToggleAnnouncements(ctx, guildID)
}

func (e *Engine) AddRankRole(ctx context.Context, guildID snowflake.ID, level int, roleID snowflake.ID) error {
	return e.store.AddRankRole(ctx, guildID, level, roleID)
}

func (e *Engine) RemoveRankRole(ctx context.Context, guildID snowflake.ID, level int) (bool, error) {
	return e.store.RemoveRankRole(ctx, guildID, level)
}

func (e *Engine) RankRoles(ctx context.Context, guildID snowflake.ID) ([]sys.RankRole, error) {
	return e.store.GetRankRoles(ctx, guildID)
}

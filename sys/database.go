package sys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	MinXPMultiplier = 0.1
	MaxXPMultiplier = 5.0
	MaxPrefixLength = 16

	RequirementLevel    = "level"
	RequirementMessages = "messages"
)

var (
	ErrMultiplierOutOfRange = fmt.Errorf("xp multiplier must be between %.1f and %.1f", MinXPMultiplier, MaxXPMultiplier)
	ErrPrefixTooLong        = fmt.Errorf("custom prefix must be at most %d characters", MaxPrefixLength)
	ErrInvalidLevel         = errors.New("level must be at least 1")
)

// --- Types ---

type UserProgress struct {
	UserID        snowflake.ID
	GuildID       snowflake.ID
	XP            int
	Level         int
	LastMessage   time.Time
	TotalMessages int
}

type LeaderboardEntry struct {
	UserID        snowflake.ID `json:"user_id"`
	XP            int          `json:"xp"`
	Level         int          `json:"level"`
	TotalMessages int          `json:"total_messages"`
	Rank          int          `json:"rank"`
}

type GuildSettings struct {
	GuildID             snowflake.ID
	XPMultiplier        float64
	LevelUpChannel      snowflake.ID // 0 announces in the source channel
	AnnouncementEnabled bool
	CustomPrefix        string
}

// GuildSettingsUpdate lists every settings field an administrator can change.
// Nil fields are left untouched. A zero channel or an empty prefix clears
// the stored value.
type GuildSettingsUpdate struct {
	XPMultiplier        *float64
	LevelUpChannel      *snowflake.ID
	AnnouncementEnabled *bool
	CustomPrefix        *string
}

func (u GuildSettingsUpdate) Validate() error {
	if u.XPMultiplier != nil && (*u.XPMultiplier < MinXPMultiplier || *u.XPMultiplier > MaxXPMultiplier) {
		return ErrMultiplierOutOfRange
	}
	if u.CustomPrefix != nil && len([]rune(*u.CustomPrefix)) > MaxPrefixLength {
		return ErrPrefixTooLong
	}
	return nil
}

type RankRole struct {
	GuildID snowflake.ID
	Level   int
	RoleID  snowflake.ID
}

type AchievementDefinition struct {
	ID               int64  `yaml:"-" db:"id"`
	Name             string `yaml:"name" db:"name"`
	Description      string `yaml:"description" db:"description"`
	RequirementType  string `yaml:"requirement_type" db:"requirement_type"`
	RequirementValue int    `yaml:"requirement_value" db:"requirement_value"`
	RewardXP         int    `yaml:"reward_xp" db:"reward_xp"`
}

type AchievementAward struct {
	Achievement AchievementDefinition
	EarnedAt    time.Time
}

// DefaultSettings is what a guild without a settings row behaves like.
func DefaultSettings(guildID snowflake.ID) GuildSettings {
	return GuildSettings{GuildID: guildID, XPMultiplier: 1.0, AnnouncementEnabled: true}
}

// --- Lifecycle ---

type Store struct {
	db *sqlx.DB
}

var DB *Store

func InitDatabase(ctx context.Context, path string) error {
	store, err := OpenStore(ctx, path)
	if err != nil {
		return err
	}
	DB = store
	LogDatabase(MsgDatabaseInitSuccess, path)
	return nil
}

func CloseDatabase() {
	if DB != nil {
		_ = DB.Close()
	}
}

// OpenStore opens (and creates if needed) the sqlite database at path.
// Every transaction is BEGIN IMMEDIATE, so read-modify-write sequences
// inside one never interleave with another writer.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on&_synchronous=NORMAL"
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := migrate(initCtx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tableQueries := []string{
		`CREATE TABLE IF NOT EXISTS user_progress (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			guild_id TEXT NOT NULL DEFAULT '',
			xp INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 1,
			last_message_time INTEGER NOT NULL DEFAULT 0,
			total_messages INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, guild_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_progress_board ON user_progress (guild_id, level DESC, xp DESC)`,
		`CREATE TABLE IF NOT EXISTS guild_settings (
			guild_id TEXT PRIMARY KEY,
			xp_multiplier REAL NOT NULL DEFAULT 1.0,
			level_up_channel TEXT,
			announcement_enabled INTEGER NOT NULL DEFAULT 1,
			custom_prefix TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS rank_roles (
			guild_id TEXT NOT NULL,
			level INTEGER NOT NULL,
			role_id TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (guild_id, level)
		)`,
		`CREATE TABLE IF NOT EXISTS achievements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			requirement_type TEXT NOT NULL,
			requirement_value INTEGER NOT NULL,
			reward_xp INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS user_achievements (
			user_id TEXT NOT NULL,
			guild_id TEXT NOT NULL DEFAULT '',
			achievement_id INTEGER NOT NULL,
			earned_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, guild_id, achievement_id),
			FOREIGN KEY (achievement_id) REFERENCES achievements (id)
		)`,
		`CREATE TABLE IF NOT EXISTS bot_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, q := range tableQueries {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf(MsgDatabaseTableError, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	// Additive migrations for databases created by older builds.
	migrations := []string{
		"ALTER TABLE guild_settings ADD COLUMN custom_prefix TEXT",
	}
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil && !strings.Contains(err.Error(), "duplicate column") {
			return fmt.Errorf(MsgDatabaseMigrateError, err)
		}
	}
	return nil
}

// guildKey maps the zero guild (global/DM context) to an empty string.
func guildKey(id snowflake.ID) string {
	if id == 0 {
		return ""
	}
	return id.String()
}

func parseID(raw string) (snowflake.ID, error) {
	if raw == "" {
		return 0, nil
	}
	return snowflake.Parse(raw)
}

// --- Bot config ---

func (s *Store) GetBotConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM bot_config WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *Store) SetBotConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// --- Progress ---

type progressRow struct {
	UserID          string `db:"user_id"`
	GuildID         string `db:"guild_id"`
	XP              int    `db:"xp"`
	Level           int    `db:"level"`
	LastMessageTime int64  `db:"last_message_time"`
	TotalMessages   int    `db:"total_messages"`
}

func (r progressRow) progress() (UserProgress, error) {
	uid, err := parseID(r.UserID)
	if err != nil {
		return UserProgress{}, fmt.Errorf("failed to parse user ID '%s': %w", r.UserID, err)
	}
	gid, err := parseID(r.GuildID)
	if err != nil {
		return UserProgress{}, fmt.Errorf("failed to parse guild ID '%s': %w", r.GuildID, err)
	}
	p := UserProgress{
		UserID:        uid,
		GuildID:       gid,
		XP:            r.XP,
		Level:         r.Level,
		TotalMessages: r.TotalMessages,
	}
	if r.LastMessageTime > 0 {
		p.LastMessage = time.Unix(r.LastMessageTime, 0)
	}
	return p, nil
}

const progressColumns = "user_id, guild_id, xp, level, last_message_time, total_messages"

// ApplyProgress reads the (user, guild) row, hands it to fn and stores what
// fn returns, all inside one write transaction. found is false for a user
// without a row yet; cur then holds the zero state at level 1.
func (s *Store) ApplyProgress(ctx context.Context, userID, guildID snowflake.ID, fn func(cur UserProgress, found bool) UserProgress) (UserProgress, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return UserProgress{}, err
	}
	defer tx.Rollback()

	var row progressRow
	found := true
	err = tx.GetContext(ctx, &row, "SELECT "+progressColumns+" FROM user_progress WHERE user_id = ? AND guild_id = ?",
		userID.String(), guildKey(guildID))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		found = false
		row = progressRow{UserID: userID.String(), GuildID: guildKey(guildID), Level: 1}
	case err != nil:
		return UserProgress{}, err
	}

	cur, err := row.progress()
	if err != nil {
		return UserProgress{}, err
	}

	next := fn(cur, found)
	next.UserID, next.GuildID = userID, guildID

	var last int64
	if !next.LastMessage.IsZero() {
		last = next.LastMessage.Unix()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_progress (user_id, guild_id, xp, level, last_message_time, total_messages)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, guild_id) DO UPDATE SET
			xp = excluded.xp,
			level = excluded.level,
			last_message_time = excluded.last_message_time,
			total_messages = excluded.total_messages
	`, userID.String(), guildKey(guildID), next.XP, next.Level, last, next.TotalMessages)
	if err != nil {
		return UserProgress{}, err
	}

	if err := tx.Commit(); err != nil {
		return UserProgress{}, err
	}
	return next, nil
}

func (s *Store) GetProgress(ctx context.Context, userID, guildID snowflake.ID) (UserProgress, bool, error) {
	var row progressRow
	err := s.db.GetContext(ctx, &row, "SELECT "+progressColumns+" FROM user_progress WHERE user_id = ? AND guild_id = ?",
		userID.String(), guildKey(guildID))
	if errors.Is(err, sql.ErrNoRows) {
		return UserProgress{}, false, nil
	}
	if err != nil {
		return UserProgress{}, false, err
	}
	p, err := row.progress()
	return p, err == nil, err
}

// GetGlobalProgress aggregates a user over every guild: summed XP and
// messages, highest level.
func (s *Store) GetGlobalProgress(ctx context.Context, userID snowflake.ID) (UserProgress, bool, error) {
	var agg struct {
		Rows          int `db:"row_count"`
		XP            int `db:"xp"`
		Level         int `db:"level"`
		TotalMessages int `db:"total_messages"`
	}
	err := s.db.GetContext(ctx, &agg, `
		SELECT COUNT(*) AS row_count, COALESCE(SUM(xp), 0) AS xp, COALESCE(MAX(level), 0) AS level,
			COALESCE(SUM(total_messages), 0) AS total_messages
		FROM user_progress WHERE user_id = ?
	`, userID.String())
	if err != nil {
		return UserProgress{}, false, err
	}
	if agg.Rows == 0 {
		return UserProgress{}, false, nil
	}
	return UserProgress{
		UserID:        userID,
		XP:            agg.XP,
		Level:         agg.Level,
		TotalMessages: agg.TotalMessages,
	}, true, nil
}

// --- Leaderboards ---

// Ties on (level, xp) are broken by ascending numeric user ID and share a rank.
// A negative limit returns every row.
func (s *Store) GetLeaderboard(ctx context.Context, guildID snowflake.ID, limit int) ([]LeaderboardEntry, error) {
	return s.selectBoard(ctx, `
		SELECT user_id, xp, level, total_messages FROM user_progress
		WHERE guild_id = ?
		ORDER BY level DESC, xp DESC, CAST(user_id AS INTEGER) ASC
		LIMIT ?
	`, guildKey(guildID), limit)
}

func (s *Store) GetGlobalLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	return s.selectBoard(ctx, `
		SELECT user_id, SUM(xp) AS xp, MAX(level) AS level, SUM(total_messages) AS total_messages
		FROM user_progress
		GROUP BY user_id
		ORDER BY level DESC, xp DESC, CAST(user_id AS INTEGER) ASC
		LIMIT ?
	`, limit)
}

func (s *Store) selectBoard(ctx context.Context, query string, args ...any) ([]LeaderboardEntry, error) {
	var rows []struct {
		UserID        string `db:"user_id"`
		XP            int    `db:"xp"`
		Level         int    `db:"level"`
		TotalMessages int    `db:"total_messages"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		uid, err := snowflake.Parse(r.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse user ID '%s': %w", r.UserID, err)
		}
		rank := i + 1
		if i > 0 && entries[i-1].Level == r.Level && entries[i-1].XP == r.XP {
			rank = entries[i-1].Rank
		}
		entries = append(entries, LeaderboardEntry{
			UserID:        uid,
			XP:            r.XP,
			Level:         r.Level,
			TotalMessages: r.TotalMessages,
			Rank:          rank,
		})
	}
	return entries, nil
}

// GetRank is 1 + the number of users in the guild with a strictly better
// (level, xp). found is false when the user has no row.
func (s *Store) GetRank(ctx context.Context, userID, guildID snowflake.ID) (int, bool, error) {
	p, found, err := s.GetProgress(ctx, userID, guildID)
	if err != nil || !found {
		return 0, false, err
	}
	var rank int
	err = s.db.GetContext(ctx, &rank, `
		SELECT COUNT(*) + 1 FROM user_progress
		WHERE guild_id = ? AND (level > ? OR (level = ? AND xp > ?))
	`, guildKey(guildID), p.Level, p.Level, p.XP)
	return rank, err == nil, err
}

func (s *Store) GetGlobalRank(ctx context.Context, userID snowflake.ID) (int, bool, error) {
	p, found, err := s.GetGlobalProgress(ctx, userID)
	if err != nil || !found {
		return 0, false, err
	}
	var rank int
	err = s.db.GetContext(ctx, &rank, `
		SELECT COUNT(*) + 1 FROM (
			SELECT MAX(level) AS level, SUM(xp) AS xp FROM user_progress GROUP BY user_id
		) WHERE level > ? OR (level = ? AND xp > ?)
	`, p.Level, p.Level, p.XP)
	return rank, err == nil, err
}

// --- Guild settings ---

type settingsRow struct {
	GuildID             string         `db:"guild_id"`
	XPMultiplier        float64        `db:"xp_multiplier"`
	LevelUpChannel      sql.NullString `db:"level_up_channel"`
	AnnouncementEnabled bool           `db:"announcement_enabled"`
	CustomPrefix        sql.NullString `db:"custom_prefix"`
}

func (s *Store) GetGuildSettings(ctx context.Context, guildID snowflake.ID) (GuildSettings, error) {
	var row settingsRow
	err := s.db.GetContext(ctx, &row, `
		SELECT guild_id, xp_multiplier, level_up_channel, announcement_enabled, custom_prefix
		FROM guild_settings WHERE guild_id = ?
	`, guildKey(guildID))
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings(guildID), nil
	}
	if err != nil {
		return GuildSettings{}, err
	}

	settings := GuildSettings{
		GuildID:             guildID,
		XPMultiplier:        row.XPMultiplier,
		AnnouncementEnabled: row.AnnouncementEnabled,
		CustomPrefix:        row.CustomPrefix.String,
	}
	if row.LevelUpChannel.Valid && row.LevelUpChannel.String != "" {
		if settings.LevelUpChannel, err = snowflake.Parse(row.LevelUpChannel.String); err != nil {
			return GuildSettings{}, fmt.Errorf("failed to parse channel ID '%s': %w", row.LevelUpChannel.String, err)
		}
	}
	return settings, nil
}

// UpdateGuildSettings applies u in one upsert and returns the stored result.
// Invalid input is rejected before anything is written.
func (s *Store) UpdateGuildSettings(ctx context.Context, guildID snowflake.ID, u GuildSettingsUpdate) (GuildSettings, error) {
	if err := u.Validate(); err != nil {
		return GuildSettings{}, err
	}

	defaults := DefaultSettings(guildID)
	args := map[string]any{
		"guild_id":       guildKey(guildID),
		"set_multiplier": u.XPMultiplier != nil,
		"multiplier":     defaults.XPMultiplier,
		"set_channel":    u.LevelUpChannel != nil,
		"channel":        sql.NullString{},
		"set_announce":   u.AnnouncementEnabled != nil,
		"announce":       defaults.AnnouncementEnabled,
		"set_prefix":     u.CustomPrefix != nil,
		"prefix":         sql.NullString{},
	}
	if u.XPMultiplier != nil {
		args["multiplier"] = *u.XPMultiplier
	}
	if u.LevelUpChannel != nil && *u.LevelUpChannel != 0 {
		args["channel"] = sql.NullString{String: u.LevelUpChannel.String(), Valid: true}
	}
	if u.AnnouncementEnabled != nil {
		args["announce"] = *u.AnnouncementEnabled
	}
	if u.CustomPrefix != nil && *u.CustomPrefix != "" {
		args["prefix"] = sql.NullString{String: *u.CustomPrefix, Valid: true}
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO guild_settings (guild_id, xp_multiplier, level_up_channel, announcement_enabled, custom_prefix)
		VALUES (:guild_id, :multiplier, :channel, :announce, :prefix)
		ON CONFLICT(guild_id) DO UPDATE SET
			xp_multiplier = CASE WHEN :set_multiplier THEN excluded.xp_multiplier ELSE guild_settings.xp_multiplier END,
			level_up_channel = CASE WHEN :set_channel THEN excluded.level_up_channel ELSE guild_settings.level_up_channel END,
			announcement_enabled = CASE WHEN :set_announce THEN excluded.announcement_enabled ELSE guild_settings.announcement_enabled END,
			custom_prefix = CASE WHEN :set_prefix THEN excluded.custom_prefix ELSE guild_settings.custom_prefix END
	`, args)
	if err != nil {
		return GuildSettings{}, err
	}
	return s.GetGuildSettings(ctx, guildID)
}

// ToggleAnnouncements flips announcement_enabled and returns the new value.
func (s *Store) ToggleAnnouncements(ctx context.Context, guildID snowflake.ID) (bool, error) {
	var enabled bool
	err := s.db.GetContext(ctx, &enabled, `
		INSERT INTO guild_settings (guild_id, announcement_enabled) VALUES (?, 0)
		ON CONFLICT(guild_id) DO UPDATE SET announcement_enabled = NOT guild_settings.announcement_enabled
		RETURNING announcement_enabled
	`, guildKey(guildID))
	return enabled, err
}

// --- Rank roles ---

func (s *Store) AddRankRole(ctx context.Context, guildID snowflake.ID, level int, roleID snowflake.ID) error {
	if level < 1 {
		return ErrInvalidLevel
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rank_roles (guild_id, level, role_id) VALUES (?, ?, ?)
		ON CONFLICT(guild_id, level) DO UPDATE SET role_id = excluded.role_id
	`, guildKey(guildID), level, roleID.String())
	return err
}

// RemoveRankRole deletes the mapping for level. Members keep roles already
// granted through it.
func (s *Store) RemoveRankRole(ctx context.Context, guildID snowflake.ID, level int) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM rank_roles WHERE guild_id = ? AND level = ?", guildKey(guildID), level)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) GetRankRoles(ctx context.Context, guildID snowflake.ID) ([]RankRole, error) {
	return s.selectRankRoles(ctx, "SELECT level, role_id FROM rank_roles WHERE guild_id = ? ORDER BY level ASC",
		guildID, guildKey(guildID))
}

// GetRankRolesForLevel returns the mappings at or below level, lowest first.
func (s *Store) GetRankRolesForLevel(ctx context.Context, guildID snowflake.ID, level int) ([]RankRole, error) {
	return s.selectRankRoles(ctx, "SELECT level, role_id FROM rank_roles WHERE guild_id = ? AND level <= ? ORDER BY level ASC",
		guildID, guildKey(guildID), level)
}

func (s *Store) selectRankRoles(ctx context.Context, query string, guildID snowflake.ID, args ...any) ([]RankRole, error) {
	var rows []struct {
		Level  int    `db:"level"`
		RoleID string `db:"role_id"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	roles := make([]RankRole, 0, len(rows))
	for _, r := range rows {
		rid, err := snowflake.Parse(r.RoleID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse role ID '%s': %w", r.RoleID, err)
		}
		roles = append(roles, RankRole{GuildID: guildID, Level: r.Level, RoleID: rid})
	}
	return roles, nil
}

// --- Achievements ---

const achievementColumns = "id, name, description, requirement_type, requirement_value, reward_xp"

// SeedAchievements inserts defs only when the catalog is empty and reports
// how many rows were written.
func (s *Store) SeedAchievements(ctx context.Context, defs []AchievementDefinition) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var count int
	if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM achievements"); err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	for _, d := range defs {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO achievements (name, description, requirement_type, requirement_value, reward_xp)
			VALUES (:name, :description, :requirement_type, :requirement_value, :reward_xp)
		`, d)
		if err != nil {
			return 0, fmt.Errorf("failed to seed achievement %q: %w", d.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(defs), nil
}

func (s *Store) GetAchievements(ctx context.Context) ([]AchievementDefinition, error) {
	var defs []AchievementDefinition
	err := s.db.SelectContext(ctx, &defs, "SELECT "+achievementColumns+" FROM achievements ORDER BY id ASC")
	return defs, err
}

func (s *Store) CountAchievements(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM achievements")
	return count, err
}

// GetUserAchievements lists what the user earned in the guild, newest first.
func (s *Store) GetUserAchievements(ctx context.Context, userID, guildID snowflake.ID) ([]AchievementAward, error) {
	var rows []struct {
		AchievementDefinition
		EarnedAt int64 `db:"earned_at"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.id, a.name, a.description, a.requirement_type, a.requirement_value, a.reward_xp, ua.earned_at
		FROM user_achievements ua
		JOIN achievements a ON ua.achievement_id = a.id
		WHERE ua.user_id = ? AND ua.guild_id = ?
		ORDER BY ua.earned_at DESC, a.id DESC
	`, userID.String(), guildKey(guildID))
	if err != nil {
		return nil, err
	}

	awards := make([]AchievementAward, 0, len(rows))
	for _, r := range rows {
		awards = append(awards, AchievementAward{Achievement: r.AchievementDefinition, EarnedAt: time.Unix(r.EarnedAt, 0)})
	}
	return awards, nil
}

// AwardAchievements awards every catalog entry the user has not earned yet
// and eligible accepts, then adds their reward XP to the stored progress
// row. Reward XP does not trigger a level-up. Results are in catalog order.
func (s *Store) AwardAchievements(ctx context.Context, userID, guildID snowflake.ID, now time.Time, eligible func(AchievementDefinition) bool) ([]AchievementDefinition, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var candidates []AchievementDefinition
	err = tx.SelectContext(ctx, &candidates, `
		SELECT `+achievementColumns+` FROM achievements
		WHERE id NOT IN (
			SELECT achievement_id FROM user_achievements WHERE user_id = ? AND guild_id = ?
		)
		ORDER BY id ASC
	`, userID.String(), guildKey(guildID))
	if err != nil {
		return nil, err
	}

	var awarded []AchievementDefinition
	reward := 0
	for _, a := range candidates {
		if !eligible(a) {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_achievements (user_id, guild_id, achievement_id, earned_at) VALUES (?, ?, ?, ?)",
			userID.String(), guildKey(guildID), a.ID, now.Unix()); err != nil {
			return nil, fmt.Errorf("failed to award achievement %d: %w", a.ID, err)
		}
		awarded = append(awarded, a)
		if a.RewardXP > 0 {
			reward += a.RewardXP
		}
	}

	if reward > 0 {
		if _, err := tx.ExecContext(ctx, "UPDATE user_progress SET xp = xp + ? WHERE user_id = ? AND guild_id = ?",
			reward, userID.String(), guildKey(guildID)); err != nil {
			return nil, err
		}
	}

	if len(awarded) == 0 {
		return nil, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return awarded, nil
}

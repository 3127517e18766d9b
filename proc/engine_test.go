package proc

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/disgoorg/snowflake/v2"
	"github.com/jmoiron/sqlx"
	"github.com/leeineian/knott/sys"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessageFirstMessage(t *testing.T) {
	e := newTestEngine(t, testOptions(), firstSteps)

	out, err := e.HandleMessage(context.Background(), nil, userA, guildA, time.Now())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.False(t, out.Progress.LeveledUp)
	assert.Equal(t, 1, out.Progress.Gain)
	require.Len(t, out.Achievements, 1)
	assert.Equal(t, 11, out.Progress.Progress.XP, "outcome includes the reward")
	assert.Nil(t, out.Roles)
	assert.True(t, out.Settings.AnnouncementEnabled)
}

func TestHandleMessageCooldown(t *testing.T) {
	opts := testOptions()
	opts.Cooldown = time.Minute
	e := newTestEngine(t, opts)
	now := time.Unix(1700000000, 0)

	out, err := e.HandleMessage(context.Background(), nil, userA, guildA, now)
	require.NoError(t, err)
	require.NotNil(t, out)

	out, err = e.HandleMessage(context.Background(), nil, userA, guildA, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = e.HandleMessage(context.Background(), nil, userA, guildA, now.Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, 2, out.Progress.Progress.TotalMessages)
}

func TestHandleMessageUsesGuildMultiplier(t *testing.T) {
	opts := testOptions()
	opts.XPPerMessage = 4
	e := newTestEngine(t, opts)
	ctx := context.Background()

	mult := 2.5
	_, err := e.UpdateSettings(ctx, guildA, sys.GuildSettingsUpdate{XPMultiplier: &mult})
	require.NoError(t, err)

	out, err := e.HandleMessage(ctx, nil, userA, guildA, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 10, out.Progress.Gain)
	assert.Equal(t, 10, out.Progress.Progress.XP)
}

func TestHandleMessageLevelUpGrantsRankRoles(t *testing.T) {
	e := newTestEngine(t, testOptions())
	ctx := context.Background()
	g := newFakeGranter()

	require.NoError(t, e.AddRankRole(ctx, guildA, 2, roleA))
	_, err := e.store.ApplyProgress(ctx, userA, guildA, func(cur sys.UserProgress, _ bool) sys.UserProgress {
		cur.XP, cur.Level, cur.TotalMessages = 49, 1, 10
		return cur
	})
	require.NoError(t, err)

	out, err := e.HandleMessage(ctx, g, userA, guildA, time.Now())
	require.NoError(t, err)
	require.True(t, out.Progress.LeveledUp)
	require.NotNil(t, out.Roles)
	assert.Equal(t, []snowflake.ID{roleA}, out.Roles.Granted)
}

func TestHandleMessageAwardFailureKeepsLevelUp(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "proc.db")
	store, err := sys.OpenStore(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	_, err = store.SeedAchievements(ctx, []sys.AchievementDefinition{firstSteps})
	require.NoError(t, err)

	e := NewEngine(store, testOptions())
	g := newFakeGranter()
	require.NoError(t, e.AddRankRole(ctx, guildA, 2, roleA))
	_, err = store.ApplyProgress(ctx, userA, guildA, func(cur sys.UserProgress, _ bool) sys.UserProgress {
		cur.XP, cur.Level, cur.TotalMessages = 49, 1, 49
		return cur
	})
	require.NoError(t, err)

	other, err := sqlx.Open("sqlite3", path)
	require.NoError(t, err)
	defer other.Close()
	_, err = other.ExecContext(ctx, "DROP TABLE user_achievements")
	require.NoError(t, err)

	out, err := e.HandleMessage(ctx, g, userA, guildA, time.Now())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, out.Progress.LeveledUp)
	assert.Empty(t, out.Achievements)
	require.NotNil(t, out.Roles)
	assert.Equal(t, []snowflake.ID{roleA}, out.Roles.Granted)
	assert.Equal(t, []snowflake.ID{roleA}, g.roles(userA))

	stored, found, err := store.GetProgress(ctx, userA, guildA)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, stored.Level)
}

func TestHandleMessageRankRolesDisabled(t *testing.T) {
	opts := testOptions()
	opts.RankRoles = false
	e := newTestEngine(t, opts)
	ctx := context.Background()
	g := newFakeGranter()

	require.NoError(t, e.AddRankRole(ctx, guildA, 2, roleA))
	_, err := e.store.ApplyProgress(ctx, userA, guildA, func(cur sys.UserProgress, _ bool) sys.UserProgress {
		cur.XP, cur.Level = 49, 1
		return cur
	})
	require.NoError(t, err)

	out, err := e.HandleMessage(ctx, g, userA, guildA, time.Now())
	require.NoError(t, err)
	assert.True(t, out.Progress.LeveledUp)
	assert.Nil(t, out.Roles)
	assert.Empty(t, g.attempts)
}

func TestRankScopes(t *testing.T) {
	e := newTestEngine(t, testOptions())
	ctx := context.Background()

	_, found, err := e.Rank(ctx, userA, guildA, ScopeServer)
	require.NoError(t, err)
	assert.False(t, found)

	for _, g := range []snowflake.ID{guildA, 42} {
		_, err := e.store.ApplyProgress(ctx, userA, g, func(cur sys.UserProgress, _ bool) sys.UserProgress {
			cur.XP, cur.Level, cur.TotalMessages = 20, 6, 300
			return cur
		})
		require.NoError(t, err)
	}

	info, found, err := e.Rank(ctx, userA, guildA, ScopeServer)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, info.Rank)
	assert.Equal(t, "Apprentice", info.Title)
	assert.Equal(t, 300, info.NextLevelXP)
	assert.Equal(t, 20, info.Progress.XP)

	info, found, err = e.Rank(ctx, userA, guildA, ScopeGlobal)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 40, info.Progress.XP)
	assert.Equal(t, 600, info.Progress.TotalMessages)
}

func TestScopeToggles(t *testing.T) {
	opts := testOptions()
	opts.GlobalLeaderboard = false
	e := newTestEngine(t, opts)
	ctx := context.Background()

	_, err := e.Leaderboard(ctx, guildA, ScopeGlobal, 10)
	assert.ErrorIs(t, err, ErrScopeDisabled)
	_, _, err = e.Rank(ctx, userA, guildA, ScopeGlobal)
	assert.ErrorIs(t, err, ErrScopeDisabled)

	_, err = e.Leaderboard(ctx, guildA, ScopeServer, 10)
	assert.NoError(t, err)

	opts.ServerLeaderboard = false
	e = newTestEngine(t, opts)
	_, err = e.Leaderboard(ctx, guildA, ScopeServer, 10)
	assert.ErrorIs(t, err, ErrScopeDisabled)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLeaderboardLimit, clampLimit(0))
	assert.Equal(t, DefaultLeaderboardLimit, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, MaxLeaderboardLimit, clampLimit(1000))
}

func TestLeaderboardThroughCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	e := newTestEngine(t, testOptions()).WithCache(NewLeaderboardCache(client, time.Minute))
	defer e.Close()
	ctx := context.Background()

	_, err := e.HandleMessage(ctx, nil, userA, guildA, time.Now())
	require.NoError(t, err)

	board, err := e.Leaderboard(ctx, guildA, ScopeServer, 5)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.True(t, mr.Exists(scopeKey(guildA)))

	// A new row without a level-up keeps serving the cached board.
	_, err = e.HandleMessage(ctx, nil, userB, guildA, time.Now())
	require.NoError(t, err)
	board, err = e.Leaderboard(ctx, guildA, ScopeServer, 5)
	require.NoError(t, err)
	assert.Len(t, board, 1)

	// A level-up invalidates it.
	_, err = e.store.ApplyProgress(ctx, userB, guildA, func(cur sys.UserProgress, _ bool) sys.UserProgress {
		cur.XP = 49
		return cur
	})
	require.NoError(t, err)
	_, err = e.HandleMessage(ctx, nil, userB, guildA, time.Now())
	require.NoError(t, err)
	assert.False(t, mr.Exists(scopeKey(guildA)))

	board, err = e.Leaderboard(ctx, guildA, ScopeServer, 5)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, userB, board[0].UserID)
}

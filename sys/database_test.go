package sys

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGuild = snowflake.ID(100000000000000001)
	testUser  = snowflake.ID(200000000000000001)
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func setProgress(t *testing.T, s *Store, user, guild snowflake.ID, xp, level, messages int) {
	t.Helper()
	_, err := s.ApplyProgress(context.Background(), user, guild, func(cur UserProgress, _ bool) UserProgress {
		cur.XP, cur.Level, cur.TotalMessages = xp, level, messages
		return cur
	})
	require.NoError(t, err)
}

func TestOpenStoreIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	first, err := OpenStore(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := OpenStore(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestApplyProgressCreatesAndUpdates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	got, err := s.ApplyProgress(ctx, testUser, testGuild, func(cur UserProgress, found bool) UserProgress {
		assert.False(t, found)
		assert.Equal(t, 1, cur.Level)
		assert.Zero(t, cur.XP)
		return UserProgress{XP: 1, Level: 1, TotalMessages: 1, LastMessage: now}
	})
	require.NoError(t, err)
	assert.Equal(t, testUser, got.UserID)
	assert.Equal(t, testGuild, got.GuildID)

	_, err = s.ApplyProgress(ctx, testUser, testGuild, func(cur UserProgress, found bool) UserProgress {
		assert.True(t, found)
		cur.XP += 5
		cur.TotalMessages++
		return cur
	})
	require.NoError(t, err)

	p, found, err := s.GetProgress(ctx, testUser, testGuild)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 6, p.XP)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 2, p.TotalMessages)
	assert.Equal(t, now.Unix(), p.LastMessage.Unix())
}

func TestApplyProgressSerializesConcurrentWriters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ApplyProgress(ctx, testUser, testGuild, func(cur UserProgress, _ bool) UserProgress {
				cur.TotalMessages++
				return cur
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, found, err := s.GetProgress(ctx, testUser, testGuild)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, writers, p.TotalMessages)
}

func TestGetProgressMissingRow(t *testing.T) {
	s := openTestStore(t)
	_, found, err := s.GetProgress(context.Background(), testUser, testGuild)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = s.GetGlobalProgress(context.Background(), testUser)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = s.GetRank(context.Background(), testUser, testGuild)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLeaderboardOrderingAndRanks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	setProgress(t, s, 30, testGuild, 10, 2, 60)
	setProgress(t, s, 10, testGuild, 40, 1, 40)
	setProgress(t, s, 20, testGuild, 10, 2, 60)
	setProgress(t, s, 40, testGuild, 0, 3, 150)
	setProgress(t, s, 50, 999, 0, 9, 500) // other guild

	board, err := s.GetLeaderboard(ctx, testGuild, 10)
	require.NoError(t, err)
	require.Len(t, board, 4)

	var order []snowflake.ID
	var ranks []int
	for _, e := range board {
		order = append(order, e.UserID)
		ranks = append(ranks, e.Rank)
	}
	assert.Equal(t, []snowflake.ID{40, 20, 30, 10}, order)
	assert.Equal(t, []int{1, 2, 2, 4}, ranks)

	for _, e := range board {
		rank, found, err := s.GetRank(ctx, e.UserID, testGuild)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, e.Rank, rank, "user %s", e.UserID)
	}

	limited, err := s.GetLeaderboard(ctx, testGuild, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestGlobalAggregates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	setProgress(t, s, 10, 1, 20, 3, 100)
	setProgress(t, s, 10, 2, 30, 5, 200)
	setProgress(t, s, 20, 1, 0, 5, 10)

	p, found, err := s.GetGlobalProgress(ctx, 10)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 50, p.XP)
	assert.Equal(t, 5, p.Level)
	assert.Equal(t, 300, p.TotalMessages)

	board, err := s.GetGlobalLeaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, snowflake.ID(10), board[0].UserID)
	assert.Equal(t, snowflake.ID(20), board[1].UserID)

	rank, found, err := s.GetGlobalRank(ctx, 20)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, rank)
}

func TestGuildSettingsDefaultsAndUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	settings, err := s.GetGuildSettings(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(testGuild), settings)

	mult := 2.5
	channel := snowflake.ID(300000000000000001)
	settings, err = s.UpdateGuildSettings(ctx, testGuild, GuildSettingsUpdate{XPMultiplier: &mult, LevelUpChannel: &channel})
	require.NoError(t, err)
	assert.Equal(t, 2.5, settings.XPMultiplier)
	assert.Equal(t, channel, settings.LevelUpChannel)
	assert.True(t, settings.AnnouncementEnabled)

	off := false
	prefix := "lv!"
	settings, err = s.UpdateGuildSettings(ctx, testGuild, GuildSettingsUpdate{AnnouncementEnabled: &off, CustomPrefix: &prefix})
	require.NoError(t, err)
	assert.Equal(t, 2.5, settings.XPMultiplier, "untouched fields keep their value")
	assert.Equal(t, channel, settings.LevelUpChannel)
	assert.False(t, settings.AnnouncementEnabled)
	assert.Equal(t, "lv!", settings.CustomPrefix)

	var clear snowflake.ID
	settings, err = s.UpdateGuildSettings(ctx, testGuild, GuildSettingsUpdate{LevelUpChannel: &clear})
	require.NoError(t, err)
	assert.Zero(t, settings.LevelUpChannel)
}

func TestGuildSettingsRejectsInvalidInput(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, v := range []float64{0.05, 5.01, -1} {
		_, err := s.UpdateGuildSettings(ctx, testGuild, GuildSettingsUpdate{XPMultiplier: &v})
		assert.ErrorIs(t, err, ErrMultiplierOutOfRange)
	}
	long := "abcdefghijklmnopq"
	_, err := s.UpdateGuildSettings(ctx, testGuild, GuildSettingsUpdate{CustomPrefix: &long})
	assert.ErrorIs(t, err, ErrPrefixTooLong)

	settings, err := s.GetGuildSettings(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(testGuild), settings, "nothing is written on rejection")

	for _, v := range []float64{MinXPMultiplier, MaxXPMultiplier} {
		_, err := s.UpdateGuildSettings(ctx, testGuild, GuildSettingsUpdate{XPMultiplier: &v})
		assert.NoError(t, err)
	}
}

func TestToggleAnnouncements(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	enabled, err := s.ToggleAnnouncements(ctx, testGuild)
	require.NoError(t, err)
	assert.False(t, enabled)

	enabled, err = s.ToggleAnnouncements(ctx, testGuild)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestRankRoles(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddRankRole(ctx, testGuild, 10, 1010))
	require.NoError(t, s.AddRankRole(ctx, testGuild, 5, 1005))
	require.NoError(t, s.AddRankRole(ctx, testGuild, 20, 1020))
	require.NoError(t, s.AddRankRole(ctx, testGuild, 10, 1011)) // replaces
	assert.ErrorIs(t, s.AddRankRole(ctx, testGuild, 0, 1), ErrInvalidLevel)

	all, err := s.GetRankRoles(ctx, testGuild)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{5, 10, 20}, []int{all[0].Level, all[1].Level, all[2].Level})
	assert.Equal(t, snowflake.ID(1011), all[1].RoleID)

	due, err := s.GetRankRolesForLevel(ctx, testGuild, 12)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, snowflake.ID(1005), due[0].RoleID)
	assert.Equal(t, snowflake.ID(1011), due[1].RoleID)

	removed, err := s.RemoveRankRole(ctx, testGuild, 5)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.RemoveRankRole(ctx, testGuild, 5)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSeedAchievementsOnlyWhenEmpty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	defs := []AchievementDefinition{
		{Name: "First Steps", Description: "Send your first message", RequirementType: RequirementMessages, RequirementValue: 1, RewardXP: 10},
		{Name: "Getting Started", Description: "Reach level 5", RequirementType: RequirementLevel, RequirementValue: 5, RewardXP: 25},
	}
	n, err := s.SeedAchievements(ctx, defs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.SeedAchievements(ctx, defs)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := s.CountAchievements(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	catalog, err := s.GetAchievements(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	assert.Equal(t, "First Steps", catalog[0].Name)
	assert.NotZero(t, catalog[0].ID)
}

func TestAwardAchievements(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	_, err := s.SeedAchievements(ctx, []AchievementDefinition{
		{Name: "First Steps", RequirementType: RequirementMessages, RequirementValue: 1, RewardXP: 10},
		{Name: "Chatterbox", RequirementType: RequirementMessages, RequirementValue: 100, RewardXP: 50},
		{Name: "Quiet", RequirementType: RequirementMessages, RequirementValue: 1, RewardXP: 0},
	})
	require.NoError(t, err)
	setProgress(t, s, testUser, testGuild, 45, 1, 1)

	onlyFirstMessage := func(a AchievementDefinition) bool { return a.RequirementValue <= 1 }

	awarded, err := s.AwardAchievements(ctx, testUser, testGuild, now, onlyFirstMessage)
	require.NoError(t, err)
	require.Len(t, awarded, 2)
	assert.Equal(t, "First Steps", awarded[0].Name)
	assert.Equal(t, "Quiet", awarded[1].Name)

	p, _, err := s.GetProgress(ctx, testUser, testGuild)
	require.NoError(t, err)
	assert.Equal(t, 55, p.XP, "reward XP is added without a level check")
	assert.Equal(t, 1, p.Level)

	again, err := s.AwardAchievements(ctx, testUser, testGuild, now, onlyFirstMessage)
	require.NoError(t, err)
	assert.Empty(t, again)

	earned, err := s.GetUserAchievements(ctx, testUser, testGuild)
	require.NoError(t, err)
	assert.Len(t, earned, 2)

	other, err := s.GetUserAchievements(ctx, testUser, 999)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestBotConfig(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v, err := s.GetBotConfig(ctx, "last_cmd_hash")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetBotConfig(ctx, "last_cmd_hash", "abc"))
	require.NoError(t, s.SetBotConfig(ctx, "last_cmd_hash", "def"))
	v, err = s.GetBotConfig(ctx, "last_cmd_hash")
	require.NoError(t, err)
	assert.Equal(t, "def", v)
}

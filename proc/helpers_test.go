package proc

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/knott/sys"
	"github.com/stretchr/testify/require"
)

const (
	guildA = snowflake.ID(100000000000000001)
	userA  = snowflake.ID(200000000000000001)
	userB  = snowflake.ID(200000000000000002)
)

func testOptions() Options {
	return Options{
		XPPerMessage:      1,
		LevelUpBase:       50,
		GlobalLeaderboard: true,
		ServerLeaderboard: true,
		RankRoles:         true,
	}
}

func openStore(t *testing.T) *sys.Store {
	t.Helper()
	store, err := sys.OpenStore(context.Background(), filepath.Join(t.TempDir(), "proc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// newTestEngine returns an engine over a fresh store seeded with catalog.
func newTestEngine(t *testing.T, opts Options, catalog ...sys.AchievementDefinition) *Engine {
	t.Helper()
	store := openStore(t)
	if len(catalog) > 0 {
		_, err := store.SeedAchievements(context.Background(), catalog)
		require.NoError(t, err)
	}
	return NewEngine(store, opts)
}

type fakeGranter struct {
	mu       sync.Mutex
	held     map[snowflake.ID][]snowflake.ID
	fail     map[snowflake.ID]error
	readErr  error
	attempts []snowflake.ID
}

func newFakeGranter() *fakeGranter {
	return &fakeGranter{
		held: map[snowflake.ID][]snowflake.ID{},
		fail: map[snowflake.ID]error{},
	}
}

func (f *fakeGranter) MemberRoles(_ context.Context, _, userID snowflake.ID) ([]snowflake.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return slices.Clone(f.held[userID]), nil
}

func (f *fakeGranter) GrantRole(_ context.Context, _, userID, roleID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, roleID)
	if err := f.fail[roleID]; err != nil {
		return err
	}
	f.held[userID] = append(f.held[userID], roleID)
	return nil
}

func (f *fakeGranter) roles(userID snowflake.ID) []snowflake.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.held[userID])
}

var errMissingPermissions = errors.New("missing permissions")

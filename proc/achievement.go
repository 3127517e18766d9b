package proc

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/knott/sys"
	"gopkg.in/yaml.v3"
)

// DefaultAchievements is the catalog seeded into an empty database.
var DefaultAchievements = []sys.AchievementDefinition{
	{Name: "First Steps", Description: "Send your first message", RequirementType: sys.RequirementMessages, RequirementValue: 1, RewardXP: 10},
	{Name: "Chatterbox", Description: "Send 100 messages", RequirementType: sys.RequirementMessages, RequirementValue: 100, RewardXP: 50},
	{Name: "Conversationalist", Description: "Send 500 messages", RequirementType: sys.RequirementMessages, RequirementValue: 500, RewardXP: 100},
	{Name: "Social Butterfly", Description: "Send 1000 messages", RequirementType: sys.RequirementMessages, RequirementValue: 1000, RewardXP: 200},
	{Name: "Community Leader", Description: "Send 5000 messages", RequirementType: sys.RequirementMessages, RequirementValue: 5000, RewardXP: 500},
	{Name: "Legend", Description: "Send 10000 messages", RequirementType: sys.RequirementMessages, RequirementValue: 10000, RewardXP: 1000},

	{Name: "Getting Started", Description: "Reach level 5", RequirementType: sys.RequirementLevel, RequirementValue: 5, RewardXP: 25},
	{Name: "Rising Star", Description: "Reach level 10", RequirementType: sys.RequirementLevel, RequirementValue: 10, RewardXP: 50},
	{Name: "Experienced", Description: "Reach level 25", RequirementType: sys.RequirementLevel, RequirementValue: 25, RewardXP: 100},
	{Name: "Veteran", Description: "Reach level 50", RequirementType: sys.RequirementLevel, RequirementValue: 50, RewardXP: 250},
	{Name: "Elite", Description: "Reach level 100", RequirementType: sys.RequirementLevel, RequirementValue: 100, RewardXP: 500},
	{Name: "Master", Description: "Reach level 200", RequirementType: sys.RequirementLevel, RequirementValue: 200, RewardXP: 1000},
	{Name: "Grandmaster", Description: "Reach level 300", RequirementType: sys.RequirementLevel, RequirementValue: 300, RewardXP: 2000},
	{Name: "Legendary", Description: "Reach level 375", RequirementType: sys.RequirementLevel, RequirementValue: 375, RewardXP: 5000},
}

type catalogFile struct {
	Achievements []sys.AchievementDefinition `yaml:"achievements"`
}

// LoadCatalog reads an achievement catalog from a YAML file of the form
//
//	achievements:
//	  - name: First Steps
//	    description: Send your first message
//	    requirement_type: messages
//	    requirement_value: 1
//	    reward_xp: 10
func LoadCatalog(path string) ([]sys.AchievementDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) ([]sys.AchievementDefinition, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse achievements: %w", err)
	}
	for i, a := range file.Achievements {
		if a.Name == "" {
			return nil, fmt.Errorf("achievement %d has no name", i+1)
		}
		if a.RequirementType != sys.RequirementLevel && a.RequirementType != sys.RequirementMessages {
			return nil, fmt.Errorf("achievement %q: unknown requirement_type %q", a.Name, a.RequirementType)
		}
		if a.RequirementValue < 1 {
			return nil, fmt.Errorf("achievement %q: requirement_value must be at least 1", a.Name)
		}
		if a.RewardXP < 0 {
			return nil, fmt.Errorf("achievement %q: reward_xp must not be negative", a.Name)
		}
	}
	return file.Achievements, nil
}

// Eligible reports whether a user at level with messages sent meets a's
// requirement.
func Eligible(a sys.AchievementDefinition, level, messages int) bool {
	switch a.RequirementType {
	case sys.RequirementLevel:
		return level >= a.RequirementValue
	case sys.RequirementMessages:
		return messages >= a.RequirementValue
	default:
		return false
	}
}

// EvaluateAndAward awards every unearned achievement the user now meets and
// returns them in catalog order. Calling it again with the same numbers
// awards nothing.
func (e *Engine) EvaluateAndAward(ctx context.Context, userID, guildID snowflake.ID, level, messages int, now time.Time) ([]sys.AchievementDefinition, error) {
	awarded, err := e.store.AwardAchievements(ctx, userID, guildID, now, func(a sys.AchievementDefinition) bool {
		return Eligible(a, level, messages)
	})
	if err != nil {
		storeErrors.WithLabelValues("award_achievements").Inc()
		return nil, err
	}
	achievementsAwarded.Add(float64(len(awarded)))
	return awarded, nil
}

// Achievements returns what the user earned in the guild and the catalog size.
func (e *Engine) Achievements(ctx context.Context, userID, guildID snowflake.ID) ([]sys.AchievementAward, int, error) {
	earned, err := e.store.GetUserAchievements(ctx, userID, guildID)
	if err != nil {
		return nil, 0, err
	}
	total, err := e.store.CountAchievements(ctx)
	if err != nil {
		return nil, 0, err
	}
	return earned, total, nil
}

func (e *Engine) Catalog(ctx context.Context) ([]sys.AchievementDefinition, error) {
	return e.store.GetAchievements(ctx)
}

// seedCatalog loads path when set, else the defaults, into an empty catalog.
func seedCatalog(ctx context.Context, store *sys.Store, path string) error {
	defs := DefaultAchievements
	if path != "" {
		loaded, err := LoadCatalog(path)
		if err != nil {
			sys.LogLeveling(sys.MsgLevelingCatalogFail, path, err)
			return err
		}
		sys.LogLeveling(sys.MsgLevelingCatalogLoaded, len(loaded), path)
		defs = loaded
	}

	n, err := store.SeedAchievements(ctx, defs)
	if err != nil {
		return err
	}
	if n > 0 {
		sys.LogDatabase(sys.MsgDatabaseSeeded, n)
	}
	return nil
}

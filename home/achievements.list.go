package home

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/knott/proc"
	"github.com/leeineian/knott/sys"
)

func handleAchievementsList(event *events.ApplicationCommandInteractionCreate) {
	catalog, err := proc.Leveling.Catalog(sys.AppContext)
	if err != nil {
		respondFailure(event, err)
		return
	}

	var b strings.Builder
	for _, a := range catalog {
		fmt.Fprintf(&b, "**%s**: %s (%s)\n", a.Name, a.Description, requirementText(a))
	}
	respond(event, true,
		discord.NewTextDisplay(fmt.Sprintf("## Achievements (%d)", len(catalog))),
		separator(),
		discord.NewTextDisplay(strings.TrimRight(b.String(), "\n")),
	)
}

func requirementText(a sys.AchievementDefinition) string {
	var req string
	switch a.RequirementType {
	case sys.RequirementLevel:
		req = fmt.Sprintf("reach level %d", a.RequirementValue)
	case sys.RequirementMessages:
		req = fmt.Sprintf("send %d messages", a.RequirementValue)
	default:
		req = a.RequirementType
	}
	if a.RewardXP > 0 {
		req += fmt.Sprintf(", +%d XP", a.RewardXP)
	}
	return req
}

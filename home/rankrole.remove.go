package home

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/knott/proc"
	"github.com/leeineian/knott/sys"
)

func handleRankRoleRemove(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	guildID, ok := requireGuild(event)
	if !ok {
		return
	}

	level := data.Int("level")
	removed, err := proc.Leveling.RemoveRankRole(sys.AppContext, guildID, level)
	if err != nil {
		respondFailure(event, err)
		return
	}
	if !removed {
		respondEphemeral(event, fmt.Sprintf(sys.ErrCommandNoRankRole, level))
		return
	}
	// Members who already hold the role keep it.
	respondEphemeral(event, fmt.Sprintf("Removed the rank role for **level %d**.", level))
}

package home

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/knott/proc"
	"github.com/leeineian/knott/sys"
)

func handleRankRoleAdd(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	guildID, ok := requireGuild(event)
	if !ok {
		return
	}

	level := data.Int("level")
	role, ok := data.OptRole("role")
	if !ok {
		return
	}
	if role.Managed || role.ID == guildID {
		respondEphemeral(event, sys.ErrCommandRoleManaged)
		return
	}

	if err := proc.Leveling.AddRankRole(sys.AppContext, guildID, level, role.ID); err != nil {
		respondFailure(event, err)
		return
	}
	respondEphemeral(event, fmt.Sprintf("Members reaching **level %d** will receive <@&%s>.", level, role.ID))
}

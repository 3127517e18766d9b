package home

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/knott/proc"
	"github.com/leeineian/knott/sys"
)

func handleXPConfigMultiplier(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	guildID, ok := requireGuild(event)
	if !ok {
		return
	}

	if cfg := sys.GlobalConfig; cfg != nil && !cfg.CanChangeMultiplier(event.User().ID.String()) {
		respondEphemeral(event, sys.ErrCommandOwnerOnly)
		return
	}

	value := data.Float("value")
	s, err := proc.Leveling.UpdateSettings(sys.AppContext, guildID, sys.GuildSettingsUpdate{XPMultiplier: &value})
	if err != nil {
		respondFailure(event, err)
		return
	}
	respondEphemeral(event, fmt.Sprintf("XP multiplier set to **%.2fx**.", s.XPMultiplier))
}

package home

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/knott/proc"
	"github.com/leeineian/knott/sys"
)

func handleXPConfigChannel(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	guildID, ok := requireGuild(event)
	if !ok {
		return
	}

	// absent option resets to the source channel
	channelID, _ := data.OptSnowflake("channel")
	s, err := proc.Leveling.UpdateSettings(sys.AppContext, guildID, sys.GuildSettingsUpdate{LevelUpChannel: &channelID})
	if err != nil {
		respondFailure(event, err)
		return
	}
	if s.LevelUpChannel == 0 {
		respondEphemeral(event, "Level-ups will be announced in the channel where they happen.")
		return
	}
	respondEphemeral(event, fmt.Sprintf("Level-ups will be announced in <#%s>.", s.LevelUpChannel))
}

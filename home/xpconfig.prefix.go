package home

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/knott/proc"
	"github.com/leeineian/knott/sys"
)

func handleXPConfigPrefix(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	guildID, ok := requireGuild(event)
	if !ok {
		return
	}

	prefix, _ := data.OptString("prefix")
	s, err := proc.Leveling.UpdateSettings(sys.AppContext, guildID, sys.GuildSettingsUpdate{CustomPrefix: &prefix})
	if err != nil {
		respondFailure(event, err)
		return
	}
	if s.CustomPrefix == "" {
		respondEphemeral(event, sys.MsgCommandSettingSaved+" The prefix was cleared.")
		return
	}
	respondEphemeral(event, fmt.Sprintf("%s Prefix is now `%s`.", sys.MsgCommandSettingSaved, s.CustomPrefix))
}

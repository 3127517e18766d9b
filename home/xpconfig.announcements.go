package home

import (
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/knott/proc"
	"github.com/leeineian/knott/sys"
)

func handleXPConfigAnnouncements(event *events.ApplicationCommandInteractionCreate) {
	guildID, ok := requireGuild(event)
	if !ok {
		return
	}

	enabled, err := proc.Leveling.ToggleAnnouncements(sys.AppContext, guildID)
	if err != nil {
		respondFailure(event, err)
		return
	}
	if enabled {
		respondEphemeral(event, "Level-up announcements are now **enabled**.")
	} else {
		respondEphemeral(event, "Level-up announcements are now **disabled**.")
	}
}

package home

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/knott/proc"
	"github.com/leeineian/knott/sys"
)

func handleXPConfigView(event *events.ApplicationCommandInteractionCreate) {
	guildID, ok := requireGuild(event)
	if !ok {
		return
	}

	s, err := proc.Leveling.Settings(sys.AppContext, guildID)
	if err != nil {
		respondFailure(event, err)
		return
	}
	opts := proc.Leveling.Options()

	channel := "Same channel as the message"
	if s.LevelUpChannel != 0 {
		channel = fmt.Sprintf("<#%s>", s.LevelUpChannel)
	}
	announcements := "Enabled"
	if !s.AnnouncementEnabled {
		announcements = "Disabled"
	}
	prefix := "Not set"
	if s.CustomPrefix != "" {
		prefix = fmt.Sprintf("`%s`", s.CustomPrefix)
	}

	respond(event, true,
		discord.NewTextDisplay("## XP settings"),
		separator(),
		discord.NewTextDisplay(fmt.Sprintf(
			"**XP multiplier:** %.2fx (%d XP per message)\n**Level-up channel:** %s\n**Announcements:** %s\n**Prefix:** %s\n**Cooldown:** %s",
			s.XPMultiplier, proc.ComputeGain(opts.XPPerMessage, s.XPMultiplier), channel, announcements, prefix, opts.Cooldown)),
	)
}

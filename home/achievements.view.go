package home

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/knott/proc"
	"github.com/leeineian/knott/sys"
)

func handleAchievementsView(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	guildID, ok := requireGuild(event)
	if !ok {
		return
	}

	target := event.User()
	if u, ok := data.OptUser("user"); ok {
		target = u
	}

	earned, total, err := proc.Leveling.Achievements(sys.AppContext, target.ID, guildID)
	if err != nil {
		respondFailure(event, err)
		return
	}

	header := fmt.Sprintf("## %s's achievements\nUnlocked **%d/%d**", target.Username, len(earned), total)
	if len(earned) == 0 {
		respond(event, false, discord.NewTextDisplay(header), separator(),
			discord.NewTextDisplay("Nothing unlocked yet. Keep chatting!"))
		return
	}

	var b strings.Builder
	for _, a := range earned {
		fmt.Fprintf(&b, "🏆 **%s**: %s · <t:%d:R>\n", a.Achievement.Name, a.Achievement.Description, a.EarnedAt.Unix())
	}
	respond(event, false,
		discord.NewTextDisplay(header),
		separator(),
		discord.NewTextDisplay(strings.TrimRight(b.String(), "\n")),
	)
}

package home

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/knott/proc"
	"github.com/leeineian/knott/sys"
)

func handleRankRoleList(event *events.ApplicationCommandInteractionCreate) {
	guildID, ok := requireGuild(event)
	if !ok {
		return
	}

	roles, err := proc.Leveling.RankRoles(sys.AppContext, guildID)
	if err != nil {
		respondFailure(event, err)
		return
	}
	if len(roles) == 0 {
		respondEphemeral(event, sys.ErrCommandNoRankRoles)
		return
	}

	var b strings.Builder
	for _, r := range roles {
		fmt.Fprintf(&b, "**Level %d** · <@&%s>\n", r.Level, r.RoleID)
	}
	body := strings.TrimRight(b.String(), "\n")
	if !proc.Leveling.Options().RankRoles {
		body += "\n-# " + sys.ErrCommandRolesOff
	}
	respond(event, true,
		discord.NewTextDisplay("## Rank roles"),
		separator(),
		discord.NewTextDisplay(body),
	)
}

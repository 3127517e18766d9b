package home

import (
	"errors"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/knott/proc"
	"github.com/leeineian/knott/sys"
)

func init() {
	minLimit, maxLimit := 1, proc.MaxLeaderboardLimit

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "leaderboard",
		Description: "Show the top members by level and XP",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionString{
				Name:        "scope",
				Description: "This server or across every server",
				Choices:     scopeChoices,
			},
			discord.ApplicationCommandOptionInt{
				Name:        "limit",
				Description: "How many entries to show",
				MinValue:    &minLimit,
				MaxValue:    &maxLimit,
			},
		},
	}, handleLeaderboard)
}

func handleLeaderboard(event *events.ApplicationCommandInteractionCreate) {
	guildID, ok := requireGuild(event)
	if !ok {
		return
	}
	data := event.SlashCommandInteractionData()
	scope := scopeOption(data)
	limit, _ := data.OptInt("limit")

	entries, err := proc.Leveling.Leaderboard(sys.AppContext, guildID, scope, limit)
	switch {
	case errors.Is(err, proc.ErrScopeDisabled):
		respondScopeDisabled(event, scope)
		return
	case err != nil:
		respondFailure(event, err)
		return
	case len(entries) == 0:
		respondEphemeral(event, sys.ErrCommandEmptyBoard)
		return
	}

	title := "## Server leaderboard"
	if scope == proc.ScopeGlobal {
		title = "## Global leaderboard"
	}
	respond(event, false,
		discord.NewTextDisplay(title),
		separator(),
		discord.NewTextDisplay(formatLeaderboard(entries)),
	)
}

func formatLeaderboard(entries []sys.LeaderboardEntry) string {
	var b strings.Builder
	for _, e := range entries {
		var medal string
		switch e.Rank {
		case 1:
			medal = "🥇"
		case 2:
			medal = "🥈"
		case 3:
			medal = "🥉"
		default:
			medal = fmt.Sprintf("`#%d`", e.Rank)
		}
		fmt.Fprintf(&b, "%s <@%s> · Level **%d** · %d XP · %s\n", medal, e.UserID, e.Level, e.XP, proc.TitleForLevel(e.Level))
	}
	return strings.TrimRight(b.String(), "\n")
}

package home

import (
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/knott/proc"
	"github.com/leeineian/knott/sys"
)

func init() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "rank",
		Description: "Show level, XP and rank",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionUser{
				Name:        "user",
				Description: "Whose rank to show (defaults to you)",
			},
			discord.ApplicationCommandOptionString{
				Name:        "scope",
				Description: "This server or across every server",
				Choices:     scopeChoices,
			},
		},
	}, handleRank)
}

func handleRank(event *events.ApplicationCommandInteractionCreate) {
	guildID, ok := requireGuild(event)
	if !ok {
		return
	}
	data := event.SlashCommandInteractionData()
	scope := scopeOption(data)

	target := event.User()
	if u, ok := data.OptUser("user"); ok {
		target = u
	}

	info, found, err := proc.Leveling.Rank(sys.AppContext, target.ID, guildID, scope)
	switch {
	case errors.Is(err, proc.ErrScopeDisabled):
		respondScopeDisabled(event, scope)
		return
	case err != nil:
		respondFailure(event, err)
		return
	case !found:
		if target.ID == event.User().ID {
			respondEphemeral(event, sys.ErrCommandNoData)
		} else {
			respondEphemeral(event, fmt.Sprintf(sys.ErrCommandNoDataFor, target.Username))
		}
		return
	}

	earned, total, err := proc.Leveling.Achievements(sys.AppContext, target.ID, guildID)
	if err != nil {
		respondFailure(event, err)
		return
	}

	p := info.Progress
	header := fmt.Sprintf("## %s\n**%s** · %s rank **#%d**", target.Username, info.Title, scope, info.Rank)
	stats := fmt.Sprintf("**Level:** %d\n**Messages:** %d\n**Achievements:** %d/%d", p.Level, p.TotalMessages, len(earned), total)
	if scope == proc.ScopeGlobal {
		stats = fmt.Sprintf("**Highest level:** %d\n**Total XP:** %d\n**Messages:** %d", p.Level, p.XP, p.TotalMessages)
		respond(event, false, discord.NewTextDisplay(header), separator(), discord.NewTextDisplay(stats))
		return
	}

	bar := fmt.Sprintf("`%s` %d / %d XP", progressBar(p.XP, info.NextLevelXP, 20), p.XP, info.NextLevelXP)
	respond(event, false,
		discord.NewTextDisplay(header),
		separator(),
		discord.NewTextDisplay(stats),
		discord.NewTextDisplay(bar),
	)
}

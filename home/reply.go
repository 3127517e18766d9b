package home

import (
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/knott/proc"
	"github.com/leeineian/knott/sys"
)

func respond(event *events.ApplicationCommandInteractionCreate, ephemeral bool, components ...discord.ContainerSubComponent) {
	err := event.CreateMessage(discord.NewMessageCreate().
		WithIsComponentsV2(true).
		AddComponents(discord.NewContainer(components...)).
		WithEphemeral(ephemeral).
		WithAllowedMentions(&discord.AllowedMentions{}))
	if err != nil {
		sys.LogCommand(sys.MsgCommandRespondFail, event.Data.CommandName(), err)
	}
}

func respondEphemeral(event *events.ApplicationCommandInteractionCreate, text string) {
	respond(event, true, discord.NewTextDisplay(text))
}

// respondFailure maps engine errors to the user-facing text and logs the
// ones the user cannot fix.
func respondFailure(event *events.ApplicationCommandInteractionCreate, err error) {
	switch {
	case errors.Is(err, sys.ErrMultiplierOutOfRange):
		respondEphemeral(event, sys.ErrCommandMultiplier)
	case errors.Is(err, sys.ErrPrefixTooLong):
		respondEphemeral(event, sys.ErrCommandPrefix)
	case errors.Is(err, sys.ErrInvalidLevel):
		respondEphemeral(event, sys.ErrCommandLevel)
	default:
		sys.LogCommand(sys.MsgCommandStoreFail, event.Data.CommandName(), err)
		respondEphemeral(event, sys.ErrCommandGeneric)
	}
}

func respondScopeDisabled(event *events.ApplicationCommandInteractionCreate, scope proc.Scope) {
	respondEphemeral(event, fmt.Sprintf(sys.ErrCommandScopeOff, scope))
}

// requireGuild returns the guild of the interaction, answering the user when
// there is none.
func requireGuild(event *events.ApplicationCommandInteractionCreate) (snowflake.ID, bool) {
	guildID := event.GuildID()
	if guildID == nil {
		respondEphemeral(event, sys.ErrCommandGuildOnly)
		return 0, false
	}
	return *guildID, true
}

func separator() discord.ContainerSubComponent {
	return discord.NewSeparator(discord.SeparatorSpacingSizeSmall).WithDivider(true)
}

func scopeOption(data discord.SlashCommandInteractionData) proc.Scope {
	if s, ok := data.OptString("scope"); ok && s == string(proc.ScopeGlobal) {
		return proc.ScopeGlobal
	}
	return proc.ScopeServer
}

var scopeChoices = []discord.ApplicationCommandOptionChoiceString{
	{Name: "This server", Value: string(proc.ScopeServer)},
	{Name: "Global", Value: string(proc.ScopeGlobal)},
}

// progressBar renders xp/total as a fixed width bar.
func progressBar(xp, total, width int) string {
	if total <= 0 {
		total = 1
	}
	filled := xp * width / total
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := make([]rune, 0, width)
	for i := 0; i < width; i++ {
		if i < filled {
			bar = append(bar, '█')
		} else {
			bar = append(bar, '░')
		}
	}
	return string(bar)
}

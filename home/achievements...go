package home

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/knott/sys"
)

func init() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "achievements",
		Description: "Achievement progress and catalog",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "view",
				Description: "Show the achievements a member has unlocked",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionUser{
						Name:        "user",
						Description: "Whose achievements to show (defaults to you)",
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "list",
				Description: "Show every achievement and how to earn it",
			},
		},
	}, handleAchievements)
}

func handleAchievements(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	if data.SubCommandName == nil {
		return
	}

	subCmd := *data.SubCommandName
	switch subCmd {
	case "view":
		handleAchievementsView(event, data)
	case "list":
		handleAchievementsList(event)
	default:
		sys.LogCommand(sys.MsgCommandUnknownSub, "achievements", subCmd)
	}
}

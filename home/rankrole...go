package home

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/leeineian/knott/sys"
)

func init() {
	adminPerm := discord.PermissionAdministrator
	minLevel := 1

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "rankrole",
		Description:              "Roles granted at a level (Admin Only)",
		DefaultMemberPermissions: omit.New(&adminPerm),
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "add",
				Description: "Grant a role when members reach a level",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{
						Name:        "level",
						Description: "Level that earns the role",
						Required:    true,
						MinValue:    &minLevel,
					},
					discord.ApplicationCommandOptionRole{
						Name:        "role",
						Description: "The role to grant",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "remove",
				Description: "Stop granting the role of a level",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{
						Name:        "level",
						Description: "Level to clear",
						Required:    true,
						MinValue:    &minLevel,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "list",
				Description: "Show configured rank roles",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "sync",
				Description: "Grant missing rank roles to every tracked member",
			},
		},
	}, handleRankRole)
}

func handleRankRole(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	if data.SubCommandName == nil {
		return
	}

	subCmd := *data.SubCommandName
	switch subCmd {
	case "add":
		handleRankRoleAdd(event, data)
	case "remove":
		handleRankRoleRemove(event, data)
	case "list":
		handleRankRoleList(event)
	case "sync":
		handleRankRoleSync(event)
	default:
		sys.LogCommand(sys.MsgCommandUnknownSub, "rankrole", subCmd)
	}
}

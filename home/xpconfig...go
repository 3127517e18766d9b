package home

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/leeineian/knott/sys"
)

func init() {
	adminPerm := discord.PermissionAdministrator
	minMultiplier, maxMultiplier := sys.MinXPMultiplier, sys.MaxXPMultiplier
	maxPrefix := sys.MaxPrefixLength

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "xpconfig",
		Description:              "XP settings for this server (Admin Only)",
		DefaultMemberPermissions: omit.New(&adminPerm),
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "view",
				Description: "Show the current XP settings",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "multiplier",
				Description: "Scale the XP every message earns",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionFloat{
						Name:        "value",
						Description: "Multiplier between 0.1 and 5.0",
						Required:    true,
						MinValue:    &minMultiplier,
						MaxValue:    &maxMultiplier,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "channel",
				Description: "Send level-up announcements to a channel (omit to reset)",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionChannel{
						Name:         "channel",
						Description:  "Announcement channel",
						ChannelTypes: []discord.ChannelType{discord.ChannelTypeGuildText},
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "announcements",
				Description: "Turn level-up announcements on or off",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "prefix",
				Description: "Set a custom prefix (omit to clear)",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "prefix",
						Description: "Prefix text",
						MaxLength:   &maxPrefix,
					},
				},
			},
		},
	}, handleXPConfig)
}

func handleXPConfig(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	if data.SubCommandName == nil {
		return
	}

	subCmd := *data.SubCommandName
	switch subCmd {
	case "view":
		handleXPConfigView(event)
	case "multiplier":
		handleXPConfigMultiplier(event, data)
	case "channel":
		handleXPConfigChannel(event, data)
	case "announcements":
		handleXPConfigAnnouncements(event)
	case "prefix":
		handleXPConfigPrefix(event, data)
	default:
		sys.LogCommand(sys.MsgCommandUnknownSub, "xpconfig", subCmd)
	}
}

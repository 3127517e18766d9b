package home

import (
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/knott/proc"
	"github.com/leeineian/knott/sys"
)

func init() {
	sys.RegisterMessageHandler(handleGuildMessage)
}

func handleGuildMessage(event *events.GuildMessageCreate) {
	msg := event.Message
	if msg.Author.Bot || msg.WebhookID != nil || proc.Leveling == nil {
		return
	}

	client := event.Client()
	ctx := sys.AppContext
	out, err := proc.Leveling.HandleMessage(ctx, proc.NewDisgoGranter(client), msg.Author.ID, event.GuildID, time.Now())
	if err != nil {
		sys.LogLeveling(sys.MsgLevelingMessageFail, msg.Author.ID, event.GuildID, err)
		return
	}
	if out == nil {
		return
	}

	if out.Progress.LeveledUp {
		sys.LogLeveling(sys.MsgLevelingLevelUp, msg.Author.ID, out.Progress.Progress.Level, event.GuildID)
	}
	for _, a := range out.Achievements {
		sys.LogLeveling(sys.MsgLevelingAchievement, msg.Author.ID, a.Name, event.GuildID, a.RewardXP)
	}

	if channelID, ok := announcementChannel(out, event.ChannelID); ok {
		announce(client, channelID, msg.Author.ID, out)
	}
}

// announcementChannel picks where an outcome is announced: the configured
// level-up channel, else the channel the message came from. ok is false when
// announcements are off or there is nothing to announce.
func announcementChannel(out *proc.MessageOutcome, source snowflake.ID) (snowflake.ID, bool) {
	if out == nil || !out.Settings.AnnouncementEnabled {
		return 0, false
	}
	if !out.Progress.LeveledUp && len(out.Achievements) == 0 {
		return 0, false
	}
	if out.Settings.LevelUpChannel != 0 {
		return out.Settings.LevelUpChannel, true
	}
	return source, true
}

func announce(client *bot.Client, channelID, userID snowflake.ID, out *proc.MessageOutcome) {
	var parts []discord.ContainerSubComponent
	if out.Progress.LeveledUp {
		level := out.Progress.Progress.Level
		parts = append(parts, discord.NewTextDisplay(fmt.Sprintf(
			"## Level up!\n<@%s> reached **level %d** and is now a **%s**.", userID, level, proc.TitleForLevel(level))))
		if out.Roles != nil && len(out.Roles.Granted) > 0 {
			var roles []string
			for _, r := range out.Roles.Granted {
				roles = append(roles, fmt.Sprintf("<@&%s>", r))
			}
			parts = append(parts, discord.NewTextDisplay("New roles: "+strings.Join(roles, ", ")))
		}
	}
	if len(out.Achievements) > 0 {
		if len(parts) > 0 {
			parts = append(parts, separator())
		}
		var lines []string
		for _, a := range out.Achievements {
			line := fmt.Sprintf("🏆 **%s**: %s", a.Name, a.Description)
			if a.RewardXP > 0 {
				line += fmt.Sprintf(" (+%d XP)", a.RewardXP)
			}
			lines = append(lines, line)
		}
		parts = append(parts, discord.NewTextDisplay(fmt.Sprintf("<@%s> unlocked:\n%s", userID, strings.Join(lines, "\n"))))
	}

	builder := discord.NewMessageCreate().
		WithIsComponentsV2(true).
		AddComponents(discord.NewContainer(parts...)).
		WithAllowedMentions(&discord.AllowedMentions{Users: []snowflake.ID{userID}})

	if _, err := client.Rest.CreateMessage(channelID, builder, rest.WithCtx(sys.AppContext)); err != nil {
		sys.LogLeveling(sys.MsgLevelingAnnounceFail, channelID, err)
	}
}

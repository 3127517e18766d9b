package home

import (
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/leeineian/knott/proc"
	"github.com/leeineian/knott/sys"
)

func handleRankRoleSync(event *events.ApplicationCommandInteractionCreate) {
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

	respondEphemeral(event, sys.MsgCommandSyncStarted)

	client := event.Client()
	appID, token := event.ApplicationID(), event.Token()
	go func() {
		report, err := proc.Leveling.SyncGuild(sys.AppContext, proc.NewDisgoGranter(client), guildID)
		text := fmt.Sprintf("Rank role sync finished: %d members checked, %d roles granted, %d failed, %d skipped.",
			report.Members, report.Granted, report.Failed, report.Skipped)
		switch {
		case errors.Is(err, proc.ErrNoRankRoles):
			text = sys.ErrCommandNoRankRoles
		case err != nil:
			sys.LogCommand(sys.MsgCommandStoreFail, "rankrole sync", err)
			text = sys.ErrCommandGeneric
		}

		_, err = client.Rest.CreateFollowupMessage(appID, token, discord.NewMessageCreate().
			WithIsComponentsV2(true).
			AddComponents(discord.NewContainer(discord.NewTextDisplay(text))).
			WithEphemeral(true), rest.WithCtx(sys.AppContext))
		if err != nil {
			sys.LogCommand(sys.MsgCommandRespondFail, "rankrole sync", err)
		}
	}()
}

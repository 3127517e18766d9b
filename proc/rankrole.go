package proc

import (
	"context"
	"errors"
	"slices"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/knott/sys"
)

var ErrNoRankRoles = errors.New("no rank roles configured")

// RoleGranter reads and adds member roles on the chat platform.
type RoleGranter interface {
	MemberRoles(ctx context.Context, guildID, userID snowflake.ID) ([]snowflake.ID, error)
	GrantRole(ctx context.Context, guildID, userID, roleID snowflake.ID) error
}

type RoleFailure struct {
	RoleID snowflake.ID
	Err    error
}

type SyncReport struct {
	Due     []snowflake.ID
	Granted []snowflake.ID
	Failed  []RoleFailure
}

type GuildSyncReport struct {
	Members int
	Skipped int
	Granted int
	Failed  int
}

// RolesDueForLevel lists the rank roles configured at or below level,
// lowest level first.
func (e *Engine) RolesDueForLevel(ctx context.Context, guildID snowflake.ID, level int) ([]snowflake.ID, error) {
	mappings, err := e.store.GetRankRolesForLevel(ctx, guildID, level)
	if err != nil {
		return nil, err
	}
	roles := make([]snowflake.ID, 0, len(mappings))
	for _, m := range mappings {
		roles = append(roles, m.RoleID)
	}
	return roles, nil
}

// SyncMember grants every due role the member does not hold yet. It never
// removes roles. A failed grant is recorded and the rest still go ahead.
func (e *Engine) SyncMember(ctx context.Context, g RoleGranter, guildID, userID snowflake.ID, level int) (SyncReport, error) {
	due, err := e.RolesDueForLevel(ctx, guildID, level)
	if err != nil {
		return SyncReport{}, err
	}
	report := SyncReport{Due: due}
	if len(due) == 0 {
		return report, nil
	}

	held, err := g.MemberRoles(ctx, guildID, userID)
	if err != nil {
		return report, err
	}

	for _, roleID := range due {
		if slices.Contains(held, roleID) {
			continue
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return report, err
			}
		}
		if err := g.GrantRole(ctx, guildID, userID, roleID); err != nil {
			sys.LogRoles(sys.MsgRolesGrantFail, roleID, userID, guildID, err)
			roleGrants.WithLabelValues("failed").Inc()
			report.Failed = append(report.Failed, RoleFailure{RoleID: roleID, Err: err})
			continue
		}
		sys.LogRoles(sys.MsgRolesGranted, roleID, userID, guildID)
		roleGrants.WithLabelValues("granted").Inc()
		report.Granted = append(report.Granted, roleID)
	}
	return report, nil
}

// SyncGuild runs SyncMember for every member with stored progress in the
// guild. It returns ErrNoRankRoles when the guild has no mappings. Members
// whose roles cannot be read (usually because they left) are skipped.
func (e *Engine) SyncGuild(ctx context.Context, g RoleGranter, guildID snowflake.ID) (GuildSyncReport, error) {
	mappings, err := e.store.GetRankRoles(ctx, guildID)
	if err != nil {
		return GuildSyncReport{}, err
	}
	if len(mappings) == 0 {
		return GuildSyncReport{}, ErrNoRankRoles
	}

	// A negative limit lists every row.
	members, err := e.store.GetLeaderboard(ctx, guildID, -1)
	if err != nil {
		return GuildSyncReport{}, err
	}

	var total GuildSyncReport
	for _, m := range members {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		report, err := e.SyncMember(ctx, g, guildID, m.UserID, m.Level)
		if err != nil {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			sys.LogRoles(sys.MsgRolesMemberFail, m.UserID, guildID, err)
			total.Skipped++
			continue
		}
		total.Members++
		total.Granted += len(report.Granted)
		total.Failed += len(report.Failed)
	}
	sys.LogRoles(sys.MsgRolesSyncDone, total.Members, guildID, total.Granted, total.Failed)
	return total, nil
}

// --- Discord ---

type disgoGranter struct {
	client *bot.Client
}

// NewDisgoGranter grants roles through the bot's REST client, reading member
// roles from the cache first.
func NewDisgoGranter(client *bot.Client) RoleGranter {
	return &disgoGranter{client: client}
}

func (d *disgoGranter) MemberRoles(ctx context.Context, guildID, userID snowflake.ID) ([]snowflake.ID, error) {
	if member, ok := d.client.Caches.Member(guildID, userID); ok {
		return member.RoleIDs, nil
	}
	member, err := d.client.Rest.GetMember(guildID, userID, rest.WithCtx(ctx))
	if err != nil {
		return nil, err
	}
	return member.RoleIDs, nil
}

func (d *disgoGranter) GrantRole(ctx context.Context, guildID, userID, roleID snowflake.ID) error {
	return d.client.Rest.AddMemberRole(guildID, userID, roleID, rest.WithCtx(ctx), rest.WithReason("Rank role reward"))
}

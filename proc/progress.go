package proc

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/knott/sys"
)

type ProgressResult struct {
	Progress  sys.UserProgress
	Gain      int
	LeveledUp bool
}

// ComputeGain scales the base XP by the guild multiplier, truncating.
func ComputeGain(base int, multiplier float64) int {
	gain := int(float64(base) * multiplier)
	if gain < 0 {
		return 0
	}
	return gain
}

// Threshold is the XP needed to leave level.
func Threshold(level, base int) int {
	return level * base
}

// ApplyGain adds gain to p and performs at most one level-up: a gain large
// enough to cross several thresholds still only advances one level.
func ApplyGain(p sys.UserProgress, gain, base int) (sys.UserProgress, bool) {
	p.XP += gain
	threshold := Threshold(p.Level, base)
	if p.XP >= threshold {
		p.XP -= threshold
		p.Level++
		return p, true
	}
	return p, false
}

// ApplyMessageXP records one qualifying message worth gain XP. A user's
// first message creates the row at level 1 without a level check.
func (e *Engine) ApplyMessageXP(ctx context.Context, userID, guildID snowflake.ID, gain int, now time.Time) (ProgressResult, error) {
	leveledUp := false
	p, err := e.store.ApplyProgress(ctx, userID, guildID, func(cur sys.UserProgress, found bool) sys.UserProgress {
		if !found {
			return sys.UserProgress{XP: gain, Level: 1, TotalMessages: 1, LastMessage: now}
		}
		next, up := ApplyGain(cur, gain, e.opts.LevelUpBase)
		next.TotalMessages++
		next.LastMessage = now
		leveledUp = up
		return next
	})
	if err != nil {
		storeErrors.WithLabelValues("apply_progress").Inc()
		return ProgressResult{}, err
	}

	xpAwarded.Add(float64(gain))
	if leveledUp {
		levelUps.Inc()
	}
	return ProgressResult{Progress: p, Gain: gain, LeveledUp: leveledUp}, nil
}

package proc

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/go-co-op/gocron/v2"
	"github.com/leeineian/knott/sys"
)

func init() {
	sys.OnClientReady(func(ctx context.Context, _ *bot.Client) {
		sys.RegisterDaemon(sys.LogLeveling, func(ctx context.Context) (bool, func(), func()) {
			if Leveling == nil || sys.GlobalConfig == nil {
				return false, nil, nil
			}
			return StartMaintenance(Leveling, sys.GlobalConfig.CooldownSweepInterval)
		})
	})
}

// StartMaintenance schedules the periodic cooldown sweep. The scheduler runs
// on its own goroutines; the shutdown hook stops it.
func StartMaintenance(e *Engine, every time.Duration) (bool, func(), func()) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		sys.LogError("Failed to create scheduler: %v", err)
		return false, nil, nil
	}

	_, err = sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			removed := e.SweepCooldowns(time.Now())
			sys.LogDebug(sys.MsgLevelingSweep, removed, e.cooldowns.Len())
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		sys.LogError("Failed to schedule cooldown sweep: %v", err)
		_ = sched.Shutdown()
		return false, nil, nil
	}

	run := func() { sched.Start() }
	shutdown := func() { _ = sched.Shutdown() }
	return true, run, shutdown
}

// SweepCooldowns drops expired cooldown entries.
func (e *Engine) SweepCooldowns(now time.Time) int {
	removed := e.cooldowns.Sweep(now)
	trackedCooldowns.Set(float64(e.cooldowns.Len()))
	return removed
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"time"
)

// Schedule sets how often each job runs. A zero interval disables it.
type Schedule struct {
	Light    time.Duration
	Full     time.Duration
	Maintain time.Duration

	// RunAtStart runs a light pass before the first tick.
	RunAtStart bool
}

// RunScheduled runs light, full and maintenance passes on their tickers
// until ctx is cancelled. Jobs run one at a time; a failure is logged and
// the loop continues with the next tick.
func (p *Pipeline) RunScheduled(ctx context.Context, sched Schedule, maint MaintenanceOptions) {
	light, stopLight := ticker(sched.Light)
	defer stopLight()
	full, stopFull := ticker(sched.Full)
	defer stopFull()
	sweep, stopSweep := ticker(sched.Maintain)
	defer stopSweep()

	p.Logger.Info().
		Dur("light", sched.Light).
		Dur("full", sched.Full).
		Dur("maintain", sched.Maintain).
		Msg("scheduler started")

	if sched.RunAtStart {
		p.scheduledRun(ctx, ModeLight)
	}

	for {
		select {
		case <-ctx.Done():
			p.Logger.Info().Msg("scheduler stopped")
			return
		case <-light:
			p.scheduledRun(ctx, ModeLight)
		case <-full:
			p.scheduledRun(ctx, ModeFull)
		case <-sweep:
			if p.Maintainer == nil {
				continue
			}
			if _, err := p.Maintain(ctx, maint); err != nil && !errors.Is(err, context.Canceled) {
				p.Logger.Error().Err(err).Msg("scheduled maintenance failed")
			}
		}
	}
}

func (p *Pipeline) scheduledRun(ctx context.Context, mode Mode) {
	_, err := p.Run(ctx, mode)
	switch {
	case err == nil:
	case errors.Is(err, ErrRunInProgress):
		p.Logger.Debug().Str("mode", string(mode)).Msg("skipping tick, run in progress")
	case ctx.Err() != nil:
	default:
		p.Logger.Error().Err(err).Str("mode", string(mode)).Msg("scheduled run failed")
	}
}

// ticker returns a nil channel for a non-positive interval, which never
// fires in a select.
func ticker(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(d)
	return t.C, t.Stop
}

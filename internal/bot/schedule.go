package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ParseSchedule parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week), e.g. "0 9 * * 1-5".
// Expressions that can never fire, such as "0 9 30 2 *", are rejected.
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(strings.TrimSpace(spec))
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	if sched.Next(time.Now()).IsZero() {
		return nil, fmt.Errorf("invalid schedule %q: never fires", spec)
	}
	return sched, nil
}

// RunPendingSweep analyzes pending client requests of every project on the
// given schedule and posts a summary to each project's chat. It returns when
// ctx is cancelled or the schedule has no next run.
func (b *Bot) RunPendingSweep(ctx context.Context, sched cron.Schedule) {
	for {
		now := time.Now()
		next := sched.Next(now)
		if next.IsZero() {
			b.logger.Warn("Pending sweep schedule has no next run, stopping")
			return
		}
		b.logger.Debug("Next pending sweep", zap.Time("at", next))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		b.sweepPending(ctx)
	}
}

func (b *Bot) sweepPending(ctx context.Context) {
	sweeps, err := b.service.AnalyzePending(ctx)
	if err != nil {
		b.logger.Error("Pending sweep failed", zap.Error(err))
	}

	for _, sweep := range sweeps {
		b.logger.Info("Pending sweep analyzed project",
			zap.String("project_id", sweep.Project.ID.String()),
			zap.Int("analyzed", len(sweep.Results)))
		if sweep.Project.ChatID == 0 {
			continue
		}
		b.sendMarkdown(sweep.Project.ChatID, fmt.Sprintf("*Scheduled check for %s*\n%s",
			escapeMarkdown(sweep.Project.Name), formatBulk(sweep.Results)))
	}
}

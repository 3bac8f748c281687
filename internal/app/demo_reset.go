package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/taskdeck/internal/pkg/clock"
)

// minResetDelay keeps a reset loop that wakes up right at midnight from
// wiping twice.
const minResetDelay = time.Minute

// dailyReset wipes the demo data every UTC midnight.
type dailyReset struct {
	clock clock.Clocker
	wipe  func(ctx context.Context) error
	wait  func(ctx context.Context, d time.Duration) bool
}

// untilNextReset is the time left to the next UTC midnight, never less than
// minResetDelay.
func untilNextReset(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return max(next.Sub(now), minResetDelay)
}

func (r *dailyReset) run(ctx context.Context) error {
	for {
		d := untilNextReset(r.clock.Now())
		slog.InfoContext(ctx, "demo data reset scheduled", "in", d.String())

		if !r.wait(ctx, d) {
			return nil
		}

		if err := r.wipe(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to reset demo data", "error", err)
			continue
		}

		slog.InfoContext(ctx, "demo data reset")
	}
}

// sleepCtx waits for d and reports false when ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// wipeDemoData empties every user and project table. Projects cascade to
// their tasks and planning items. Role assignments of the removed users go
// too, the admin is recreated by the next demo sign-in.
func wipeDemoData(pool *pgxpool.Pool, enforcer *casbin.SyncedEnforcer) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if _, err := pool.Exec(ctx, `TRUNCATE users, projects, notification_deliveries CASCADE`); err != nil {
			return err
		}

		rules, err := enforcer.GetGroupingPolicy()
		if err != nil {
			return err
		}
		if len(rules) == 0 {
			return nil
		}

		_, err = enforcer.RemoveGroupingPolicies(rules)
		return err
	}
}

func (a *App) initDemoReset() {
	if !a.config.GetBool("modules.identity.demo.enabled") || !a.config.GetBool("modules.identity.demo.daily_reset") {
		return
	}

	r := &dailyReset{clock: a.clock, wipe: wipeDemoData(a.dbConn, a.casbin), wait: sleepCtx}
	if !a.goroutine.Go(a.ctx, r.run) {
		slog.Warn("demo data reset not scheduled")
	}
}

// Package sweeper runs periodic presence maintenance: expiring stale
// typing signals and marking users with stale heartbeats offline.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"relay/pkg/config"
	"relay/pkg/logger"
	"relay/pkg/presence"
	"relay/pkg/store"
)

// Start launches the sweep scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg *config.Config) (context.CancelFunc, error) {
	if !cfg.Sweeper.Enabled {
		logger.Info("sweeper_disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Sweeper.Cron
	if cronExpr == "" {
		cronExpr = config.DefaultSweeperCron
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("sweeper_invalid_cron", "cron", cronExpr)
		return nil, fmt.Errorf("invalid sweeper cron expression: %s", cronExpr)
	}

	offlineAfter := cfg.Presence.OfflineAfter.Duration()
	logger.Info("sweeper_enabled", "cron", cronExpr, "offline_after", offlineAfter)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, offlineAfter)
	return cancel, nil
}

// runScheduler sleeps until the next cron tick, then sweeps.
func runScheduler(ctx context.Context, cronExpr string, offlineAfter time.Duration) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("sweeper_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		}

		if err := RunOnce(offlineAfter); err != nil {
			logger.Error("sweeper_run_error", "error", err)
		}
	}
}

// RunOnce performs a single sweep: drop expired typing signals and mark
// users whose last heartbeat is older than offlineAfter as offline.
func RunOnce(offlineAfter time.Duration) error {
	dropped := presence.Sweep()

	users, err := store.ListUsers()
	if err != nil {
		return err
	}
	cutoff := time.Now().UTC().Add(-offlineAfter).UnixNano()
	marked := 0
	for _, u := range users {
		if !u.IsOnline || u.LastSeen >= cutoff {
			continue
		}
		u.IsOnline = false
		if err := store.SaveUser(u); err != nil {
			logger.Warn("sweeper_mark_offline_failed", "user", u.ID, "error", err)
			continue
		}
		marked++
	}
	if dropped > 0 || marked > 0 {
		logger.Info("sweep_complete", "typing_dropped", dropped, "marked_offline", marked)
	}
	return nil
}

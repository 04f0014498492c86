package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/AnshRaj112/bolt-backend/internal/logger"
)

// StartLeaderboardSync rebuilds the Redis rankings every interval, correcting
// drift from failed best-effort updates. The caller shuts the scheduler down.
func StartLeaderboardSync(ctx context.Context, board *Leaderboard, interval time.Duration, log *logger.Logger) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			n, err := board.Resync(ctx)
			if err != nil {
				log.Warn("leaderboard resync failed", "error", err)
				return
			}
			log.Debug("leaderboard resynced", "accounts", n)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	log.Info("leaderboard sync scheduled", "interval", interval.String())
	return sched, nil
}

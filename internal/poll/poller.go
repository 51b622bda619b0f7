package poll

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nelson-zack/job-radar/internal/scheduler"
)

// Start runs RunOnce now and then every scheduler.interval_minutes until ctx
// is done. The interval is read once. It blocks; callers usually run it in a goroutine.
func (r *Runner) Start(ctx context.Context) {
	cfg := r.config()
	every := time.Duration(cfg.Scheduler.IntervalMinutes) * time.Minute
	if every <= 0 {
		every = 6 * time.Hour
	}
	r.logger().Printf("[poll] scheduler every=%s lock=%q", every, cfg.Scheduler.LockFile)
	scheduler.Every(ctx, every, "poll", func(ctx context.Context) error {
		_, err := r.RunOnce(ctx, "sched-"+uuid.NewString())
		return err
	})
}

package scheduler

import (
	"context"
	"time"
)

// Run executes the pipeline immediately and then on every tick, blocking
// until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) {
	p.ProcessFeed(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessFeed(ctx)
		}
	}
}

package cli

import (
	"context"
	"fmt"
)

// Sync re-checks connectivity and replays queued writes.
func (a *App) Sync(ctx context.Context) error {
	if !a.net.Check(ctx) {
		n, err := a.worklog.PendingCount(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Offline, %d pending\n", n)
		return nil
	}

	replayed, err := a.syncer.ProcessQueue(ctx)
	if err != nil {
		return err
	}
	left, err := a.worklog.PendingCount(ctx)
	if err != nil {
		return err
	}
	a.log.Info(ctx, "manual sync", "replayed", replayed, "pending", left)
	fmt.Fprintf(a.out, "Replayed %d, %d pending\n", replayed, left)
	return nil
}

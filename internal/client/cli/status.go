package cli

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// getStatus renders the prompt prefix: principal, mode and pending writes.
func (a *App) getStatus() string {
	parts := make([]string, 0, 3)
	if id, err := a.session.CurrentPrincipalID(); err == nil {
		parts = append(parts, id)
	}
	parts = append(parts, string(a.currentMode()))

	if a.isLoggedIn() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		n, err := a.worklog.PendingCount(ctx)
		cancel()
		if err == nil && n > 0 {
			parts = append(parts, fmt.Sprintf("%d pending", n))
		}
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Status prints the session, connectivity and queue state.
func (a *App) Status(ctx context.Context) error {
	id, err := a.session.CurrentPrincipalID()
	if err != nil {
		fmt.Fprintln(a.out, "Signed in: no")
		fmt.Fprintf(a.out, "Mode:      %s\n", a.currentMode())
		return nil
	}

	pending, err := a.worklog.PendingCount(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Signed in: %s\n", id)
	fmt.Fprintf(a.out, "Mode:      %s\n", a.currentMode())
	fmt.Fprintf(a.out, "Pending:   %d\n", pending)
	if a.seeds != nil {
		if at, ok := a.seeds.LastSeeded(ctx, id); ok {
			fmt.Fprintf(a.out, "Seeded:    %s\n", at.Local().Format(time.DateTime))
		}
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/worklog/internal/client/models"
)

// TimeIn handles "in [date] [HH:MM]".
func (a *App) TimeIn(ctx context.Context, args []string) error {
	date, clock, err := dateClockArgs(args, a.now())
	if err != nil {
		return err
	}
	e, err := a.worklog.TimeIn(ctx, date, clock)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Time in %s at %s\n", e.Date, clock)
	return nil
}

// TimeOut handles "out [date] [HH:MM]".
func (a *App) TimeOut(ctx context.Context, args []string) error {
	date, clock, err := dateClockArgs(args, a.now())
	if err != nil {
		return err
	}
	e, err := a.worklog.TimeOut(ctx, date, clock)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Time out %s at %s, %.2f hours\n", e.Date, clock, deref(e.HoursRendered, 0))
	return nil
}

// Log lists all time entries with the total against the required hours.
func (a *App) Log(ctx context.Context) error {
	entries, err := a.worklog.ListTimeEntries(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No entries")
		return nil
	}

	var total float64
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tIN\tOUT\tHOURS")
	for _, e := range entries {
		h := deref(e.HoursRendered, 0)
		total += h
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\n", e.Date, deref(e.TimeIn, "-"), deref(e.TimeOut, "-"), h)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if s, err := a.worklog.GetSettings(ctx); err == nil {
		fmt.Fprintf(a.out, "Total: %.2f of %.0f hours\n", total, s.RequiredHours)
	} else {
		fmt.Fprintf(a.out, "Total: %.2f hours\n", total)
	}
	return nil
}

// Day handles "day [date]" and prints the entry with its tasks and photos.
func (a *App) Day(ctx context.Context, args []string) error {
	date, _ := dateArg(args, a.now())
	d, err := a.worklog.GetDailyEntry(ctx, date)
	if err != nil {
		return err
	}
	if d == nil {
		fmt.Fprintf(a.out, "No entry for %s\n", date)
		return nil
	}

	e := d.Entry
	fmt.Fprintf(a.out, "%s  in %s  out %s  %.2f hours\n", e.Date,
		deref(e.TimeIn, "-"), deref(e.TimeOut, "-"), deref(e.HoursRendered, 0))

	fmt.Fprintf(a.out, "Tasks (%d):\n", len(d.Tasks))
	for _, t := range d.Tasks {
		desc := strings.ReplaceAll(t.Description, "\n", "\n    ")
		fmt.Fprintf(a.out, "  %s  %s\n", t.ID, desc)
	}

	fmt.Fprintf(a.out, "Photos (%d):\n", len(d.Photos))
	for _, p := range d.Photos {
		fmt.Fprintf(a.out, "  %s  %s\n", p.ID, photoLocation(p))
	}
	return nil
}

func photoLocation(p models.Photo) string {
	if p.PendingUpload() {
		return fmt.Sprintf("%s (waiting for upload)", deref(p.OfflineFilename, "photo"))
	}
	return p.ImageURL
}

package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/common"
)

// Settings prints the principal's settings.
func (a *App) Settings(ctx context.Context) error {
	s, err := a.worklog.GetSettings(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Required hours: %.0f\n", s.RequiredHours)
	fmt.Fprintf(a.out, "Accent color:   %s\n", s.AccentColor)
	fmt.Fprintf(a.out, "Theme:          %s\n", s.Theme)
	return nil
}

// Theme switches the theme. The change is pushed in the background and is
// never queued.
func (a *App) Theme(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: theme <light|dark>", common.ErrInvalidInput)
	}
	if err := a.worklog.SetThemeBestEffort(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Theme set to %s\n", args[0])
	return nil
}

// Hours sets the required hours target.
func (a *App) Hours(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: hours <n>", common.ErrInvalidInput)
	}
	n, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", common.ErrInvalidInput, args[0])
	}
	s, err := a.worklog.UpdateSettings(ctx, models.SettingsPatch{RequiredHours: &n})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Required hours set to %.0f\n", s.RequiredHours)
	return nil
}

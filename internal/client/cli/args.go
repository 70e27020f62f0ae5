package cli

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/common"
)

// dateClockArgs reads optional "[date] [HH:MM]" arguments in any order.
// Missing values default to the local date and time of now.
func dateClockArgs(args []string, now time.Time) (date, clock string, err error) {
	date = now.Format(models.DateLayout)
	clock = now.Format(models.ClockLayout)

	if len(args) > 2 {
		return "", "", fmt.Errorf("%w: expected [date] [HH:MM]", common.ErrInvalidInput)
	}
	for _, arg := range args {
		switch {
		case models.ValidateDate(arg) == nil:
			date = arg
		case models.ValidateClock(arg) == nil:
			clock = arg
		default:
			return "", "", fmt.Errorf("%w: %q is neither a date nor HH:MM", common.ErrInvalidInput, arg)
		}
	}
	return date, clock, nil
}

// dateArg returns the date given as the first argument or today.
func dateArg(args []string, now time.Time) (string, []string) {
	if len(args) > 0 && models.ValidateDate(args[0]) == nil {
		return args[0], args[1:]
	}
	return now.Format(models.DateLayout), args
}

func deref[T any](p *T, empty T) T {
	if p == nil {
		return empty
	}
	return *p
}

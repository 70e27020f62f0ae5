package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dmitrijs2005/worklog/internal/common"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// ValidateDate checks that s is a calendar day in YYYY-MM-DD form.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return fmt.Errorf("%w: date %q must be YYYY-MM-DD", common.ErrInvalidInput, s)
	}
	return nil
}

// ValidateClock checks that s is a wall clock time in HH:MM form.
func ValidateClock(s string) error {
	if _, err := time.Parse(ClockLayout, s); err != nil {
		return fmt.Errorf("%w: time %q must be HH:MM", common.ErrInvalidInput, s)
	}
	return nil
}

// HoursBetween returns the hours from in to out rounded to two decimals.
// An out earlier than in is treated as the next day.
func HoursBetween(in, out string) (float64, error) {
	tin, err := time.Parse(ClockLayout, in)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", common.ErrInvalidInput, in)
	}
	tout, err := time.Parse(ClockLayout, out)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", common.ErrInvalidInput, out)
	}

	d := tout.Sub(tin)
	if d < 0 {
		d += 24 * time.Hour
	}
	return math.Round(d.Hours()*100) / 100, nil
}

// ValidateTheme accepts the two themes the app renders.
func ValidateTheme(s string) error {
	switch s {
	case "light", "dark":
		return nil
	}
	return fmt.Errorf("%w: theme %q must be light or dark", common.ErrInvalidInput, s)
}

// ValidateDescription rejects blank task descriptions.
func ValidateDescription(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: description is empty", common.ErrInvalidInput)
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/common"
)

const taskUsage = "usage: task add [date] [description] | task edit <id> [description] | task rm <id>"

// Task handles the task subcommands. A missing description is read from
// the following lines.
func (a *App) Task(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: %s", common.ErrInvalidInput, taskUsage)
	}

	switch args[0] {
	case "add":
		date, rest := dateArg(args[1:], a.now())
		entry, err := a.worklog.GetTimeEntry(ctx, date)
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("%w: no entry for %s, use 'in' first", common.ErrInvalidInput, date)
		}
		desc, err := a.description(rest)
		if err != nil {
			return err
		}
		t, err := a.worklog.CreateTask(ctx, entry.ID, desc)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Task %s added\n", t.ID)

	case "edit":
		if len(args) < 2 {
			return fmt.Errorf("%w: %s", common.ErrInvalidInput, taskUsage)
		}
		desc, err := a.description(args[2:])
		if err != nil {
			return err
		}
		t, err := a.worklog.UpdateTask(ctx, args[1], models.TaskPatch{Description: &desc})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Task %s updated\n", t.ID)

	case "rm":
		if len(args) != 2 {
			return fmt.Errorf("%w: %s", common.ErrInvalidInput, taskUsage)
		}
		if err := a.worklog.DeleteTask(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Task %s deleted\n", args[1])

	default:
		return fmt.Errorf("%w: %s", common.ErrInvalidInput, taskUsage)
	}
	return nil
}

func (a *App) description(words []string) (string, error) {
	if len(words) > 0 {
		return strings.Join(words, " "), nil
	}
	return GetMultiline(a.reader, "Enter description", a.out)
}

package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/worklog/internal/common"
	"github.com/dmitrijs2005/worklog/internal/filex"
)

// MaxPhotoSize caps files accepted by "photo add".
const MaxPhotoSize = 10 << 20

const photoUsage = "usage: photo add <file> [date] | photo rm <id>"

// readFile is a test seam for filex.ReadLimited.
var readFile = filex.ReadLimited

// Photo handles the photo subcommands.
func (a *App) Photo(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: %s", common.ErrInvalidInput, photoUsage)
	}

	switch args[0] {
	case "add":
		path := args[1]
		date, _ := dateArg(args[2:], a.now())
		entry, err := a.worklog.GetTimeEntry(ctx, date)
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("%w: no entry for %s, use 'in' first", common.ErrInvalidInput, date)
		}
		data, err := readFile(path, MaxPhotoSize)
		if err != nil {
			return err
		}
		p, err := a.worklog.UploadPhoto(ctx, entry.ID, filepath.Base(path), "", data)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Photo %s added: %s\n", p.ID, photoLocation(*p))

	case "rm":
		if err := a.worklog.DeletePhoto(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Photo %s deleted\n", args[1])

	default:
		return fmt.Errorf("%w: %s", common.ErrInvalidInput, photoUsage)
	}
	return nil
}

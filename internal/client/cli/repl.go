package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/worklog/internal/client/services"
	"github.com/dmitrijs2005/worklog/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// printFn writes the prompt without a trailing newline.
var printFn = fmt.Print

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	TimeIn(ctx context.Context, args []string) error
	TimeOut(ctx context.Context, args []string) error
	Log(ctx context.Context) error
	Day(ctx context.Context, args []string) error
	Task(ctx context.Context, args []string) error
	Photo(ctx context.Context, args []string) error
	Settings(ctx context.Context) error
	Theme(ctx context.Context, args []string) error
	Hours(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
}

const (
	helpSignedOut = "Available commands: login [token], status, help, exit"
	helpSignedIn  = "Available commands: in [date] [HH:MM], out [date] [HH:MM], log, day [date],\n" +
		"  task add|edit|rm, photo add|rm, settings, theme <light|dark>, hours <n>,\n" +
		"  sync, status, logout, help, exit"
)

// runREPL starts a simple read–eval–print loop for the worklog client.
//
// It reads a line from reader, parses the first token as the command and
// dispatches to methods on a with the remaining tokens. The loop exits on
// EOF, on context cancellation or when the user types "exit" or "quit".
//
// The prompt shows the status returned by statusFn: principal, mode and
// pending write count. Command errors are reported and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printFn(fmt.Sprintf("worklog %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpSignedIn)
			} else {
				printlnFn(helpSignedOut)
			}

		case "login":
			report(a.Login(ctx, args))

		case "logout":
			report(a.Logout(ctx))

		case "status":
			report(a.Status(ctx))

		case "in":
			report(a.TimeIn(ctx, args))

		case "out":
			report(a.TimeOut(ctx, args))

		case "log", "l":
			report(a.Log(ctx))

		case "day":
			report(a.Day(ctx, args))

		case "task":
			report(a.Task(ctx, args))

		case "photo":
			report(a.Photo(ctx, args))

		case "settings":
			report(a.Settings(ctx))

		case "theme":
			report(a.Theme(ctx, args))

		case "hours":
			report(a.Hours(ctx, args))

		case "sync":
			report(a.Sync(ctx))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

// report prints a command error in user terms.
func report(err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, common.ErrNotAuthenticated):
		printlnFn("Not signed in, use 'login' first")
	case errors.Is(err, common.ErrInvalidToken):
		printlnFn("Login failed:", err)
	case errors.Is(err, services.ErrDrainInProgress):
		printlnFn("Sync already running")
	default:
		printlnFn("Error:", err)
	}
}

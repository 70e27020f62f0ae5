package cli

import (
	"context"
	"fmt"
	"strings"
)

// getToken is an indirection used to facilitate testing.
var getToken = GetToken

// Login signs in with the access token given as argument or, without one,
// typed at a hidden prompt.
func (a *App) Login(ctx context.Context, args []string) error {
	var token string
	if len(args) > 0 {
		token = args[0]
	} else {
		b, err := getToken(a.out)
		if err != nil {
			return err
		}
		token = strings.TrimSpace(string(b))
	}

	id, err := a.session.SignIn(ctx, token)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", id)
	return nil
}

// Logout forgets the stored token. Queued writes stay in the local store
// and replay after the same principal signs in again.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

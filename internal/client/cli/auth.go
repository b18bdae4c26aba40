package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/agrodetect/internal/client/client"
)

// Register prompts for name, email and password, creates the account and
// keeps the returned token, so the user is logged in afterwards.
func (a *App) Register(ctx context.Context) error {
	fullName, err := promptLine(a.reader, a.out, "Full name")
	if err != nil {
		return err
	}
	email, err := promptLine(a.reader, a.out, "Email")
	if err != nil {
		return err
	}
	password, err := promptPassword(a.reader, a.out)
	if err != nil {
		return err
	}

	res, err := a.api.Register(ctx, fullName, email, password)
	if err != nil {
		return err
	}

	a.remember(res)
	a.printf("Registered as %s\n", res.User.Email)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := promptLine(a.reader, a.out, "Email")
	if err != nil {
		return err
	}
	password, err := promptPassword(a.reader, a.out)
	if err != nil {
		return err
	}

	res, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}

	a.remember(res)
	a.printf("Logged in as %s\n", res.User.Email)
	return nil
}

// Delete removes the current account after confirmation.
func (a *App) Delete(ctx context.Context) error {
	if !a.isLoggedIn() {
		a.printf("Not logged in\n")
		return nil
	}

	answer, err := promptLine(a.reader, a.out, "Delete account "+a.user.Email+"? Type 'yes' to confirm")
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "yes") {
		a.printf("Cancelled\n")
		return nil
	}

	if err := a.api.DeleteAccount(ctx, a.token); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.forget()
			a.printf("Session expired, please log in again\n")
			return nil
		}
		return err
	}

	a.forget()
	a.printf("Account deleted\n")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.forget()
	a.printf("Logged out\n")
	return nil
}

func (a *App) remember(res *client.AuthResult) {
	a.token = res.AccessToken
	u := res.User
	a.user = &u
}

func (a *App) forget() {
	a.token = ""
	a.user = nil
}

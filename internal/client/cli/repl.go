package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. App satisfies
// it; tests provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Predict(ctx context.Context, path string) error
	Delete(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads commands from r until EOF or "exit"/"quit".
//
//	help             show available commands
//	register         create an account
//	login            authenticate
//	predict <path>   diagnose a leaf photo
//	delete           delete the current account
//	logout           forget the access token
//	exit | quit      leave the program
//
// Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "agro %s> ", statusFn())

		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, "Available commands: predict <path>, delete, logout, help, exit")
			} else {
				fmt.Fprintln(w, "Available commands: register, login, predict <path>, help, exit")
			}

		case "register":
			cmdErr = a.Register(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "predict":
			if len(args) != 1 {
				fmt.Fprintln(w, "Usage: predict <path>")
				continue
			}
			cmdErr = a.Predict(ctx, args[0])

		case "delete":
			cmdErr = a.Delete(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(w, "Error:", cmdErr)
		}
	}
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn(ctx context.Context) bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	VerifyOTP(ctx context.Context, otp string) error
	ResendOTP(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Status(ctx context.Context) error
	Data(ctx context.Context, args []string) error
	Optimize(ctx context.Context, args []string) error
	Info(ctx context.Context, args []string) error
	Simulate(ctx context.Context, args []string) error
}

// runREPL starts a simple read–eval–print loop for the qfin CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Always:
//	  - help                 - show available commands
//	  - register             - create an account
//	  - login                - authenticate
//	  - verify <otp>         - confirm a requested OTP
//	  - resend               - request a new OTP
//	  - logout               - log out
//	  - exit | quit          - leave the program
//
//	Protected (checked by the route guard):
//	  - whoami               - show the user and validate the session
//	  - status               - show the view and validate the session
//	  - data [refresh]       - show market data
//	  - optimize <args...>   - run a portfolio optimisation
//	  - info <TICKER...>     - show company details
//	  - simulate <args...>   - run a Monte Carlo simulation
//
// Any errors returned by command handlers are ignored here; handlers print
// their own messages.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("qfin %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn(ctx) {
				printlnFn("Available commands: whoami, status, data [refresh], optimize, info, simulate, logout, exit")
			} else {
				printlnFn("Available commands: register, login, verify <otp>, resend, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "verify":
			if len(args) == 0 {
				printlnFn("Usage: verify <otp>")
				continue
			}
			_ = a.VerifyOTP(ctx, args[0])

		case "resend":
			_ = a.ResendOTP(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "status":
			_ = a.Status(ctx)

		case "data":
			_ = a.Data(ctx, args)

		case "optimize":
			_ = a.Optimize(ctx, args)

		case "info":
			_ = a.Info(ctx, args)

		case "simulate":
			_ = a.Simulate(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

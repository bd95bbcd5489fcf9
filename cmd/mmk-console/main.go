package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/target/mmk-admin-console/config"
	"github.com/target/mmk-admin-console/internal/adapters/flash"
	"github.com/target/mmk-admin-console/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
	In     io.Reader
}

// errUsage marks failures caused by bad arguments; they exit with status 2.
var errUsage = errors.New("usage error")

func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stderr); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	logger = bootstrap.NewLogger(os.Stderr, &cfg)

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		Out:    os.Stdout,
		In:     os.Stdin,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		if errors.Is(runErr, errUsage) || errors.Is(runErr, flag.ErrHelp) {
			if !errors.Is(runErr, flag.ErrHelp) {
				_ = writef(os.Stderr, "%s: %v\n", cmdName, runErr)
			}
			os.Exit(2) //nolint:forbidigo // CLI must distinguish bad arguments from failures
		}
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"serve": {
			name:        "serve",
			description: "Run the console HTTP server with the background health monitor",
			run:         runServe,
		},
		"login": {
			name:        "login",
			description: "Sign in and persist the session",
			run:         runLogin,
		},
		"logout": {
			name:        "logout",
			description: "Sign out and clear the persisted session",
			run:         runLogout,
		},
		"whoami": {
			name:        "whoami",
			description: "Show the signed-in user, role and capabilities",
			run:         runWhoami,
		},
		"can": {
			name:        "can",
			description: "Check a permission: can <resource> <action> [resource-id]",
			run:         runCan,
		},
		"permissions": {
			name:        "permissions",
			description: "List the permission keys held by the signed-in user",
			run:         runPermissions,
		},
		"roles": {
			name:        "roles",
			description: "List roles known to the backend",
			run:         runRoles,
		},
		"navigate": {
			name:        "navigate",
			description: "Run the route guards for a console path and print the decision",
			run:         runNavigate,
		},
		"health": {
			name:        "health",
			description: "Probe the backend health endpoint",
			run:         runHealth,
		},
		"prefs": {
			name:        "prefs",
			description: "Show or change translation preferences: prefs [show|set-language <lang>|toggle]",
			run:         runPrefs,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: mmk-console <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-14s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

// openApp wires the console and restores any persisted session.
func openApp(cmdCtx *commandContext) (*bootstrap.App, error) {
	app, err := bootstrap.NewApp(bootstrap.AppOptions{Config: cmdCtx.Config, Logger: cmdCtx.Logger})
	if err != nil {
		return nil, err
	}
	app.Initialize(cmdCtx.Ctx)
	return app, nil
}

func closeApp(cmdCtx *commandContext, app *bootstrap.App) {
	if err := app.Close(); err != nil {
		cmdCtx.Logger.Warn("close console failed", "error", err)
	}
}

// printFlash reports the redirect and notices collected while a command ran.
func printFlash(w io.Writer, scope *flash.Scope) error {
	for _, n := range scope.Notices() {
		if err := writef(w, "[%s] %s: %s\n", n.Level, n.Title, n.Message); err != nil {
			return err
		}
	}
	if target := scope.Redirect(); target != "" {
		return writef(w, "-> %s\n", target)
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}

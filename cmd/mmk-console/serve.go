package main

import (
	"errors"
	"flag"
	"io"
	"time"

	"github.com/target/mmk-admin-console/internal/bootstrap"
	"github.com/target/mmk-admin-console/internal/service"
)

func runServe(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("addr", cmdCtx.Config.HTTP.Addr, "Address to bind the console to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cmdCtx.Config.HTTP.Addr = *addr

	app, err := bootstrap.NewApp(bootstrap.AppOptions{Config: cmdCtx.Config, Logger: cmdCtx.Logger})
	if err != nil {
		return err
	}
	defer closeApp(cmdCtx, app)

	return bootstrap.Serve(cmdCtx.Ctx, app)
}

var errUnhealthy = errors.New("backend unreachable")

func runHealth(cmdCtx *commandContext, _ []string) error {
	app, err := bootstrap.NewApp(bootstrap.AppOptions{Config: cmdCtx.Config, Logger: cmdCtx.Logger})
	if err != nil {
		return err
	}
	defer closeApp(cmdCtx, app)

	status := app.Health.Check(cmdCtx.Ctx, true)
	if err := printHealth(cmdCtx.Out, status); err != nil {
		return err
	}
	if !status.IsHealthy {
		return errUnhealthy
	}
	return nil
}

func printHealth(w io.Writer, status service.HealthStatus) error {
	state := "healthy"
	if !status.IsHealthy {
		state = "unhealthy"
	}
	if err := writef(w, "API: %s\n", state); err != nil {
		return err
	}
	if status.LastChecked != nil {
		if err := writef(w, "Checked: %s\n", status.LastChecked.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	if status.LastError != "" {
		return writef(w, "Error: %s\n", status.LastError)
	}
	return nil
}

func runPrefs(cmdCtx *commandContext, args []string) error {
	action := "show"
	if len(args) > 0 {
		action = args[0]
	}

	app, err := bootstrap.NewApp(bootstrap.AppOptions{Config: cmdCtx.Config, Logger: cmdCtx.Logger})
	if err != nil {
		return err
	}
	defer closeApp(cmdCtx, app)
	app.Preferences.Load(cmdCtx.Ctx)

	switch action {
	case "show":
		if len(args) > 1 {
			return usageErrorf("show takes no arguments")
		}
	case "set-language":
		if len(args) != 2 {
			return usageErrorf("expected set-language <de|en|fr|it>")
		}
		var lang service.Language
		if err := lang.UnmarshalText([]byte(args[1])); err != nil {
			return usageErrorf("%v", err)
		}
		if err := app.Preferences.SetCurrentLanguage(cmdCtx.Ctx, lang); err != nil {
			return err
		}
	case "toggle":
		if _, err := app.Preferences.ToggleLanguage(cmdCtx.Ctx); err != nil {
			return err
		}
	default:
		return usageErrorf("unknown prefs action %q", action)
	}

	p := app.Preferences.Get()
	if err := writef(cmdCtx.Out, "Language: %s (%s)\n", p.CurrentLanguage, p.CurrentLanguage.Name()); err != nil {
		return err
	}
	if err := writef(cmdCtx.Out, "Default: %s\n", p.DefaultLanguage); err != nil {
		return err
	}
	return writef(cmdCtx.Out, "Indicators: %s, originals: %s, autosave: %s\n",
		yesNo(p.ShowTranslationIndicators), yesNo(p.ShowOriginalValues), yesNo(p.AutoSaveTranslations))
}

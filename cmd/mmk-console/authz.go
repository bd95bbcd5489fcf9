package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/target/mmk-admin-console/internal/adapters/flash"
	"github.com/target/mmk-admin-console/internal/guard"
)

var errDenied = errors.New("permission denied")

func runCan(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("can", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	local := fs.Bool("local", false, "Answer resource-level questions from the cache only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) < 2 || len(rest) > 3 {
		return usageErrorf("expected <resource> <action> [resource-id]")
	}
	resource, action := rest[0], rest[1]
	resourceID := ""
	if len(rest) == 3 {
		resourceID = rest[2]
	}

	app, err := openApp(cmdCtx)
	if err != nil {
		return err
	}
	defer closeApp(cmdCtx, app)

	if !app.Session.IsAuthenticated() {
		return errNotSignedIn
	}

	var allowed bool
	switch {
	case resourceID == "":
		allowed = app.Authz.HasPermission(resource, action)
	case *local:
		allowed = app.Authz.CanSync(resource, action, resourceID)
	default:
		allowed = app.Authz.CheckPermission(cmdCtx.Ctx, resource, action, resourceID)
	}

	verdict := "denied"
	if allowed {
		verdict = "allowed"
	}
	key := resource + ":" + action
	if resourceID != "" {
		key += ":" + resourceID
	}
	if err := writef(cmdCtx.Out, "%s %s\n", key, verdict); err != nil {
		return err
	}
	if !allowed {
		return errDenied
	}
	return nil
}

func runPermissions(cmdCtx *commandContext, _ []string) error {
	app, err := openApp(cmdCtx)
	if err != nil {
		return err
	}
	defer closeApp(cmdCtx, app)

	if !app.Session.IsAuthenticated() {
		return errNotSignedIn
	}
	for _, key := range app.Authz.Permissions() {
		if err := writeln(cmdCtx.Out, key); err != nil {
			return err
		}
	}
	return nil
}

func runRoles(cmdCtx *commandContext, _ []string) error {
	app, err := openApp(cmdCtx)
	if err != nil {
		return err
	}
	defer closeApp(cmdCtx, app)

	roles, err := app.Authz.FetchRoles(cmdCtx.Ctx)
	if err != nil {
		return fmt.Errorf("fetch roles: %w", err)
	}

	tw := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "ID\tNAME\tSYSTEM\tPERMISSIONS"); err != nil {
		return fmt.Errorf("write roles header row: %w", err)
	}
	for _, r := range roles {
		if err := writef(tw, "%d\t%s\t%s\t%d\n", r.ID, r.Name, yesNo(r.IsSystem), r.PermissionCount); err != nil {
			return fmt.Errorf("write role row: %w", err)
		}
	}
	return tw.Flush()
}

func runNavigate(cmdCtx *commandContext, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return usageErrorf("expected exactly one path")
	}

	app, err := openApp(cmdCtx)
	if err != nil {
		return err
	}
	defer closeApp(cmdCtx, app)

	ctx, scope := flash.WithScope(cmdCtx.Ctx)
	nav := guard.NewNavigation(args[0])
	d := app.Guards.Run(ctx, nav)
	if d.Allow {
		return writef(cmdCtx.Out, "%s allowed\n", nav.Path)
	}
	if err := writef(cmdCtx.Out, "%s redirected by %s guard\n", nav.Path, d.Guard); err != nil {
		return err
	}
	return printFlash(cmdCtx.Out, scope)
}

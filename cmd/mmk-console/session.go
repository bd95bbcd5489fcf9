package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/target/mmk-admin-console/internal/adapters/flash"
	domainauth "github.com/target/mmk-admin-console/internal/domain/auth"
)

type loginOptions struct {
	Email         string
	Password      string
	PasswordStdin bool
}

func parseLoginFlags(args []string, stderr io.Writer) (loginOptions, error) {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts loginOptions
	fs.StringVar(&opts.Email, "email", "", "Account email (required)")
	fs.StringVar(&opts.Password, "password", "", "Account password")
	fs.BoolVar(&opts.PasswordStdin, "password-stdin", false, "Read the password from the first line of stdin")

	if err := fs.Parse(args); err != nil {
		return loginOptions{}, err
	}
	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return loginOptions{}, usageErrorf("--email is required")
	}
	if opts.Password != "" && opts.PasswordStdin {
		return loginOptions{}, usageErrorf("--password and --password-stdin are mutually exclusive")
	}
	if opts.Password == "" && !opts.PasswordStdin {
		return loginOptions{}, usageErrorf("--password or --password-stdin is required")
	}
	return opts, nil
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogin(cmdCtx *commandContext, args []string) error {
	opts, err := parseLoginFlags(args, io.Discard)
	if err != nil {
		return err
	}
	if opts.PasswordStdin {
		if opts.Password, err = readPassword(cmdCtx.In); err != nil {
			return err
		}
	}

	app, err := openApp(cmdCtx)
	if err != nil {
		return err
	}
	defer closeApp(cmdCtx, app)

	ctx, scope := flash.WithScope(cmdCtx.Ctx)
	res := app.Session.Login(ctx, domainauth.LoginRequest{Email: opts.Email, Password: opts.Password})
	if !res.Success {
		if printErr := printFlash(cmdCtx.Out, scope); printErr != nil {
			return printErr
		}
		return fmt.Errorf("login failed (%s): %s", res.Code, res.Error)
	}

	app.Catalog.Reset()
	if err := writef(cmdCtx.Out, "Signed in as %s (%s)\n", app.Session.UserName(), app.Dashboard.RoleName()); err != nil {
		return err
	}
	return printFlash(cmdCtx.Out, scope)
}

func runLogout(cmdCtx *commandContext, _ []string) error {
	app, err := openApp(cmdCtx)
	if err != nil {
		return err
	}
	defer closeApp(cmdCtx, app)

	if !app.Session.IsAuthenticated() {
		return writeln(cmdCtx.Out, "Not signed in")
	}

	ctx, scope := flash.WithScope(cmdCtx.Ctx)
	app.Session.Logout(ctx)
	if err := writeln(cmdCtx.Out, "Signed out"); err != nil {
		return err
	}
	return printFlash(cmdCtx.Out, scope)
}

var errNotSignedIn = errors.New("not signed in; run mmk-console login")

func runWhoami(cmdCtx *commandContext, _ []string) error {
	app, err := openApp(cmdCtx)
	if err != nil {
		return err
	}
	defer closeApp(cmdCtx, app)

	user, ok := app.Session.User()
	if !ok {
		return errNotSignedIn
	}

	tw := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"User", app.Session.UserName()},
		{"Email", user.Email},
		{"Role", app.Dashboard.RoleName()},
		{"Admin", yesNo(app.Session.IsAdmin())},
		{"Manage", yesNo(app.Session.CanManage())},
		{"Financials", yesNo(app.Session.CanAccessFinancials())},
		{"Technical", yesNo(app.Session.CanAccessTechnical())},
		{"Permissions", fmt.Sprint(len(app.Authz.Permissions()))},
	}
	for _, row := range rows {
		if err := writef(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return fmt.Errorf("write whoami row: %w", err)
		}
	}
	return tw.Flush()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-session/auth"
	"github.com/jrsteele09/go-auth-session/authapi"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/navigation"
	"github.com/pkg/errors"
)

var errLoginRequired = errors.New("login required, run: scopectl login")

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":    {summary: "sign in with email and password", run: loginCommand},
	"register": {summary: "create an account", run: registerCommand},
	"logout":   {summary: "sign out and forget the stored session", run: logoutCommand},
	"status":   {summary: "show the stored session", run: statusCommand},
	"nodes":    {summary: "list managed nodes", run: nodesCommand},
	"refresh":  {summary: "renew the access token now", run: refreshCommand},
	"open":     {summary: "navigate to a page, e.g. open /system/users", run: openCommand},
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func loginCommand(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", config.GetEnv("SCOPE_EMAIL", ""), "account email")
	password := fs.String("password", config.GetEnv("SCOPE_PASSWORD", ""), "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	credentials := authapi.Credentials{Email: *email, Password: *password}
	if err := auth.NewValidator().ValidateCredentials(credentials); err != nil {
		return err
	}
	dest, err := a.client.Login(ctx, credentials)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s logged in as %s\n", colour(Green, "ok"), credentials.Email)
	fmt.Fprintf(a.out, "now at %s\n", dest.FullPath())
	return nil
}

func registerCommand(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", config.GetEnv("SCOPE_EMAIL", ""), "account email")
	password := fs.String("password", config.GetEnv("SCOPE_PASSWORD", ""), "account password")
	confirm := fs.String("confirm", "", "repeat the password (defaults to -password)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *confirm == "" {
		*confirm = *password
	}

	input := authapi.RegisterInput{DisplayName: *name, Email: *email, Password: *password}
	if err := auth.NewValidator().ValidateRegistration(input, *confirm); err != nil {
		return err
	}
	profile, err := a.client.Register(ctx, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s registered %s", colour(Green, "ok"), input.Email)
	if id, ok := profile["user_id"]; ok {
		fmt.Fprintf(a.out, " (user %v)", id)
	}
	fmt.Fprintln(a.out, ", run: scopectl login")
	return nil
}

func logoutCommand(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("logout").Parse(args); err != nil {
		return err
	}
	a.client.Logout(ctx)
	fmt.Fprintln(a.out, colour(Gray, "logged out"))
	return nil
}

func statusCommand(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("status").Parse(args); err != nil {
		return err
	}

	state := a.client.State()
	snap := state.Snapshot()
	fmt.Fprintf(a.out, "api:     %s\n", a.cfg.GetAPIBaseURL())
	if !snap.IsAuthenticated() {
		fmt.Fprintln(a.out, "session: "+colour(Gray, "not logged in"))
		return nil
	}

	fmt.Fprintln(a.out, "session: "+colour(Green, "logged in"))
	if who := displayName(snap.User); who != "" {
		fmt.Fprintf(a.out, "user:    %s\n", who)
	}
	if snap.TokenExpiryTime == 0 {
		fmt.Fprintln(a.out, "expiry:  "+colour(Yellow, "unknown"))
		return nil
	}
	expiry := snap.Expiry().Local().Format(time.RFC3339)
	if state.IsTokenExpiringSoon() {
		expiry = colour(Yellow, expiry+" (refresh due)")
	}
	fmt.Fprintf(a.out, "expiry:  %s\n", expiry)
	return nil
}

func nodesCommand(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("nodes").Parse(args); err != nil {
		return err
	}

	// the node list page is protected, the guard refreshes or redirects first
	dest, err := a.client.Open(ctx, "/nodes")
	if err != nil {
		return err
	}
	if dest.Name != navigation.RouteNodeList {
		return errLoginRequired
	}

	nodes, err := a.client.ListNodes(ctx)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		fmt.Fprintln(a.out, colour(Gray, "no nodes"))
		return nil
	}
	for _, node := range nodes {
		data, err := json.Marshal(node)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, string(data))
	}
	return nil
}

func refreshCommand(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("refresh").Parse(args); err != nil {
		return err
	}
	if err := a.client.Sessions().RefreshAccessToken(ctx); err != nil {
		return err
	}
	expiry := a.client.State().Snapshot().Expiry()
	fmt.Fprintf(a.out, "%s access token renewed, valid until %s\n", colour(Green, "ok"), expiry.Local().Format(time.RFC3339))
	return nil
}

func openCommand(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("open")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: scopectl open <path>")
	}

	dest, err := a.client.Open(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s\n", colour(Cyan, dest.Name), dest.FullPath())
	if redirect := dest.Query.Get(navigation.QueryRedirect); redirect != "" {
		fmt.Fprintf(a.out, "%s\n", colour(Yellow, "login required to open "+redirect))
	}
	return nil
}

func displayName(user map[string]any) string {
	for _, key := range []string{"display_name", "email", "sub"} {
		if v, ok := user[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/civiclens/console-client/internal/api"
	"github.com/civiclens/console-client/internal/config"
	"github.com/civiclens/console-client/internal/credentials"
	"github.com/civiclens/console-client/internal/guard"
	"github.com/civiclens/console-client/internal/routes"
	"github.com/civiclens/console-client/internal/session"
	"github.com/civiclens/console-client/internal/telemetry"
	"github.com/civiclens/console-client/internal/translate"
)

const usage = `usage: console [-config path] [-lang code] <command>

commands:
  login            sign in (-email, -password, -remember)
  logout           end the current session
  whoami           show the signed-in principal
  open <route>     evaluate access to a console route
  change-password  rotate the password (-old, -new)
  reset-request    request a password reset (-email)
  reset-confirm    confirm a password reset (-token, -new)
`

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	lang := flag.String("lang", "", "translate output to this language")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, *lang, args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, lang string, args []string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	var tel *telemetry.Telemetry
	if cfg.Otel.Enabled {
		t, telErr := telemetry.New(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			tel = t
			defer func() {
				if shutErr := tel.Shutdown(context.Background()); shutErr != nil {
					logger.Error("telemetry shutdown error", "error", shutErr)
				}
			}()
		}
	}

	creds := credentials.NewStore(cfg.State.Dir)

	clientOpts := api.Options{
		BaseURL:     cfg.API.BaseURL,
		Credentials: creds,
		Timeout:     cfg.API.Timeout,
		MaxRetries:  cfg.API.MaxRetries,
		Logger:      logger,
	}
	if tel != nil {
		clientOpts.Tracer = tel.Tracer
	}
	client := api.NewClient(clientOpts)

	store := session.NewStore()
	manager := session.NewManager(client, creds, store, logger)

	var translator translate.Translator = translate.Noop{}
	if lang != "" {
		translator = translate.NewHTTPTranslator(cfg.API.BaseURL, nil)
	}
	out := newPrinter(translator, lang)

	app := &app{
		manager: manager,
		store:   store,
		out:     out,
	}

	command, rest := args[0], args[1:]
	switch command {
	case "login":
		return app.login(ctx, rest)
	case "logout":
		return app.logout(ctx)
	case "whoami":
		return app.whoami(ctx)
	case "open":
		return app.open(ctx, rest)
	case "change-password":
		return app.changePassword(ctx, client, rest)
	case "reset-request":
		return app.resetRequest(ctx, client, rest)
	case "reset-confirm":
		return app.resetConfirm(ctx, client, rest)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

type app struct {
	manager *session.Manager
	store   *session.Store
	out     *printer
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	remember := fs.Bool("remember", false, "keep the session across restarts")
	//nolint:errcheck // ExitOnError
	_ = fs.Parse(args)

	// An already-authenticated visitor on the login screen goes
	// straight to their landing route.
	if err := a.manager.Bootstrap(ctx); err != nil {
		slog.Warn("bootstrap failed", "error", err)
	}
	if state := a.store.Snapshot(); state.Authenticated {
		a.out.printf(ctx, "already signed in as %s", state.User.Email)
		a.out.printf(ctx, "landing: %s", routes.Landing(state.User.Role, ""))
		return nil
	}

	principal, err := a.manager.Login(ctx, *email, *password, *remember)
	if err != nil {
		// A rejected credential is an inline message, not a dead end.
		a.out.printf(ctx, "sign-in failed: %s", api.UserMessage(err))
		return err
	}

	a.out.printf(ctx, "signed in as %s (%s)", principal.Email, principal.Role)
	a.out.printf(ctx, "landing: %s", routes.Landing(principal.Role, ""))
	return nil
}

func (a *app) logout(ctx context.Context) error {
	target := a.manager.SignOut(ctx)
	a.out.printf(ctx, "signed out")
	a.out.printf(ctx, "landing: %s", target)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if err := a.manager.Bootstrap(ctx); err != nil {
		slog.Warn("bootstrap failed", "error", err)
	}

	state := a.store.Snapshot()
	if !state.Authenticated {
		a.out.printf(ctx, "not signed in")
		return nil
	}

	user := state.User
	a.out.printf(ctx, "%s <%s>", user.Name, user.Email)
	a.out.printf(ctx, "role: %s", user.Role)
	if user.TenantID != nil {
		a.out.printf(ctx, "tenant: %s", *user.TenantID)
	}
	for _, permission := range user.Permissions {
		a.out.printf(ctx, "permission: %s", permission)
	}
	return nil
}

func (a *app) open(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("open: route argument required")
	}
	path := args[0]

	if err := a.manager.Bootstrap(ctx); err != nil {
		slog.Warn("bootstrap failed", "error", err)
	}

	decision := guard.Evaluate(
		a.store.Snapshot(),
		path,
		guard.RequirementFor(path),
	)

	switch decision.Action {
	case guard.Allow:
		a.out.printf(ctx, "allowed: %s", path)
	case guard.Wait:
		a.out.printf(ctx, "checking session, try again")
	case guard.Redirect:
		a.out.printf(ctx, "redirect: %s (from %s)", decision.Target, decision.From)
	}
	return nil
}

func (a *app) changePassword(
	ctx context.Context,
	client *api.Client,
	args []string,
) error {
	fs := flag.NewFlagSet("change-password", flag.ExitOnError)
	oldPassword := fs.String("old", "", "current password")
	newPassword := fs.String("new", "", "new password")
	//nolint:errcheck // ExitOnError
	_ = fs.Parse(args)

	err := client.ChangePassword(ctx, api.ChangePasswordRequest{
		CurrentPassword: *oldPassword,
		NewPassword:     *newPassword,
	})
	if err != nil {
		a.out.printf(ctx, "change failed: %s", api.UserMessage(err))
		return err
	}

	a.out.printf(ctx, "password changed")
	return nil
}

func (a *app) resetRequest(
	ctx context.Context,
	client *api.Client,
	args []string,
) error {
	fs := flag.NewFlagSet("reset-request", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	//nolint:errcheck // ExitOnError
	_ = fs.Parse(args)

	if err := client.RequestPasswordReset(ctx, *email); err != nil {
		a.out.printf(ctx, "request failed: %s", api.UserMessage(err))
		return err
	}

	a.out.printf(ctx, "if the account exists, a reset link is on its way")
	return nil
}

func (a *app) resetConfirm(
	ctx context.Context,
	client *api.Client,
	args []string,
) error {
	fs := flag.NewFlagSet("reset-confirm", flag.ExitOnError)
	token := fs.String("token", "", "reset token")
	newPassword := fs.String("new", "", "new password")
	//nolint:errcheck // ExitOnError
	_ = fs.Parse(args)

	err := client.ConfirmPasswordReset(ctx, api.ConfirmPasswordResetRequest{
		Token:       *token,
		NewPassword: *newPassword,
	})
	if err != nil {
		a.out.printf(ctx, "reset failed: %s", api.UserMessage(err))
		return err
	}

	a.out.printf(ctx, "password reset, you can sign in now")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

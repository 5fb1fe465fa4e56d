package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sprintdeck/sprintdeck-go/config"
	"github.com/sprintdeck/sprintdeck-go/internal/bootstrap"
	"github.com/sprintdeck/sprintdeck-go/internal/domain/session"
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
}

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2)
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2)
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1)
	}
	if cfg.IsDev {
		logger = bootstrap.InitDevLogger()
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1)
	}
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Authenticate against the SprintDeck API and persist the session token",
			run:         runLogin,
		},
		"whoami": {
			name:        "whoami",
			description: "Initialize a session from the stored token and print the current user",
			run:         runWhoami,
		},
		"logout": {
			name:        "logout",
			description: "Revoke the server session and clear the stored token",
			run:         runLogout,
		},
		"watch": {
			name:        "watch",
			description: "Hold a session open and print every state transition until interrupted",
			run:         runWatch,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: sprintdeck <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	for _, c := range commands() {
		if err := writef(os.Stdout, "  %-10s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

type loginOptions struct {
	Username string
	Password string
	Unified  bool
	Timeout  time.Duration
}

func runLogin(cmdCtx *commandContext, args []string) error {
	opts, err := parseLoginFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	svc, err := bootstrap.NewSessionService(ctx, &cmdCtx.Config, cmdCtx.Logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	if opts.Unified {
		err = svc.LoginUnified(ctx, opts.Username, opts.Password)
	} else {
		err = svc.Login(ctx, opts.Username, opts.Password)
	}
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	snap := svc.Snapshot()
	if snap.User == nil {
		return errors.New("login succeeded but no user is present")
	}

	cmdCtx.Logger.InfoContext(ctx, "login successful",
		"username", snap.User.Username,
		"role", snap.User.Role,
	)
	return writef(os.Stdout, "Logged in as %s (%s)\n", snap.User.Username, snap.User.Role)
}

func runWhoami(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	timeout := fs.Duration("timeout", 30*time.Second, "Maximum duration to wait for session initialization")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, *timeout)
	defer cancel()

	svc, err := bootstrap.NewSessionService(ctx, &cmdCtx.Config, cmdCtx.Logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	svc.Initialize(ctx)
	select {
	case <-svc.Settled():
	case <-ctx.Done():
		return fmt.Errorf("session initialization: %w", ctx.Err())
	}

	snap := svc.Snapshot()
	if snap.Status != session.StatusAuthenticated || snap.User == nil {
		return writeln(os.Stdout, "Not logged in")
	}

	u := snap.User
	if err := writef(os.Stdout, "User:  %s <%s>\n", u.Username, u.Email); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Role:  %s\n", u.Role); err != nil {
		return err
	}
	if u.Organization != nil {
		if err := writef(os.Stdout, "Org:   %s\n", u.Organization.Name); err != nil {
			return err
		}
	}
	return nil
}

func runLogout(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	timeout := fs.Duration("timeout", 30*time.Second, "Maximum duration to wait for logout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, *timeout)
	defer cancel()

	svc, err := bootstrap.NewSessionService(ctx, &cmdCtx.Config, cmdCtx.Logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	svc.Logout(ctx)
	return writeln(os.Stdout, "Logged out")
}

func runWatch(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.NewSessionService(ctx, &cmdCtx.Config, cmdCtx.Logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	unsubscribe := svc.Subscribe(func(state session.State) {
		line := formatState(state)
		if werr := writeln(os.Stdout, line); werr != nil {
			cmdCtx.Logger.Error("write state line failed", "error", werr)
		}
	})
	defer unsubscribe()

	svc.Initialize(ctx)

	<-ctx.Done()
	cmdCtx.Logger.Info("watch interrupted, shutting down")
	return nil
}

func formatState(state session.State) string {
	var b strings.Builder
	b.WriteString(time.Now().Format(time.RFC3339))
	b.WriteString("  status=")
	b.WriteString(string(state.Status))
	if state.Loading {
		b.WriteString("  loading=true")
	}
	if state.User != nil {
		b.WriteString("  user=")
		b.WriteString(state.User.Username)
		b.WriteString("  role=")
		b.WriteString(string(state.User.Role))
	}
	return b.String()
}

func parseLoginFlags(args []string) (loginOptions, error) {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts loginOptions
	fs.StringVar(&opts.Username, "username", "", "Username or email (prompted when omitted)")
	fs.StringVar(&opts.Password, "password", "", "Password (prompted when omitted; prefer the prompt)")
	fs.BoolVar(&opts.Unified, "unified", false, "Use the unified login endpoint")
	fs.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Maximum duration to wait for login")

	if err := fs.Parse(args); err != nil {
		return loginOptions{}, err
	}

	opts.Username = strings.TrimSpace(opts.Username)
	if opts.Username == "" {
		v, err := promptLine("Username: ")
		if err != nil {
			return loginOptions{}, err
		}
		opts.Username = v
	}
	if opts.Password == "" {
		v, err := promptLine("Password: ")
		if err != nil {
			return loginOptions{}, err
		}
		opts.Password = v
	}
	if opts.Username == "" || opts.Password == "" {
		return loginOptions{}, errors.New("username and password are required")
	}
	if opts.Timeout <= 0 {
		return loginOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

func promptLine(prompt string) (string, error) {
	if err := writef(os.Stderr, "%s", prompt); err != nil {
		return "", err
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func writeln(w io.Writer, args ...any) error {
	if _, err := fmt.Fprintln(w, args...); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

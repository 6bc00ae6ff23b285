package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/example/task-sync/client"
	"github.com/example/task-sync/client/view"
	domain "github.com/example/task-sync/domain/task"
	"github.com/golang-jwt/jwt/v5"
)

var errNotLoggedIn = errors.New("not logged in, run: taskctl login -email <email> -password <password>")

// cli carries the state shared by every command of one invocation.
type cli struct {
	cfg        *Config
	configPath string
	timeout    time.Duration
	stdout     io.Writer
	logger     *log.Logger
}

// Run parses args and executes one command.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("taskctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(fs, stderr) }
	configPath := fs.String("config", defaultConfigPath(), "Path to the config file")
	server := fs.String("server", "", "Server base URL (overrides config)")
	logLevel := fs.String("log-level", "warn", "Log level (debug|info|warn|error)")
	timeout := fs.Duration("timeout", 0, "Request timeout (overrides config)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	logger := log.NewWithOptions(stderr, log.Options{
		Level:     parseLogLevel(*logLevel),
		Formatter: log.TextFormatter,
		Prefix:    "taskctl",
	})

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *server != "" {
		cfg.Server = *server
	}
	if *timeout > 0 {
		cfg.Timeout = timeout.String()
	}
	d, err := cfg.timeout()
	if err != nil {
		return err
	}

	c := &cli{cfg: cfg, configPath: *configPath, timeout: d, stdout: stdout, logger: logger}

	if fs.NArg() == 0 {
		printUsage(fs, stderr)
		return errors.New("no command given")
	}
	command, rest := fs.Arg(0), fs.Args()[1:]
	logger.Debug("running command", "command", command, "server", cfg.Server)

	switch command {
	case "register":
		return c.register(ctx, rest)
	case "login":
		return c.login(ctx, rest)
	case "list", "ls":
		return c.list(ctx, rest)
	case "add":
		return c.add(ctx, rest)
	case "toggle":
		return c.toggle(ctx, rest)
	case "edit":
		return c.edit(ctx, rest)
	case "rm", "delete":
		return c.remove(ctx, rest)
	case "clear":
		return c.clear(ctx, rest)
	case "stats":
		return c.stats(ctx, rest)
	case "show":
		return c.show(ctx, rest)
	case "help":
		printUsage(fs, stdout)
		return nil
	default:
		printUsage(fs, stderr)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `Usage: taskctl [flags] <command> [args]

Commands:
  register -email e -password p [-name n]   Create an account
  login -email e -password p                Log in and save the tokens
  list [-filter all|pending|completed]      List tasks
  add <title> [-description d] [-done]      Create a task
  toggle <id>                               Flip a task's completion flag
  edit <id> [-title t] [-description d] [-done=true|false]
  rm <id>                                   Delete a task
  clear                                     Delete every completed task
  stats                                     Show task counts
  show <id>                                 Show one task

Flags:
`)
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func parseLogLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.WarnLevel
	}
}

// parseArgs parses fs allowing flags after positional arguments.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("taskctl "+name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func oneID(command string, positional []string) (string, error) {
	if len(positional) != 1 {
		return "", fmt.Errorf("usage: taskctl %s <id>", command)
	}
	return positional[0], nil
}

func (c *cli) gateway() *client.HTTPGateway {
	return client.NewHTTPGateway(c.cfg.Server,
		client.WithToken(c.cfg.AccessToken),
		client.WithHTTPClient(&http.Client{Timeout: c.timeout}),
	)
}

func (c *cli) register(ctx context.Context, args []string) error {
	fs := newFlagSet("register")
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password")
	name := fs.String("name", "", "Display name")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("usage: taskctl register -email <email> -password <password> [-name <name>]")
	}

	acct, err := c.gateway().Register(ctx, *email, *password, *name)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	fmt.Fprintf(c.stdout, "Registered %s (id %s)\n", acct.Email, acct.ID)
	return nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("usage: taskctl login -email <email> -password <password>")
	}

	pair, err := c.gateway().Login(ctx, *email, *password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	userID, err := subjectOf(pair.AccessToken)
	if err != nil {
		return err
	}

	c.cfg.UserID = userID
	c.cfg.Email = *email
	c.cfg.AccessToken = pair.AccessToken
	c.cfg.RefreshToken = pair.RefreshToken
	if err := saveConfig(c.configPath, c.cfg); err != nil {
		return err
	}
	c.logger.Info("saved credentials", "path", c.configPath, "expires_in", pair.ExpiresIn)
	fmt.Fprintf(c.stdout, "Logged in as %s (id %s)\n", *email, userID)
	return nil
}

// subjectOf reads the user id from an access token. The server has already
// verified it; the CLI cannot, having no key.
func subjectOf(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("reading access token: %w", err)
	}
	if id, ok := claims["user_id"].(string); ok && id != "" {
		return id, nil
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("access token carries no user id")
	}
	return sub, nil
}

// withSession loads the snapshot, runs op and prints the snapshot through
// mode. The last good snapshot is printed even when op fails.
func (c *cli) withSession(ctx context.Context, mode view.Mode, op func(context.Context, *client.Session) error) error {
	if c.cfg.UserID == "" || c.cfg.AccessToken == "" {
		return errNotLoggedIn
	}
	s, err := client.NewSession(c.cfg.UserID, c.gateway())
	if err != nil {
		return err
	}
	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}

	var opErr error
	if op != nil {
		opErr = op(ctx, s)
	}
	printTasks(c.stdout, s.Snapshot(), mode)
	return opErr
}

func (c *cli) list(ctx context.Context, args []string) error {
	fs := newFlagSet("list")
	filter := fs.String("filter", "all", "Filter: all, pending or completed")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	mode, err := view.ParseMode(*filter)
	if err != nil {
		return err
	}
	return c.withSession(ctx, mode, nil)
}

func (c *cli) add(ctx context.Context, args []string) error {
	fs := newFlagSet("add")
	description := fs.String("description", "", "Task description")
	done := fs.Bool("done", false, "Create the task already completed")
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) == 0 {
		return errors.New("usage: taskctl add <title> [-description d] [-done]")
	}

	in := domain.CreateInput{
		Title:       strings.Join(positional, " "),
		Description: *description,
	}
	if *done {
		in.Completed = done
	}
	return c.withSession(ctx, view.All, func(ctx context.Context, s *client.Session) error {
		return s.Add(ctx, in)
	})
}

func (c *cli) toggle(ctx context.Context, args []string) error {
	id, err := oneID("toggle", args)
	if err != nil {
		return err
	}
	return c.withSession(ctx, view.All, func(ctx context.Context, s *client.Session) error {
		return s.Toggle(ctx, id)
	})
}

func (c *cli) edit(ctx context.Context, args []string) error {
	fs := newFlagSet("edit")
	title := fs.String("title", "", "New title")
	description := fs.String("description", "", "New description")
	done := fs.Bool("done", false, "Completion flag")
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	id, err := oneID("edit", positional)
	if err != nil {
		return err
	}

	var patch domain.Patch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			patch.Title = title
		case "description":
			patch.Description = description
		case "done":
			patch.Completed = done
		}
	})
	if patch.IsEmpty() {
		return errors.New("edit needs at least one of -title, -description, -done")
	}
	return c.withSession(ctx, view.All, func(ctx context.Context, s *client.Session) error {
		return s.Edit(ctx, id, patch)
	})
}

func (c *cli) remove(ctx context.Context, args []string) error {
	id, err := oneID("rm", args)
	if err != nil {
		return err
	}
	return c.withSession(ctx, view.All, func(ctx context.Context, s *client.Session) error {
		return s.Delete(ctx, id)
	})
}

func (c *cli) clear(ctx context.Context, _ []string) error {
	return c.withSession(ctx, view.All, func(ctx context.Context, s *client.Session) error {
		return s.ClearCompleted(ctx)
	})
}

func (c *cli) stats(ctx context.Context, _ []string) error {
	if c.cfg.UserID == "" || c.cfg.AccessToken == "" {
		return errNotLoggedIn
	}
	s, err := client.NewSession(c.cfg.UserID, c.gateway())
	if err != nil {
		return err
	}
	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}
	printStats(c.stdout, view.Stats(s.Snapshot()))
	return nil
}

func (c *cli) show(ctx context.Context, args []string) error {
	id, err := oneID("show", args)
	if err != nil {
		return err
	}
	if c.cfg.UserID == "" || c.cfg.AccessToken == "" {
		return errNotLoggedIn
	}
	s, err := client.NewSession(c.cfg.UserID, c.gateway())
	if err != nil {
		return err
	}
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	printTask(c.stdout, *t)
	return nil
}

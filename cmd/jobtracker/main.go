package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/temirrrr/job-tracker/internal/config"
	"github.com/temirrrr/job-tracker/internal/controller"
	"github.com/temirrrr/job-tracker/internal/jobsapi"
	"github.com/temirrrr/job-tracker/internal/logging"
	"github.com/temirrrr/job-tracker/internal/session"
	"github.com/temirrrr/job-tracker/internal/store"
)

const usage = `usage: jobtracker <command> [flags]

commands:
  register       create an account
  login          sign in and remember the token
  logout         forget the token
  dashboard      interactive job list and form
  list           print jobs (-o table|json|yaml)
  add            add a job
  edit           change a job (-id N and the fields to change)
  delete         delete a job (-id N)
  export-notion  copy all jobs into the Notion database

unknown commands open login.`

type app struct {
	cfg     *config.Client
	logger  *logrus.Logger
	session *session.Session
	client  *jobsapi.Client
	in      *bufio.Reader
	out     io.Writer
	closers []func() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(os.Stderr, "jobtracker:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Println(usage)
		return nil
	}

	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	defer a.close()

	cmd, rest := "dashboard", []string(nil)
	if len(args) > 0 {
		cmd, rest = args[0], args[1:]
	}

	switch cmd {
	case "register":
		return a.register(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout(ctx)
	case "dashboard":
		return a.dashboard(ctx, rest)
	case "list", "ls":
		return a.list(ctx, rest)
	case "add":
		return a.add(ctx, rest)
	case "edit":
		return a.edit(ctx, rest)
	case "delete", "rm":
		return a.delete(ctx, rest)
	case "export-notion":
		return a.exportNotion(ctx, rest)
	default:
		fmt.Fprintf(a.out, "unknown command %q, opening login\n", cmd)
		return a.login(ctx, nil)
	}
}

func newApp(ctx context.Context, cfg *config.Client, in io.Reader, out io.Writer) (*app, error) {
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	a := &app{
		cfg:    cfg,
		logger: logger,
		in:     bufio.NewReader(in),
		out:    out,
	}

	credStore, err := a.openCredentialStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.session = session.New(credStore, logger)
	a.client = jobsapi.NewClient(cfg.APIURL, a.session, nil, logger)

	logger.WithFields(logrus.Fields{
		"api":           cfg.APIURL,
		"session_store": cfg.SessionStore,
	}).Debug("jobtracker ready")
	return a, nil
}

func (a *app) openCredentialStore(ctx context.Context) (session.Store, error) {
	switch a.cfg.SessionStore {
	case config.SessionStoreRedis:
		rdb, err := session.NewRedisClient(a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		return session.NewRedisStore(rdb, a.cfg.CredentialKey), nil
	case config.SessionStoreMemory:
		return session.NewMemoryStore(), nil
	default:
		db, err := store.OpenSQLite(a.cfg.SessionDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return session.NewSQLiteStore(ctx, db, a.cfg.CredentialKey)
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.WithFields(logrus.Fields{"error": err.Error()}).Warn("close failed")
		}
	}
	a.closers = nil
}

func (a *app) controller() *controller.EditController {
	return controller.New(a.client,
		controller.WithLogger(a.logger),
		controller.WithCredentialClearer(a.session),
	)
}

// prompt returns def when set and otherwise reads one line from stdin.
func (a *app) prompt(label, def string) (string, error) {
	if def != "" {
		return def, nil
	}
	fmt.Fprintf(a.out, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", label, err)
	}
	return strings.TrimSpace(line), nil
}

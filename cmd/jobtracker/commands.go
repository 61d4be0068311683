package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/temirrrr/job-tracker/internal/controller"
	"github.com/temirrrr/job-tracker/internal/domain"
	"github.com/temirrrr/job-tracker/internal/logging"
	"github.com/temirrrr/job-tracker/internal/notion"
	"github.com/temirrrr/job-tracker/internal/view"
)

var errNotLoggedIn = errors.New("not logged in, run: jobtracker login")

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	username := fs.String("username", "", "account name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *username, err = a.prompt("username", *username); err != nil {
		return err
	}
	if *email, err = a.prompt("email", *email); err != nil {
		return err
	}
	if *password, err = a.prompt("password", *password); err != nil {
		return err
	}

	if err := a.client.Register(ctx, *username, *email, *password); err != nil {
		view.RenderError(a.out, err)
		return errors.New("registration failed")
	}
	fmt.Fprintln(a.out, "Registered. Log in with: jobtracker login")
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("username", "", "account name")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *username, err = a.prompt("username", *username); err != nil {
		return err
	}
	if *password, err = a.prompt("password", *password); err != nil {
		return err
	}

	token, err := a.client.Login(ctx, *username, *password)
	if err != nil {
		view.RenderError(a.out, loginError(err))
		return errors.New("login failed")
	}
	if err := a.session.SetCredential(ctx, token); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	a.logger.WithFields(logrus.Fields{"username": *username, "token": logging.Mask(token)}).Info("logged in")
	fmt.Fprintln(a.out, "Logged in.")
	return nil
}

// loginError reports a rejected password as a form error rather than an
// expired session.
func loginError(err error) error {
	var derr *domain.Error
	if errors.As(err, &derr) && derr.Kind == domain.KindAuth {
		msg := derr.Message
		if msg == "" {
			msg = "Incorrect username or password"
		}
		return domain.ValidationError("login", msg)
	}
	return err
}

func (a *app) logout(ctx context.Context) error {
	if err := a.session.ClearCredential(ctx); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

// requireLogin sends an unauthenticated user through login first.
func (a *app) requireLogin(ctx context.Context) error {
	if a.session.Authenticated(ctx) {
		return nil
	}
	fmt.Fprintln(a.out, "You are not logged in.")
	return a.login(ctx, nil)
}

func (a *app) dashboard(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	ctrl := a.controller()
	defer ctrl.Close()

	fmt.Fprintln(a.out, "Job tracker. Type help for commands.")
	err := view.NewConsole(ctrl, a.in, a.out, a.logger).Run(ctx)
	if errors.Is(err, view.ErrLoginRequired) {
		return errNotLoggedIn
	}
	return err
}

// loaded refreshes a fresh controller and fails when the server could not
// be read.
func (a *app) loaded(ctx context.Context) (*controller.EditController, error) {
	if !a.session.Authenticated(ctx) {
		return nil, errNotLoggedIn
	}
	ctrl := a.controller()
	if err := ctrl.Refresh(ctx); err != nil {
		return nil, err
	}
	if err := a.failed(ctrl); err != nil {
		return nil, err
	}
	return ctrl, nil
}

func (a *app) failed(ctrl *controller.EditController) error {
	snap := ctrl.Snapshot()
	if snap.Phase != controller.PhaseError {
		return nil
	}
	view.RenderError(a.out, snap.Err)
	if domain.IsAuth(snap.Err) {
		return errNotLoggedIn
	}
	return errors.New("request failed")
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	output := fs.String("o", "table", "output format: table, json or yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := view.ParseFormat(*output)
	if err != nil {
		return err
	}

	ctrl, err := a.loaded(ctx)
	if err != nil {
		return err
	}
	return view.Render(a.out, ctrl.Snapshot(), format)
}

// jobFlags binds the record fields to fs.
func jobFlags(fs *flag.FlagSet) *domain.JobFields {
	f := &domain.JobFields{}
	fs.StringVar(&f.Title, "title", "", "job title")
	fs.StringVar(&f.Company, "company", "", "company")
	fs.StringVar(&f.Link, "link", "", "posting URL")
	fs.Func("status", "new, applied, interview, offer or rejected", func(s string) error {
		st, ok := domain.ParseStatus(s)
		if !ok {
			return fmt.Errorf("unknown status %q", s)
		}
		f.Status = st
		return nil
	})
	fs.StringVar(&f.Notes, "notes", "", "free text notes")
	return f
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fields := jobFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctrl, err := a.loaded(ctx)
	if err != nil {
		return err
	}
	if err := ctrl.Submit(ctx, *fields); err != nil {
		return err
	}
	if err := a.failed(ctrl); err != nil {
		return err
	}
	return view.Render(a.out, ctrl.Snapshot(), view.FormatTable)
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	id := fs.Int64("id", 0, "job id")
	changes := jobFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("edit needs -id")
	}

	ctrl, err := a.loaded(ctx)
	if err != nil {
		return err
	}
	job, ok := domain.FindJob(ctrl.Snapshot().Collection, *id)
	if !ok {
		return fmt.Errorf("no job #%d", *id)
	}
	if err := ctrl.BeginEdit(job); err != nil {
		return err
	}

	// only the flags given on the command line replace stored values
	fields := job.Fields()
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			fields.Title = changes.Title
		case "company":
			fields.Company = changes.Company
		case "link":
			fields.Link = changes.Link
		case "status":
			fields.Status = changes.Status
		case "notes":
			fields.Notes = changes.Notes
		}
	})

	if err := ctrl.Submit(ctx, fields); err != nil {
		return err
	}
	if err := a.failed(ctrl); err != nil {
		return err
	}
	return view.Render(a.out, ctrl.Snapshot(), view.FormatTable)
}

func (a *app) delete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	id := fs.Int64("id", 0, "job id")
	yes := fs.Bool("yes", false, "skip the confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("delete needs -id")
	}

	if !*yes {
		answer, err := a.prompt(fmt.Sprintf("Delete job #%d? [y/N]", *id), "")
		if err != nil {
			return err
		}
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			fmt.Fprintln(a.out, "kept")
			return nil
		}
	}

	ctrl, err := a.loaded(ctx)
	if err != nil {
		return err
	}
	if err := ctrl.DeleteRecord(ctx, *id); err != nil {
		return err
	}
	if err := a.failed(ctrl); err != nil {
		return err
	}
	return view.Render(a.out, ctrl.Snapshot(), view.FormatTable)
}

func (a *app) exportNotion(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export-notion", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !a.cfg.NotionEnabled() {
		return errors.New("NOTION_TOKEN and NOTION_DB_ID must be set")
	}

	ctrl, err := a.loaded(ctx)
	if err != nil {
		return err
	}

	nc := notion.New(a.cfg.NotionToken, a.cfg.NotionDBID, nil, a.logger)
	if err := nc.Ping(ctx); err != nil {
		return fmt.Errorf("notion ping: %w", err)
	}
	a.logger.WithFields(logrus.Fields{
		"db":    a.cfg.NotionDBID,
		"token": logging.Mask(a.cfg.NotionToken),
	}).Info("notion connection ok")

	jobs := ctrl.Snapshot().Collection
	created, err := nc.ExportJobs(ctx, jobs)
	fmt.Fprintf(a.out, "Exported %d of %d jobs to Notion.\n", created, len(jobs))
	return err
}

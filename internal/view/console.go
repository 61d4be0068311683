package view

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/temirrrr/job-tracker/internal/controller"
	"github.com/temirrrr/job-tracker/internal/domain"
)

// ErrLoginRequired is returned by Run when the server rejected the
// credential; the caller should route the user to login.
var ErrLoginRequired = errors.New("login required")

// Controller is the set of intents the console raises.
type Controller interface {
	Snapshot() controller.Snapshot
	Refresh(ctx context.Context) error
	BeginEdit(job domain.Job) error
	CancelEdit() error
	Submit(ctx context.Context, fields domain.JobFields) error
	DeleteRecord(ctx context.Context, id int64) error
}

// Console is a line-oriented dashboard: it renders the snapshot, keeps
// the fields the user typed, and forwards intents to the controller.
type Console struct {
	ctrl   Controller
	in     *bufio.Scanner
	out    io.Writer
	logger logrus.FieldLogger

	// edits holds only the fields named in touched; the rest of the form
	// comes from the edited record in the current collection.
	edits   domain.JobFields
	touched map[string]bool
	editing bool
}

func NewConsole(ctrl Controller, in io.Reader, out io.Writer, logger logrus.FieldLogger) *Console {
	return &Console{
		ctrl:    ctrl,
		in:      bufio.NewScanner(in),
		out:     out,
		logger:  logger,
		touched: map[string]bool{},
	}
}

func emptyForm() domain.JobFields {
	return domain.JobFields{Status: domain.StatusNew}
}

// form is what submit would send: the edited record as the server last
// reported it, or the defaults, with the user's changes on top.
func (c *Console) form() domain.JobFields {
	f := emptyForm()
	if c.editing {
		if job, ok := c.ctrl.Snapshot().Editing(); ok {
			f = job.Fields()
		}
	}
	if c.touched["title"] {
		f.Title = c.edits.Title
	}
	if c.touched["company"] {
		f.Company = c.edits.Company
	}
	if c.touched["link"] {
		f.Link = c.edits.Link
	}
	if c.touched["status"] {
		f.Status = c.edits.Status
	}
	if c.touched["notes"] {
		f.Notes = c.edits.Notes
	}
	return f
}

func (c *Console) resetForm() {
	c.edits = domain.JobFields{}
	c.touched = map[string]bool{}
	c.editing = false
}

const consoleHelp = `commands:
  list                  show jobs
  refresh               reload jobs from the server
  new                   start a new job (leaves edit mode)
  edit <id>             edit a job
  set <field> <value>   set title, company, link, status or notes
  form                  show the form
  submit                add the job, or save changes in edit mode
  cancel                leave edit mode
  delete <id>           delete a job
  quit`

// Run loads the collection and processes commands until quit or EOF.
func (c *Console) Run(ctx context.Context) error {
	if err := c.refresh(ctx); err != nil {
		return err
	}
	for {
		fmt.Fprint(c.out, "> ")
		line, ok := c.readLine()
		if !ok {
			return c.in.Err()
		}
		quit, err := c.Execute(ctx, line)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

func (c *Console) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

// Execute handles one command line. It reports whether the user quit.
func (c *Console) Execute(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		fmt.Fprintln(c.out, consoleHelp)
	case "list", "ls":
		c.render()
	case "refresh":
		return false, c.refresh(ctx)
	case "form":
		RenderForm(c.out, c.ctrl.Snapshot(), c.form())
	case "new":
		c.cancelRequested()
	case "cancel":
		if !c.editing {
			fmt.Fprintln(c.out, "not editing")
			return false, nil
		}
		c.cancelRequested()
	case "edit":
		id, ok := c.parseID(args)
		if ok {
			c.editRequested(id)
		}
	case "set":
		c.setField(line, args)
	case "submit", "save", "add":
		return false, c.formSubmitted(ctx)
	case "delete", "rm":
		id, ok := c.parseID(args)
		if ok {
			return false, c.deleteRequested(ctx, id)
		}
	default:
		fmt.Fprintf(c.out, "unknown command %q, type help\n", cmd)
	}
	return false, nil
}

func (c *Console) parseID(args []string) (int64, bool) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "expected a job id")
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		fmt.Fprintf(c.out, "invalid job id %q\n", args[0])
		return 0, false
	}
	return id, true
}

func (c *Console) refresh(ctx context.Context) error {
	if err := c.ctrl.Refresh(ctx); err != nil {
		c.reject(err)
		return nil
	}
	return c.afterIntent()
}

func (c *Console) editRequested(id int64) {
	job, ok := domain.FindJob(c.ctrl.Snapshot().Collection, id)
	if !ok {
		fmt.Fprintf(c.out, "no job #%d in the list\n", id)
		return
	}
	if err := c.ctrl.BeginEdit(job); err != nil {
		c.reject(err)
		return
	}
	c.resetForm()
	c.editing = true
	RenderForm(c.out, c.ctrl.Snapshot(), c.form())
}

func (c *Console) cancelRequested() {
	if err := c.ctrl.CancelEdit(); err != nil {
		c.reject(err)
		return
	}
	c.resetForm()
	RenderForm(c.out, c.ctrl.Snapshot(), c.form())
}

func (c *Console) setField(line string, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "usage: set <field> <value>")
		return
	}
	value := ""
	if len(args) > 1 {
		// keep the user's spacing inside the value
		value = strings.TrimSpace(line[strings.Index(line, args[0])+len(args[0]):])
	}
	name := strings.ToLower(args[0])
	switch name {
	case "title":
		c.edits.Title = value
	case "company":
		c.edits.Company = value
	case "link":
		c.edits.Link = value
	case "notes":
		c.edits.Notes = value
	case "status":
		st, ok := domain.ParseStatus(value)
		if !ok {
			fmt.Fprintln(c.out, "status must be one of new, applied, interview, offer, rejected")
			return
		}
		c.edits.Status = st
	default:
		fmt.Fprintf(c.out, "unknown field %q\n", args[0])
		return
	}
	c.touched[name] = true
}

func (c *Console) formSubmitted(ctx context.Context) error {
	if err := c.ctrl.Submit(ctx, c.form()); err != nil {
		c.reject(err)
		return nil
	}
	// the write went through even if the refresh after it failed
	if c.ctrl.Snapshot().Committed != controller.OpNone {
		c.resetForm()
	}
	return c.afterIntent()
}

func (c *Console) deleteRequested(ctx context.Context, id int64) error {
	fmt.Fprintf(c.out, "Delete job #%d? [y/N] ", id)
	answer, ok := c.readLine()
	if !ok || (!strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes")) {
		fmt.Fprintln(c.out, "kept")
		return nil
	}
	if err := c.ctrl.DeleteRecord(ctx, id); err != nil {
		c.reject(err)
		return nil
	}
	return c.afterIntent()
}

// afterIntent renders the new state and keeps the form in step with the
// controller's edit target.
func (c *Console) afterIntent() error {
	snap := c.ctrl.Snapshot()
	if c.editing && snap.Target.IsNone() {
		c.resetForm()
		fmt.Fprintln(c.out, "the job you were editing no longer exists")
	}
	c.render()
	if snap.Phase == controller.PhaseError {
		RenderError(c.out, snap.Err)
		if domain.IsAuth(snap.Err) {
			return ErrLoginRequired
		}
	}
	return nil
}

func (c *Console) render() {
	if err := Render(c.out, c.ctrl.Snapshot(), FormatTable); err != nil {
		c.logger.WithFields(logrus.Fields{"error": err.Error()}).Error("render failed")
	}
}

func (c *Console) reject(err error) {
	switch {
	case errors.Is(err, controller.ErrBusy):
		fmt.Fprintln(c.out, "busy: wait for the current save to finish")
	case errors.Is(err, controller.ErrUnknownRecord):
		fmt.Fprintln(c.out, "that job is not in the list, refresh first")
	default:
		fmt.Fprintf(c.out, "error: %v\n", err)
	}
}

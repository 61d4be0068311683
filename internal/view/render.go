// Package view renders the controller snapshot and turns user input into
// intents. It holds no job state of its own beyond the edit form.
package view

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/temirrrr/job-tracker/internal/controller"
	"github.com/temirrrr/job-tracker/internal/domain"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

type renderedJob struct {
	ID      int64  `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Company string `json:"company" yaml:"company"`
	Status  string `json:"status" yaml:"status"`
	Link    string `json:"link,omitempty" yaml:"link,omitempty"`
	Href    string `json:"href,omitempty" yaml:"href,omitempty"`
	Notes   string `json:"notes,omitempty" yaml:"notes,omitempty"`
	Editing bool   `json:"editing,omitempty" yaml:"editing,omitempty"`
}

func toRendered(snap controller.Snapshot) []renderedJob {
	editID, editing := snap.Target.ID()
	out := make([]renderedJob, 0, len(snap.Collection))
	for _, j := range snap.Collection {
		out = append(out, renderedJob{
			ID:      j.ID,
			Title:   j.Title,
			Company: j.Company,
			Status:  string(j.Status),
			Link:    j.Link,
			Href:    NormalizeLink(j.Link),
			Notes:   j.Notes,
			Editing: editing && j.ID == editID,
		})
	}
	return out
}

// Render writes the collection of snap in the given format.
func Render(w io.Writer, snap controller.Snapshot, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toRendered(snap))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(toRendered(snap))
	default:
		return renderTable(w, snap)
	}
}

func renderTable(w io.Writer, snap controller.Snapshot) error {
	if len(snap.Collection) == 0 {
		_, err := fmt.Fprintln(w, "No jobs yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, j := range toRendered(snap) {
		marker := " "
		if j.Editing {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s #%d\t%s @ %s\t[%s]\t%s\n", marker, j.ID, j.Title, j.Company, j.Status, j.Href)
		if j.Notes != "" {
			fmt.Fprintf(tw, "\tNotes: %s\t\t\n", j.Notes)
		}
	}
	return tw.Flush()
}

// RenderError describes a failure for the user, including field messages.
func RenderError(w io.Writer, err error) {
	if err == nil {
		return
	}
	var derr *domain.Error
	if !errors.As(err, &derr) {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	switch derr.Kind {
	case domain.KindAuth:
		fmt.Fprintln(w, "error: your session is no longer valid, please log in again")
	case domain.KindValidation:
		msg := derr.Message
		if msg == "" {
			msg = "invalid input"
		}
		fmt.Fprintf(w, "error: %s\n", msg)
		for _, name := range derr.FieldNames() {
			fmt.Fprintf(w, "  %s: %s\n", name, derr.Fields[name])
		}
	case domain.KindNotFound:
		fmt.Fprintln(w, "error: that job no longer exists; the list has been reloaded")
	default:
		fmt.Fprintf(w, "error: could not reach the server (%v)\n", derr)
	}
}

// RenderForm prints the edit form and its mode.
func RenderForm(w io.Writer, snap controller.Snapshot, form domain.JobFields) {
	if id, ok := snap.Target.ID(); ok {
		fmt.Fprintf(w, "Editing job #%d\n", id)
	} else {
		fmt.Fprintln(w, "New job")
	}
	fmt.Fprintf(w, "  title:   %s\n", form.Title)
	fmt.Fprintf(w, "  company: %s\n", form.Company)
	fmt.Fprintf(w, "  link:    %s\n", form.Link)
	fmt.Fprintf(w, "  status:  %s\n", form.Status)
	fmt.Fprintf(w, "  notes:   %s\n", form.Notes)
}

// Package views renders the screens of the web client from embedded
// templates.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/civiclens/webclient/internal/guard"
	"github.com/civiclens/webclient/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names.
const (
	Landing            = "landing"
	Login              = "login"
	Signup             = "signup"
	TransparencyWall   = "transparency_wall"
	PublicIssue        = "public_issue"
	CitizenDashboard   = "citizen_dashboard"
	Report             = "report"
	MyIssues           = "my_issues"
	IssueDetail        = "issue_detail"
	Settings           = "settings"
	HelpCenter         = "help_center"
	AuthorityDashboard = "authority_dashboard"
	Management         = "management"
	Departments        = "departments"
	Error              = "error"
	Fallback           = "fallback"
)

var pageNames = []string{
	Landing, Login, Signup, TransparencyWall, PublicIssue,
	CitizenDashboard, Report, MyIssues, IssueDetail, Settings, HelpCenter,
	AuthorityDashboard, Management, Departments,
	Error, Fallback,
}

// Page is the data every screen is rendered with. Data holds the
// screen's own view model and is what JSON clients receive.
type Page struct {
	Title    string          `json:"title,omitempty"`
	Identity *types.Identity `json:"identity,omitempty"`
	Nav      []guard.NavLink `json:"nav,omitempty"`
	Error    string          `json:"error,omitempty"`
	Notice   string          `json:"notice,omitempty"`
	Data     any             `json:"data,omitempty"`
}

// Renderer executes the parsed page templates.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"statusLabel": func(s types.Status) string { return s.Label() },
	"location":    func(l *types.Location) string { return l.Label() },
	"date":        func(t time.Time) string { return t.Format("02 Jan 2006") },
	"isoTime":     func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
}

// New parses every page against the shared layout.
func New() (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// Render writes page name to w. Nothing is written when execution fails.
func (r *Renderer) Render(w io.Writer, name string, page Page) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("render page %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

package screens

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"sgr/internal/risk"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Page names accepted by Views.Render.
const (
	PageScreen    = "screen"
	PageDenied    = "denied"
	PageLogin     = "login"
	PageNotFound  = "not_found"
	PageConfirmed = "confirmed"
	PageRiskForm  = "risk_form"
)

// RiskFormPath is where risk records are listed; RiskCreateSlug under it
// opens an empty form and any other segment edits that record.
const (
	RiskFormPath   = "/sgr/identificacaoriscos"
	RiskCreateSlug = "inserir"
)

var pageNames = []string{PageScreen, PageDenied, PageLogin, PageNotFound, PageConfirmed, PageRiskForm}

// Chrome is the navigation bar state. It is rendered only when Authenticated.
type Chrome struct {
	Authenticated bool
	User          string
	Navigation
}

// Page is the data every view receives.
type Page struct {
	Title     string
	Chrome    Chrome
	RequestID string
	Data      any
}

// LoginForm backs the login page.
type LoginForm struct {
	Username string
	From     string
	Error    string
}

// RiskForm backs the risk identification form.
type RiskForm struct {
	Action     string
	Editing    bool
	Record     risk.Record
	Score      risk.Score
	Scored     bool
	Levels     []string
	Kinds      []string
	Categories []string
	Statuses   []string
	Error      string
}

// NewRiskForm fills the vocabularies and the engine's score for record. An
// empty editID makes it a creation form.
func NewRiskForm(record risk.Record, editID string) RiskForm {
	score, ok := record.Rescore()
	levels := make([]string, 0, len(risk.Levels()))
	for _, l := range risk.Levels() {
		levels = append(levels, l.String())
	}
	action := RiskFormPath + "/" + RiskCreateSlug
	if editID != "" {
		action = RiskFormPath + "/" + url.PathEscape(editID)
	}
	return RiskForm{
		Action:     action,
		Editing:    editID != "",
		Record:     record,
		Score:      score,
		Scored:     ok,
		Levels:     levels,
		Kinds:      risk.Kinds,
		Categories: risk.Categories,
		Statuses:   risk.Statuses,
	}
}

// Views holds one parsed template set per page, each sharing the layout.
type Views struct {
	pages map[string]*template.Template
}

func NewViews() (*Views, error) {
	base, err := template.New("layout.tmpl").ParseFS(templateFS, "templates/layout.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	v := &Views{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", name, err)
		}
		page, err := clone.ParseFS(templateFS, "templates/"+name+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		v.pages[name] = page
	}
	return v, nil
}

// Render executes page into a buffer first so a template failure never
// leaves a half-written response.
func (v *Views) Render(w http.ResponseWriter, status int, page string, data Page) error {
	tmpl, ok := v.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

package web

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"folio/internal/config"
	"folio/internal/model"
	"folio/internal/nav"
)

//go:embed page.html.tmpl
var pageTemplate string

type pageRenderer struct {
	tmpl *template.Template
	data pageData
}

type pageSection struct {
	model.Section
	Home bool
}

type pageData struct {
	Title    string
	Owner    config.Owner
	Nav      []model.NavigationItem
	Sections []pageSection
	// Tuning for the page's section tracker, rendered as data attributes.
	Thresholds nav.Thresholds
	Reveal     nav.RevealOptions
}

func newPageRenderer(site *config.Site) (*pageRenderer, error) {
	tmpl, err := template.New("page").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	data := pageData{
		Title:      site.Title,
		Owner:      site.Owner,
		Nav:        site.Nav,
		Thresholds: site.Thresholds.WithDefaults(),
		Reveal:     site.Reveal.WithDefaults(),
	}
	for i, item := range site.Nav {
		sec, ok := site.Section(item.SectionID())
		if !ok {
			continue
		}
		data.Sections = append(data.Sections, pageSection{Section: sec, Home: i == 0})
	}
	return &pageRenderer{tmpl: tmpl, data: data}, nil
}

func (p *pageRenderer) render() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, p.data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	body, err := s.page.render()
	if err != nil {
		s.log.Error("render page", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body)
}

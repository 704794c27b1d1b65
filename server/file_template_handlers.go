package server

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/jrsteele09/lingo-web/analytics"
	"github.com/jrsteele09/lingo-web/preferences"
	"github.com/jrsteele09/lingo-web/users"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

const contentTypeHTML = "text/html; charset=utf-8"

func TemplateFilesFS() fs.FS {
	// Create the sub filesystem once
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a page together with the shared layout.
func ParseTemplate(name string) (*template.Template, error) {
	return template.New(name).ParseFS(TemplateFilesFS(), "layout.html", name)
}

func mustParseTemplate(name string) *template.Template {
	tmpl, err := ParseTemplate(name)
	if err != nil {
		panic("Failed to parse " + name + " template: " + err.Error())
	}
	return tmpl
}

// PageData is the template model shared by every page.
type PageData struct {
	AppName       string
	Lang          preferences.Language
	User          *users.User
	Error         string
	Next          string
	Email         string
	GoogleEnabled bool
	Roles         []users.Role // Account types offered on sign up
	Dashboard     *analytics.Dashboard
}

func (s *Server) pageData(r *http.Request) PageData {
	data := PageData{AppName: s.config.GetAppName(), Lang: preferences.DefaultLanguage}
	if b, ok := browserFrom(r.Context()); ok {
		data.Lang = b.Preferences.Language(r.Context())
		data.User = b.Session.Snapshot().User
	}
	return data
}

func render(w http.ResponseWriter, tmpl *template.Template, status int, data PageData) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		log.Err(err).Str("template", tmpl.Name()).Msg("Failed to render template")
	}
}

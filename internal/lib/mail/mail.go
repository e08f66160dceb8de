// Package mail renders the notification templates embedded in the binary.
package mail

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
)

const (
	TemplateConfirmEmail  = "confirm_email.html"
	TemplateResetPassword = "reset_password.html"
)

var ErrTemplateRender = errors.New("template render failed")

//go:embed templates/*.html
var templatesFS embed.FS

// Data is what every template receives.
type Data struct {
	Username         string
	Email            string
	Link             string
	ExpiresInMinutes int
}

type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("mail").Option("missingkey=error").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("mail.NewRenderer: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// MustNewRenderer panics if the embedded templates do not parse.
func MustNewRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) Render(name string, data Data) (string, error) {
	const op = "mail.Render"

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrTemplateRender, err)
	}
	return buf.String(), nil
}

// Package mail renders and delivers the transactional emails sent by the
// auth flow.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templates embed.FS

// Renderer renders the embedded email templates.
type Renderer struct {
	templates *template.Template
}

// LinkData carries the values interpolated into callback emails.
type LinkData struct {
	Name string
	URL  string
}

// NewRenderer parses templates at startup.
func NewRenderer() (*Renderer, error) {
	tpl, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("mail: parse templates: %w", err)
	}
	return &Renderer{templates: tpl}, nil
}

// VerificationEmail renders the email-verification body.
func (r *Renderer) VerificationEmail(data LinkData) (string, error) {
	return r.render("email_verification.html", data)
}

// ResetEmail renders the password-reset body.
func (r *Renderer) ResetEmail(data LinkData) (string, error) {
	return r.render("forgot_password.html", data)
}

func (r *Renderer) render(name string, data LinkData) (string, error) {
	if r == nil {
		return "", fmt.Errorf("mail: renderer not initialised")
	}
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("mail: render %s: %w", name, err)
	}
	return buf.String(), nil
}

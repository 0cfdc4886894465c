package notification

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	accounts "github.com/goliatone/go-accounts"
	"github.com/gofiber/template/django/v3"
)

//go:embed templates
var templatesFS embed.FS

// DefaultSubjects maps template names to email subjects
var DefaultSubjects = map[string]string{
	accounts.TemplateAccountCreated: "Confirm your account",
}

// Message is a rendered notification
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// TemplateRenderer renders notification templates with the django engine.
// Each template has an .html body and an optional .txt alternative.
type TemplateRenderer struct {
	html     *django.Engine
	text     *django.Engine
	subjects map[string]string
}

// NewTemplateRenderer loads templates from fsys, or from the embedded
// templates when fsys is nil.
func NewTemplateRenderer(fsys fs.FS, subjects map[string]string) (*TemplateRenderer, error) {
	if fsys == nil {
		sub, err := fs.Sub(templatesFS, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	}

	if subjects == nil {
		subjects = DefaultSubjects
	}

	html := django.NewFileSystem(http.FS(fsys), ".html")
	if err := html.Load(); err != nil {
		return nil, fmt.Errorf("load html templates: %w", err)
	}

	text := django.NewFileSystem(http.FS(fsys), ".txt")
	if err := text.Load(); err != nil {
		return nil, fmt.Errorf("load text templates: %w", err)
	}

	return &TemplateRenderer{
		html:     html,
		text:     text,
		subjects: subjects,
	}, nil
}

// Render builds the message for templateName
func (r *TemplateRenderer) Render(templateName string, data map[string]any) (Message, error) {
	msg := Message{Subject: r.subjects[templateName]}
	if msg.Subject == "" {
		msg.Subject = templateName
	}

	var htmlBuf, textBuf bytes.Buffer
	htmlErr := r.html.Render(&htmlBuf, templateName, data)
	textErr := r.text.Render(&textBuf, templateName, data)

	if htmlErr != nil && textErr != nil {
		return msg, fmt.Errorf("render template %s: %w", templateName, errors.Join(htmlErr, textErr))
	}

	if htmlErr == nil {
		msg.HTML = htmlBuf.String()
	}
	if textErr == nil {
		msg.Text = textBuf.String()
	}

	return msg, nil
}

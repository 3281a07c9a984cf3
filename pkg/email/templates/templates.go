// Package templates renders transactional email bodies.
package templates

import (
	"bytes"
	"embed"
	"html/template"
	"time"
)

//go:embed *.html
var files embed.FS

var tmpl = template.Must(template.ParseFS(files, "*.html"))

// Invitation is the data for the workspace invitation email.
type Invitation struct {
	WorkspaceName string
	Role          string
	AcceptURL     string
	ExpiresAt     time.Time
}

// RenderInvitation renders the invitation email body.
func RenderInvitation(data Invitation) (string, error) {
	return render("invitation", data)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

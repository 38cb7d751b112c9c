package httpx

import (
	"io/fs"
	"testing"

	helpdeskportal "github.com/target/helpdesk-portal"
)

// RequireTemplateRenderer creates a TemplateRenderer from the embedded templates.
func RequireTemplateRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	sub, err := fs.Sub(helpdeskportal.TemplateFS, TemplatePathFromRoot)
	if err != nil {
		t.Fatalf("templates sub-filesystem: %v", err)
	}
	tr, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: sub})
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	return tr
}

// Package helpdeskportal provides embedded assets for production builds.
package helpdeskportal

import "embed"

// In dev mode (IsDev=true) templates are loaded from disk for hot reloading.

//go:embed all:web/templates
var TemplateFS embed.FS

package httpx

import "github.com/target/helpdesk-portal/internal/domain/nav"

// Page templates.
const (
	PageLogin   = "login"
	PageLoading = "loading"
	PageDenied  = "denied"
	PageSection = "section"
)

// Template paths used for loading templates in tests and dev mode.
const (
	TemplatePathFromRoot = "web/templates"
	TemplatePathFromTest = "../../web/templates"
)

const (
	// LoginPath is where unauthenticated browsers are sent.
	LoginPath = "/login"
	// HomePath is the landing page after sign-in.
	HomePath = nav.PathDashboard

	// loadingRefreshSeconds is how often the loading page polls.
	loadingRefreshSeconds = 1
)

var sectionTitles = map[string]string{
	nav.PathDashboard: "Dashboard",
	nav.PathTickets:   "Tickets",
	nav.PathUsers:     "Users",
	nav.PathEquipment: "Equipment",
	nav.PathProfile:   "Profile",
}

// SectionTitle returns the heading for a section path.
func SectionTitle(section string) string {
	if t, ok := sectionTitles[section]; ok {
		return t
	}
	return "Help Desk"
}

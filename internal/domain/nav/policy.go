// Package nav holds the role-based navigation policy: which menu entries each
// role sees and which paths each role may open.
package nav

import (
	"fmt"
	"path"
	"strings"

	domainauth "github.com/target/helpdesk-portal/internal/domain/auth"
)

// MenuItem is one entry of a role's navigation menu.
type MenuItem struct {
	Label string `json:"label"`
	Path  string `json:"path"`
	Icon  string `json:"icon,omitempty"`
}

// Section paths of the console.
const (
	PathDashboard = "/dashboard"
	PathTickets   = "/tickets"
	PathUsers     = "/users"
	PathEquipment = "/equipment"
	PathProfile   = "/profile"
)

var (
	itemDashboard = MenuItem{Label: "Dashboard", Path: PathDashboard, Icon: "dashboard"}
	itemTickets   = MenuItem{Label: "Tickets", Path: PathTickets, Icon: "bug_report"}
	itemUsers     = MenuItem{Label: "Users", Path: PathUsers, Icon: "people"}
	itemEquipment = MenuItem{Label: "Equipment", Path: PathEquipment, Icon: "computer"}
	itemProfile   = MenuItem{Label: "Profile", Path: PathProfile, Icon: "person"}
)

// Policy maps roles to menus and permitted paths. It is immutable after construction.
type Policy struct {
	menus     map[domainauth.Role][]MenuItem
	permitted map[domainauth.Role][]string
	sections  []string
}

// NewPolicy builds a policy. Every role's menu paths must be permitted for that
// role; permitted may add paths that have no menu entry.
func NewPolicy(menus map[domainauth.Role][]MenuItem, permitted map[domainauth.Role][]string) (*Policy, error) {
	p := &Policy{
		menus:     make(map[domainauth.Role][]MenuItem, len(menus)),
		permitted: make(map[domainauth.Role][]string, len(permitted)),
	}
	seen := make(map[string]struct{})

	for _, role := range domainauth.AllRoles {
		paths := make([]string, 0, len(permitted[role]))
		for _, raw := range permitted[role] {
			cp := cleanPath(raw)
			paths = append(paths, cp)
			if _, ok := seen[cp]; !ok {
				seen[cp] = struct{}{}
				p.sections = append(p.sections, cp)
			}
		}
		p.permitted[role] = paths

		items := make([]MenuItem, 0, len(menus[role]))
		for _, item := range menus[role] {
			item.Path = cleanPath(item.Path)
			if !containsPath(paths, item.Path) {
				return nil, fmt.Errorf("menu entry %q for role %s is not a permitted path", item.Path, role)
			}
			items = append(items, item)
		}
		p.menus[role] = items
	}

	for role := range menus {
		if !role.Valid() {
			return nil, fmt.Errorf("unknown role %q in menu table", role)
		}
	}
	for role := range permitted {
		if !role.Valid() {
			return nil, fmt.Errorf("unknown role %q in permission table", role)
		}
	}

	return p, nil
}

// Default returns the console's standard policy.
func Default() *Policy {
	menus := map[domainauth.Role][]MenuItem{
		domainauth.RoleAdmin:      {itemDashboard, itemTickets, itemUsers, itemEquipment, itemProfile},
		domainauth.RoleTechnician: {itemDashboard, itemTickets, itemEquipment, itemProfile},
		domainauth.RoleEmployee:   {itemDashboard, itemTickets, itemProfile},
	}
	permitted := make(map[domainauth.Role][]string, len(menus))
	for role, items := range menus {
		for _, item := range items {
			permitted[role] = append(permitted[role], item.Path)
		}
	}
	p, err := NewPolicy(menus, permitted)
	if err != nil {
		panic(err)
	}
	return p
}

// MenuFor returns the ordered menu for role. Unknown roles get the EMPLOYEE menu.
func (p *Policy) MenuFor(role domainauth.Role) []MenuItem {
	items, ok := p.menus[role]
	if !ok {
		items = p.menus[domainauth.RoleEmployee]
	}
	out := make([]MenuItem, len(items))
	copy(out, items)
	return out
}

// IsPathPermitted reports whether role may open urlPath. A permitted section
// also covers its sub-paths. Unknown roles are denied.
func (p *Policy) IsPathPermitted(role domainauth.Role, urlPath string) bool {
	section, ok := p.sectionOf(urlPath)
	if !ok {
		return false
	}
	return containsPath(p.permitted[role], section)
}

// RequiredRoles returns the roles permitted to open urlPath, or the empty set
// when the path belongs to no section.
func (p *Policy) RequiredRoles(urlPath string) domainauth.RoleSet {
	section, ok := p.sectionOf(urlPath)
	if !ok {
		return domainauth.RoleSet{}
	}
	var roles []domainauth.Role
	for _, role := range domainauth.AllRoles {
		if containsPath(p.permitted[role], section) {
			roles = append(roles, role)
		}
	}
	return domainauth.NewRoleSet(roles...)
}

// Sections returns every guarded section path in first-seen order.
func (p *Policy) Sections() []string {
	out := make([]string, len(p.sections))
	copy(out, p.sections)
	return out
}

// IsSection reports whether urlPath falls under a guarded section.
func (p *Policy) IsSection(urlPath string) bool {
	_, ok := p.sectionOf(urlPath)
	return ok
}

func (p *Policy) sectionOf(urlPath string) (string, bool) {
	cp := cleanPath(urlPath)
	for _, s := range p.sections {
		if cp == s || strings.HasPrefix(cp, s+"/") {
			return s, true
		}
	}
	return "", false
}

func cleanPath(raw string) string {
	if raw == "" {
		return "/"
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return path.Clean(raw)
}

func containsPath(paths []string, want string) bool {
	for _, p := range paths {
		if p == want {
			return true
		}
	}
	return false
}

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in     string
		want   Role
		wantOK bool
	}{
		{"ADMIN", RoleAdmin, true},
		{"admin", RoleAdmin, true},
		{" Technician ", RoleTechnician, true},
		{"employee", RoleEmployee, true},
		{"USER", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeRole_DegradesUnknownToEmployee(t *testing.T) {
	assert.Equal(t, RoleEmployee, NormalizeRole("SUPERUSER"))
	assert.Equal(t, RoleEmployee, NormalizeRole(""))
	assert.Equal(t, RoleTechnician, NormalizeRole("technician"))
}

func TestRole_DisplayName(t *testing.T) {
	assert.Equal(t, "Administrator", RoleAdmin.DisplayName())
	assert.Equal(t, "Technician", RoleTechnician.DisplayName())
	assert.Equal(t, "Employee", RoleEmployee.DisplayName())
	assert.Equal(t, "Unknown", Role("").DisplayName())
}

func TestRoleSet(t *testing.T) {
	set := NewRoleSet(RoleTechnician, RoleAdmin, Role("GUEST"))

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains(RoleAdmin))
	assert.True(t, set.Contains(RoleTechnician))
	assert.False(t, set.Contains(RoleEmployee))
	assert.Equal(t, []Role{RoleAdmin, RoleTechnician}, set.Roles())
	assert.Equal(t, "ADMIN or TECHNICIAN", set.String())

	var empty RoleSet
	assert.True(t, empty.IsEmpty())
	assert.False(t, empty.Contains(RoleAdmin))
	assert.Empty(t, empty.String())

	assert.Equal(t, NewRoleSet(RoleAdmin), ParseRoleSet("admin", "nobody"))
}

func TestSession_ExpiringWithin(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	soon := Session{Token: "t", ExpiresAt: now.Add(4 * time.Minute)}
	later := Session{Token: "t", ExpiresAt: now.Add(6 * time.Minute)}

	assert.True(t, soon.ExpiringWithin(now, 5*time.Minute))
	assert.False(t, later.ExpiringWithin(now, 5*time.Minute))
	assert.False(t, later.Expired(now))
	assert.True(t, later.Expired(now.Add(6*time.Minute)))
}

func TestState_CloneDoesNotShareUser(t *testing.T) {
	st := State{User: &User{ID: "1", Role: RoleAdmin}, IsAuthenticated: true}
	cp := st.Clone()
	cp.User.Role = RoleEmployee

	assert.Equal(t, RoleAdmin, st.User.Role)
	assert.Equal(t, RoleAdmin, st.Role())
	assert.Equal(t, Role(""), State{}.Role())
}

// Package authroles maps directory groups onto application roles.
package authroles

import (
	domainauth "github.com/dealerops/rentd/internal/domain/auth"
)

// StaticRoleMapper maps groups by exact group-name membership.
// Admin wins over agent when a user carries both groups.
type StaticRoleMapper struct {
	AdminGroup string
	AgentGroup string
}

// Map returns the role for the given directory groups.
func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	for _, g := range groups {
		if m.AdminGroup != "" && g == m.AdminGroup {
			return domainauth.RoleAdmin
		}
	}
	for _, g := range groups {
		if m.AgentGroup != "" && g == m.AgentGroup {
			return domainauth.RoleAgent
		}
	}
	return domainauth.RoleGuest
}

// Package authroles maps identity-provider groups to market roles.
package authroles

import (
	"slices"

	domainauth "github.com/target/workmarket/internal/domain/auth"
)

// StaticRoleMapper grants roles by exact group membership. Admin wins over
// agent. With AgentGroup empty every caller who is not an admin is an agent,
// otherwise callers outside both groups are guests. An empty AdminGroup never
// matches.
type StaticRoleMapper struct {
	AdminGroup string
	AgentGroup string
}

func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	switch {
	case m.AdminGroup != "" && slices.Contains(groups, m.AdminGroup):
		return domainauth.RoleAdmin
	case m.AgentGroup == "", slices.Contains(groups, m.AgentGroup):
		return domainauth.RoleAgent
	default:
		return domainauth.RoleGuest
	}
}

package domain

import "github.com/google/uuid"

// Principal is the authenticated view of a user, resolved fresh on every
// request. It never carries credentials.
type Principal struct {
	UserID   uuid.UUID   `json:"userId"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	FullName *string     `json:"fullName,omitempty"`
	Groups   []string    `json:"groups"`
	GroupIDs []uuid.UUID `json:"groupIds"`
}

// IsInGroup is a case-sensitive membership test on group names.
func (p *Principal) IsInGroup(name string) bool {
	if p == nil {
		return false
	}
	for _, g := range p.Groups {
		if g == name {
			return true
		}
	}
	return false
}

// IsAdmin reports membership in the admin group.
func (p *Principal) IsAdmin() bool {
	return p.IsInGroup(AdminGroupName)
}

// NewPrincipal builds the view of user given its resolved groups.
func NewPrincipal(user *User, groups []*UserGroup) *Principal {
	p := &Principal{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Groups:   make([]string, 0, len(groups)),
		GroupIDs: make([]uuid.UUID, 0, len(groups)),
	}
	for _, g := range groups {
		p.Groups = append(p.Groups, g.Name)
		p.GroupIDs = append(p.GroupIDs, g.ID)
	}
	return p
}

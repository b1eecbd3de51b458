package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID   `json:"userId" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Username     string      `json:"username" gorm:"uniqueIndex;not null"`
	Email        string      `json:"email" gorm:"uniqueIndex;not null"`
	FullName     *string     `json:"fullName,omitempty"`
	PasswordHash string      `json:"-" gorm:"not null"`
	GroupIDs     []uuid.UUID `json:"groupIds" gorm:"-"`
	IsActive     bool        `json:"isActive" gorm:"not null;index"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	CreatedBy    *uuid.UUID  `json:"createdBy,omitempty" gorm:"type:uuid"`
	LastLogin    *time.Time  `json:"lastLogin,omitempty"`
}

// HasGroup reports whether id is one of the user's memberships.
func (u *User) HasGroup(id uuid.UUID) bool {
	for _, g := range u.GroupIDs {
		if g == id {
			return true
		}
	}
	return false
}

// GroupMembership is the join between users and groups. The composite
// primary key gives set semantics; deleting a user drops its memberships,
// deleting a referenced group is refused by the database.
type GroupMembership struct {
	UserID    uuid.UUID  `gorm:"type:uuid;primaryKey"`
	GroupID   uuid.UUID  `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time
	User      *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Group     *UserGroup `gorm:"foreignKey:GroupID;constraint:OnDelete:RESTRICT"`
}

func (GroupMembership) TableName() string {
	return "group_memberships"
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims email and checks it looks like an address.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return "", NewValidationError("invalid email format")
	}
	return email, nil
}

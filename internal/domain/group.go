package domain

import (
	"time"

	"github.com/google/uuid"
)

// AdminGroupName is the distinguished group whose members may use the admin API.
const AdminGroupName = "admin"

type UserGroup struct {
	ID          uuid.UUID  `json:"groupId" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string     `json:"name" gorm:"uniqueIndex;not null"`
	Description string     `json:"description"`
	IsActive    bool       `json:"isActive" gorm:"not null;index"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CreatedBy   *uuid.UUID `json:"createdBy,omitempty" gorm:"type:uuid"`
}

package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DocumentMetadata is free-form information an admin attaches to a document.
type DocumentMetadata struct {
	FileCount *int     `json:"fileCount,omitempty"`
	Size      *int64   `json:"size,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Category  string   `json:"category,omitempty"`
}

// Document is the registered record for one folder of the document store.
// ID is the folder name. GroupIDs is the ACL; an empty ACL grants nobody.
type Document struct {
	ID          string                               `json:"documentId" gorm:"primaryKey"`
	Name        string                               `json:"name" gorm:"not null"`
	Description *string                              `json:"description,omitempty"`
	FilePath    string                               `json:"filePath" gorm:"not null"`
	GroupIDs    []uuid.UUID                          `json:"permissions" gorm:"-"`
	Metadata    datatypes.JSONType[DocumentMetadata] `json:"metadata"`
	IsActive    bool                                 `json:"isActive" gorm:"not null;index"`
	CreatedAt   time.Time                            `json:"createdAt"`
	UpdatedAt   time.Time                            `json:"updatedAt"`
	CreatedBy   *uuid.UUID                           `json:"createdBy,omitempty" gorm:"type:uuid"`
}

// PermitsAny reports whether any of groupIDs is in the ACL.
func (d *Document) PermitsAny(groupIDs []uuid.UUID) bool {
	if len(d.GroupIDs) == 0 || len(groupIDs) == 0 {
		return false
	}
	acl := make(map[uuid.UUID]struct{}, len(d.GroupIDs))
	for _, id := range d.GroupIDs {
		acl[id] = struct{}{}
	}
	for _, id := range groupIDs {
		if _, ok := acl[id]; ok {
			return true
		}
	}
	return false
}

// DocumentPermission is one ACL entry.
type DocumentPermission struct {
	DocumentID string     `gorm:"primaryKey"`
	GroupID    uuid.UUID  `gorm:"type:uuid;primaryKey;index"`
	CreatedAt  time.Time
	Document   *Document  `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
	Group      *UserGroup `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

func (DocumentPermission) TableName() string {
	return "document_permissions"
}

// DocumentSummary is what an end user sees in the document listing.
type DocumentSummary struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   *string  `json:"description,omitempty"`
	HasOutputTree bool     `json:"hasOutputTree"`
	HasPDF        bool     `json:"hasPdf"`
	Tags          []string `json:"tags,omitempty"`
}

// ValidateDocumentID rejects identifiers that are not a single, visible path
// segment. Document ids are used to build filesystem paths.
func ValidateDocumentID(id string) error {
	switch {
	case id == "":
		return NewValidationError("document id is required")
	case id == "." || id == "..":
		return NewValidationError("invalid document id")
	case strings.HasPrefix(id, "."):
		return NewValidationError("invalid document id")
	case strings.ContainsAny(id, `/\`+"\x00"):
		return NewValidationError("invalid document id")
	}
	return nil
}

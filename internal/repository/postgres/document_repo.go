package postgres

import (
	"context"

	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *documentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *domain.Document) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		return insertPermissions(tx, doc.ID, doc.GroupIDs)
	})
	return translate(err)
}

func (r *documentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	if err := r.loadPermissions(ctx, []*domain.Document{&doc}); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Document, error) {
	var docs []*domain.Document
	q := r.db.WithContext(ctx).Order("id ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&docs).Error; err != nil {
		return nil, err
	}
	if err := r.loadPermissions(ctx, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepository) ListByGroupIDs(ctx context.Context, groupIDs []uuid.UUID) ([]*domain.Document, error) {
	docs := []*domain.Document{}
	if len(groupIDs) == 0 {
		return docs, nil
	}
	permitted := r.db.Model(&domain.DocumentPermission{}).
		Select("document_id").
		Where("group_id IN ?", groupIDs)
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("id IN (?)", permitted).
		Order("id ASC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	if err := r.loadPermissions(ctx, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepository) loadPermissions(ctx context.Context, docs []*domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Document, len(docs))
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		d.GroupIDs = []uuid.UUID{}
		byID[d.ID] = d
		ids = append(ids, d.ID)
	}

	var rows []domain.DocumentPermission
	err := r.db.WithContext(ctx).
		Where("document_id IN ?", ids).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return err
	}
	for _, row := range rows {
		if d, ok := byID[row.DocumentID]; ok {
			d.GroupIDs = append(d.GroupIDs, row.GroupID)
		}
	}
	return nil
}

func (r *documentRepository) Update(ctx context.Context, doc *domain.Document) error {
	return translate(updateRow(r.db.WithContext(ctx), doc))
}

func (r *documentRepository) AddPermission(ctx context.Context, documentID string, groupID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.DocumentPermission{DocumentID: documentID, GroupID: groupID})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *documentRepository) RemovePermission(ctx context.Context, documentID string, groupID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&domain.DocumentPermission{}, "document_id = ? AND group_id = ?", documentID, groupID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *documentRepository) ReplacePermissions(ctx context.Context, documentID string, groupIDs []uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc domain.Document
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&doc, "id = ?", documentID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.DocumentPermission{}, "document_id = ?", documentID).Error; err != nil {
			return err
		}
		if err := insertPermissions(tx, documentID, groupIDs); err != nil {
			return err
		}
		return tx.Model(&doc).UpdateColumn("updated_at", gorm.Expr("NOW()")).Error
	})
	return translate(err)
}

func insertPermissions(tx *gorm.DB, documentID string, groupIDs []uuid.UUID) error {
	if len(groupIDs) == 0 {
		return nil
	}
	rows := make([]domain.DocumentPermission, 0, len(groupIDs))
	for _, gid := range groupIDs {
		rows = append(rows, domain.DocumentPermission{DocumentID: documentID, GroupID: gid})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

var _ repository.DocumentRepository = (*documentRepository)(nil)

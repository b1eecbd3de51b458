package postgres

import (
	"context"
	"errors"

	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type groupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *groupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, group *domain.UserGroup) error {
	return translate(r.db.WithContext(ctx).Create(group).Error)
}

func (r *groupRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserGroup, error) {
	var group domain.UserGroup
	if err := r.db.WithContext(ctx).First(&group, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

func (r *groupRepository) GetByName(ctx context.Context, name string) (*domain.UserGroup, error) {
	var group domain.UserGroup
	if err := r.db.WithContext(ctx).First(&group, "name = ?", name).Error; err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

func (r *groupRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.UserGroup, error) {
	groups := []*domain.UserGroup{}
	if len(ids) == 0 {
		return groups, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("name ASC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *groupRepository) List(ctx context.Context, activeOnly bool) ([]*domain.UserGroup, error) {
	var groups []*domain.UserGroup
	q := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *groupRepository) Update(ctx context.Context, group *domain.UserGroup) error {
	return translate(updateRow(r.db.WithContext(ctx), group))
}

// Delete locks the group row, refuses while memberships exist, and removes
// the ACL entries naming the group along with it.
func (r *groupRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group domain.UserGroup
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&group, "id = ?", id).Error
		if err != nil {
			return err
		}

		var refs int64
		if err := tx.Model(&domain.GroupMembership{}).Where("group_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return repository.ErrReferenced
		}

		if err := tx.Delete(&domain.DocumentPermission{}, "group_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.UserGroup{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		err = translate(err)
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return deleted, nil
}

var _ repository.GroupRepository = (*groupRepository)(nil)

package postgres

import (
	"context"
	"time"

	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return insertMemberships(tx, user.ID, user.GroupIDs)
	})
	return translate(err)
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *userRepository) first(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, query, arg).Error; err != nil {
		return nil, translate(err)
	}
	if err := r.loadGroups(ctx, []*domain.User{&user}); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, activeOnly bool) ([]*domain.User, error) {
	var users []*domain.User
	q := r.db.WithContext(ctx).Order("username ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	if err := r.loadGroups(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) loadGroups(ctx context.Context, users []*domain.User) error {
	if len(users) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.User, len(users))
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		u.GroupIDs = []uuid.UUID{}
		byID[u.ID] = u
		ids = append(ids, u.ID)
	}

	var rows []domain.GroupMembership
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", ids).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return err
	}
	for _, row := range rows {
		if u, ok := byID[row.UserID]; ok {
			u.GroupIDs = append(u.GroupIDs, row.GroupID)
		}
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	return translate(updateRow(r.db.WithContext(ctx), user))
}

func (r *userRepository) UpdateWithGroups(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateRow(tx, user); err != nil {
			return err
		}
		if err := tx.Delete(&domain.GroupMembership{}, "user_id = ?", user.ID).Error; err != nil {
			return err
		}
		return insertMemberships(tx, user.ID, user.GroupIDs)
	})
	return translate(err)
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login", at).Error
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&domain.User{}, "id = ?", id)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) AddGroup(ctx context.Context, userID, groupID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.GroupMembership{UserID: userID, GroupID: groupID})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) RemoveGroup(ctx context.Context, userID, groupID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&domain.GroupMembership{}, "user_id = ? AND group_id = ?", userID, groupID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) CountByGroup(ctx context.Context, groupID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&domain.GroupMembership{}).
		Where("group_id = ?", groupID).
		Count(&n).Error
	return n, err
}

func insertMemberships(tx *gorm.DB, userID uuid.UUID, groupIDs []uuid.UUID) error {
	if len(groupIDs) == 0 {
		return nil
	}
	rows := make([]domain.GroupMembership, 0, len(groupIDs))
	for _, gid := range groupIDs {
		rows = append(rows, domain.GroupMembership{UserID: userID, GroupID: gid})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

var _ repository.UserRepository = (*userRepository)(nil)

package postgres

import (
	"context"
	"time"

	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	return translate(r.db.WithContext(ctx).Create(session).Error)
}

func (r *sessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).First(&session, "token_hash = ?", tokenHash).Error
	if err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (r *sessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&domain.Session{}, "token_hash = ?", tokenHash)
	return res.RowsAffected > 0, res.Error
}

func (r *sessionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&domain.Session{}, "user_id = ?", userID)
	return res.RowsAffected, res.Error
}

func (r *sessionRepository) DeleteByUserIDExcept(ctx context.Context, userID uuid.UUID, keepTokenHash string) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&domain.Session{}, "user_id = ? AND token_hash <> ?", userID, keepTokenHash)
	return res.RowsAffected, res.Error
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&domain.Session{}, "expires_at <= ?", now)
	return res.RowsAffected, res.Error
}

var _ repository.SessionRepository = (*sessionRepository)(nil)

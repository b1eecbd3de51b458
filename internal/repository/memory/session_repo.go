package memory

import (
	"context"
	"time"

	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/repository"
	"github.com/google/uuid"
)

type sessionRepository struct {
	s *Store
}

// Sessions are keyed by token hash, which is unique.
func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.sessions[session.TokenHash]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := r.s.users[session.UserID]; !ok {
		return repository.ErrReferenced
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = r.s.now()
	}
	stored := *session
	stored.User = nil
	r.s.sessions[session.TokenHash] = &stored
	return nil
}

func (r *sessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sess, ok := r.s.sessions[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *sess
	return &out, nil
}

func (r *sessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.sessions[tokenHash]; !ok {
		return false, nil
	}
	delete(r.s.sessions, tokenHash)
	return true, nil
}

func (r *sessionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.deleteWhere(func(sess *domain.Session) bool { return sess.UserID == userID }), nil
}

func (r *sessionRepository) DeleteByUserIDExcept(ctx context.Context, userID uuid.UUID, keepTokenHash string) (int64, error) {
	return r.deleteWhere(func(sess *domain.Session) bool {
		return sess.UserID == userID && sess.TokenHash != keepTokenHash
	}), nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(func(sess *domain.Session) bool { return sess.Expired(now) }), nil
}

func (r *sessionRepository) deleteWhere(match func(*domain.Session) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for h, sess := range r.s.sessions {
		if match(sess) {
			delete(r.s.sessions, h)
			n++
		}
	}
	return n
}

var _ repository.SessionRepository = (*sessionRepository)(nil)

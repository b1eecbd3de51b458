// Package memory is an in-process store with the same semantics as the
// postgres repositories. It backs STORE=memory and the service tests.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/repository"
	"github.com/google/uuid"
)

type membershipKey struct {
	userID  uuid.UUID
	groupID uuid.UUID
}

type permissionKey struct {
	documentID string
	groupID    uuid.UUID
}

// Store holds every table behind one lock so multi-table operations are atomic.
type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	users       map[uuid.UUID]*domain.User
	groups      map[uuid.UUID]*domain.UserGroup
	memberships map[membershipKey]time.Time
	sessions    map[string]*domain.Session
	documents   map[string]*domain.Document
	permissions map[permissionKey]time.Time
	seq         int64
}

func NewStore() *Store {
	return &Store{
		now:         time.Now,
		users:       make(map[uuid.UUID]*domain.User),
		groups:      make(map[uuid.UUID]*domain.UserGroup),
		memberships: make(map[membershipKey]time.Time),
		sessions:    make(map[string]*domain.Session),
		documents:   make(map[string]*domain.Document),
		permissions: make(map[permissionKey]time.Time),
	}
}

func NewRepositories() *repository.Repositories {
	return NewStore().Repositories()
}

func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:     &userRepository{s: s},
		Group:    &groupRepository{s: s},
		Session:  &sessionRepository{s: s},
		Document: &documentRepository{s: s},
	}
}

// stamp returns a strictly increasing time so insertion order is preserved
// even when the clock does not advance between calls.
func (s *Store) stamp() time.Time {
	s.seq++
	return s.now().Add(time.Duration(s.seq))
}

func (s *Store) groupIDsOfUser(userID uuid.UUID) []uuid.UUID {
	type entry struct {
		id uuid.UUID
		at time.Time
	}
	var entries []entry
	for k, at := range s.memberships {
		if k.userID == userID {
			entries = append(entries, entry{k.groupID, at})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.id)
	}
	return ids
}

func (s *Store) groupIDsOfDocument(documentID string) []uuid.UUID {
	type entry struct {
		id uuid.UUID
		at time.Time
	}
	var entries []entry
	for k, at := range s.permissions {
		if k.documentID == documentID {
			entries = append(entries, entry{k.groupID, at})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.id)
	}
	return ids
}

func (s *Store) copyUser(u *domain.User) *domain.User {
	out := *u
	out.GroupIDs = s.groupIDsOfUser(u.ID)
	return &out
}

func (s *Store) copyDocument(d *domain.Document) *domain.Document {
	out := *d
	out.GroupIDs = s.groupIDsOfDocument(d.ID)
	return &out
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

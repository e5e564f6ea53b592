package siteuser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "github.com/tendant/siteuser/pkg/errors"
)

type naturalKey struct {
	externalID string
	siteID     int64
}

// InMemoryRepository implements Repository using in-memory storage
type InMemoryRepository struct {
	users  map[int64]*User
	byKey  map[naturalKey]int64
	nextID int64
	mutex  sync.RWMutex
}

// NewInMemoryRepository creates a new in-memory user repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users: make(map[int64]*User),
		byKey: make(map[naturalKey]int64),
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, u *User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := naturalKey{u.ExternalID, u.SiteID}
	if _, exists := r.byKey[key]; exists {
		return apperrors.AlreadyExists("user", fmt.Sprintf("%s@site %d", u.ExternalID, u.SiteID))
	}

	r.nextID++
	u.ID = r.nextID
	r.users[u.ID] = u.clone()
	r.byKey[key] = u.ID
	return nil
}

func (r *InMemoryRepository) GetByNaturalKey(ctx context.Context, externalID string, siteID int64) (*User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, ok := r.byKey[naturalKey{externalID, siteID}]
	if !ok {
		return nil, apperrors.NotFound("user", fmt.Sprintf("%s@site %d", externalID, siteID))
	}
	return r.users[id].clone(), nil
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string, siteID int64) (*User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var found *User
	for _, u := range r.users {
		if u.SiteID == siteID && strings.EqualFold(u.Email, email) && (found == nil || u.ID < found.ID) {
			found = u
		}
	}
	if found == nil {
		return nil, apperrors.NotFound("user", email)
	}
	return found.clone(), nil
}

func (r *InMemoryRepository) Update(ctx context.Context, u *User) error {
	return r.modify(u.ID, func(stored *User) {
		stored.Password = u.Password
		stored.IsStaff = u.IsStaff
		stored.IsSuperuser = u.IsSuperuser
		stored.IsActive = u.IsActive
		stored.LastLogin = u.clone().LastLogin
		stored.ModifiedAt = u.ModifiedAt
	})
}

func (r *InMemoryRepository) UpdatePassword(ctx context.Context, id int64, encoded string, at time.Time) error {
	return r.modify(id, func(stored *User) {
		stored.Password = encoded
		stored.ModifiedAt = at
	})
}

func (r *InMemoryRepository) UpdateEmail(ctx context.Context, id int64, email string, at time.Time) error {
	return r.modify(id, func(stored *User) {
		stored.Email = email
		stored.ModifiedAt = at
	})
}

func (r *InMemoryRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.modify(id, func(stored *User) {
		stored.LastLogin = &at
	})
}

func (r *InMemoryRepository) Close() error { return nil }

func (r *InMemoryRepository) modify(id int64, apply func(*User)) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored, ok := r.users[id]
	if !ok {
		return apperrors.NotFound("user", fmt.Sprintf("id %d", id))
	}
	apply(stored)
	return nil
}

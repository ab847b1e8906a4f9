// Package memory provides an in-memory UserStore used by tests and local
// development. A single mutex serializes record updates, giving the same
// per-record atomicity guarantee as the row-locked PostgreSQL store.
package memory

import (
	"context"
	"sync"

	"passport/internal/domain/entity"
	"passport/internal/domain/repository"

	"github.com/google/uuid"
)

type userStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*entity.User
	byEmail map[string]uuid.UUID
}

// NewUserStore is the constructor for the in-memory userStore.
func NewUserStore() repository.UserStore {
	return &userStore{
		byID:    make(map[uuid.UUID]*entity.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (store *userStore) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	user, ok := store.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return cloneUser(user), nil
}

func (store *userStore) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	id, ok := store.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return cloneUser(store.byID[id]), nil
}

func (store *userStore) FindBySessionToken(_ context.Context, token string) (*entity.User, error) {
	return store.findByToken(func(u *entity.User) *string { return u.SessionToken }, token)
}

func (store *userStore) FindByResetToken(_ context.Context, token string) (*entity.User, error) {
	return store.findByToken(func(u *entity.User) *string { return u.ResetToken }, token)
}

func (store *userStore) findByToken(field func(*entity.User) *string, token string) (*entity.User, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	for _, user := range store.byID {
		if value := field(user); value != nil && *value == token {
			return cloneUser(user), nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (store *userStore) Add(_ context.Context, email, hashedPassword string) (*entity.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, exists := store.byEmail[email]; exists {
		return nil, repository.ErrEmailExists
	}

	user := &entity.User{
		ID:             uuid.New(),
		Email:          email,
		HashedPassword: hashedPassword,
	}
	store.byID[user.ID] = user
	store.byEmail[email] = user.ID

	return cloneUser(user), nil
}

func (store *userStore) Update(_ context.Context, id uuid.UUID, patch repository.UserPatch) error {
	if patch.Empty() {
		return repository.ErrEmptyPatch
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}

	if patch.SetSessionToken {
		user.SessionToken = cloneToken(patch.SessionToken)
	}
	if patch.SetResetToken {
		user.ResetToken = cloneToken(patch.ResetToken)
	}
	if patch.SetHashedPassword {
		user.HashedPassword = patch.HashedPassword
	}

	return nil
}

// cloneUser returns a detached copy so callers can't mutate stored state.
func cloneUser(user *entity.User) *entity.User {
	if user == nil {
		return nil
	}

	cloned := *user
	cloned.SessionToken = cloneToken(user.SessionToken)
	cloned.ResetToken = cloneToken(user.ResetToken)

	return &cloned
}

func cloneToken(token *string) *string {
	if token == nil {
		return nil
	}

	value := *token

	return &value
}

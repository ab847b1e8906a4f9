// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userStore implements the repository.UserStore interface using GORM.
type userStore struct {
	db *gorm.DB
}

// NewUserStore is the constructor for userStore.
// It returns the store as a repository.UserStore interface, adhering to dependency inversion.
func NewUserStore(db *gorm.DB) repository.UserStore {
	return &userStore{db: db}
}

// FindByID retrieves a single user by their store-assigned ID.
func (store *userStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return store.findOne(ctx, "id = ?", id)
}

// FindByEmail retrieves a single user by their email address.
func (store *userStore) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return store.findOne(ctx, "email = ?", email)
}

// FindBySessionToken retrieves the user holding the given session token.
func (store *userStore) FindBySessionToken(ctx context.Context, token string) (*entity.User, error) {
	return store.findOne(ctx, "session_token = ?", token)
}

// FindByResetToken retrieves the user holding the given reset token.
func (store *userStore) FindByResetToken(ctx context.Context, token string) (*entity.User, error) {
	return store.findOne(ctx, "reset_token = ?", token)
}

func (store *userStore) findOne(ctx context.Context, cond string, value any) (*entity.User, error) {
	var userM model.UserModel
	err := store.db.WithContext(ctx).Where(cond, value).First(&userM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user")
	}

	return toUserDomain(&userM), nil
}

// Add persists a new user record and returns it with the generated ID.
// The store still carries a unique constraint on email as a backstop even
// though the service pre-checks existence.
func (store *userStore) Add(ctx context.Context, email, hashedPassword string) (*entity.User, error) {
	userM := &model.UserModel{
		Email:          email,
		HashedPassword: hashedPassword,
	}

	if err := store.db.WithContext(ctx).Create(userM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return nil, repository.ErrEmailExists
		}
		if isNotNullConstraintViolation(err) {
			return nil, domainerrors.NewStoreExecuteError(err, "missing required user fields")
		}

		return nil, domainerrors.NewStoreExecuteError(err, "failed to create user")
	}

	return toUserDomain(userM), nil
}

// Update applies the patch to a single user row. The row is locked FOR UPDATE
// inside a transaction so two concurrent patches of the same user cannot
// interleave partial field writes.
func (store *userStore) Update(ctx context.Context, id uuid.UUID, patch repository.UserPatch) error {
	if patch.Empty() {
		return repository.ErrEmptyPatch
	}

	updates := make(map[string]any, 3)
	if patch.SetSessionToken {
		updates["session_token"] = patch.SessionToken
	}
	if patch.SetResetToken {
		updates["reset_token"] = patch.ResetToken
	}
	if patch.SetHashedPassword {
		updates["hashed_password"] = patch.HashedPassword
	}

	err := store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var userM model.UserModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&userM).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrUserNotFound
			}

			return errors.Wrap(err, "failed to lock user row")
		}

		if err := tx.Model(&model.UserModel{}).
			Where("id = ?", id).
			Updates(updates).Error; err != nil {
			return domainerrors.NewStoreExecuteError(err, "failed to update user")
		}

		return nil
	})

	return err
}

// --- Mapper Functions ---

// toUserDomain converts a GORM UserModel to a domain User entity.
func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	return &entity.User{
		ID:             data.ID,
		Email:          data.Email,
		HashedPassword: data.HashedPassword,
		SessionToken:   data.SessionToken,
		ResetToken:     data.ResetToken,
		CreatedAt:      data.CreatedAt,
		UpdatedAt:      data.UpdatedAt,
	}
}

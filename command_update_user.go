package cms

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UpdateUserMessage applies a partial update. Nil fields are left as
// stored. The flag fields are honored only when AllowFlags is set,
// which handlers grant to superusers.
type UpdateUserMessage struct {
	UserID      uuid.UUID `json:"-"`
	Name        *string   `json:"name"`
	Email       *string   `json:"email"`
	Password    *string   `json:"password"`
	IsActive    *bool     `json:"is_active"`
	IsSuperuser *bool     `json:"is_superuser"`
	AllowFlags  bool      `json:"-"`
}

func (e UpdateUserMessage) Type() string { return "user.update" }

type UpdateUserHandler struct {
	repo RepositoryManager
}

func NewUpdateUserHandler(repo RepositoryManager) *UpdateUserHandler {
	return &UpdateUserHandler{repo: repo}
}

func (h *UpdateUserHandler) Execute(ctx context.Context, event UpdateUserMessage) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().Get(ctx, event.UserID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	if event.Name != nil {
		user.Name = *event.Name
	}

	if event.Email != nil {
		user.Email = *event.Email
	}

	if event.Password != nil {
		hash, err := HashPassword(*event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return nil, goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}
		user.PasswordHash = hash
	}

	if event.AllowFlags {
		if event.IsActive != nil {
			user.IsActive = *event.IsActive
		}
		if event.IsSuperuser != nil {
			user.IsSuperuser = *event.IsSuperuser
		}
	}

	now := time.Now().UTC()
	user.UpdatedAt = &now

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err = h.repo.Users().SaveTx(ctx, tx, user)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		if goerrors.IsNotFound(err) {
			return nil, ErrUserNotFound
		}

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user update transaction failed")
	}

	return user, nil
}

// Package accounts manages users and their credentials.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/pisarna/internal/apperr"
	"github.com/erazemk/pisarna/internal/audit"
	"github.com/erazemk/pisarna/internal/model"
	"github.com/erazemk/pisarna/internal/store"
)

var checker = validator.New()

// NewUser holds the fields for creating a user.
type NewUser struct {
	Name     string
	Email    string
	Role     string
	Password string
}

// UserPatch holds the fields of a partial user update. Nil fields are left
// unchanged. Password resets the user's password when set.
type UserPatch struct {
	Name     *string
	Email    *string
	Role     *string
	Password *string
}

// Service implements user management.
type Service struct {
	db   *sql.DB
	cost int
}

// New returns an accounts service backed by db.
func New(db *sql.DB) *Service {
	return &Service{db: db, cost: bcrypt.DefaultCost}
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]model.User, error) {
	return store.ListUsers(ctx, s.db)
}

// Get returns a user or a not-found error.
func (s *Service) Get(ctx context.Context, id int64) (*model.User, error) {
	u, err := store.GetUser(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user", id)
	}
	return u, nil
}

// Create adds a user. Emails are unique regardless of case.
func (s *Service) Create(ctx context.Context, adminID int64, nu NewUser) (*model.User, error) {
	u := model.User{Name: strings.TrimSpace(nu.Name), Email: store.NormalizeEmail(nu.Email), Role: nu.Role}
	if u.Role == "" {
		u.Role = model.RoleStaff
	}
	if err := validateUser(u); err != nil {
		return nil, err
	}
	hash, err := s.hash(nu.Password)
	if err != nil {
		return nil, err
	}

	var created *model.User
	err = store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		taken, err := store.EmailTaken(ctx, tx, u.Email, 0)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Duplicate("email", u.Email)
		}

		created, err = store.CreateUser(ctx, tx, u.Name, u.Email, hash, u.Role)
		if err != nil {
			return err
		}
		return audit.Record(ctx, tx, adminID, model.ActionAddUser,
			fmt.Sprintf("added %s %s (%s)", created.Role, created.Name, created.Email))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update merges patch into the user.
func (s *Service) Update(ctx context.Context, adminID, id int64, patch UserPatch) (*model.User, error) {
	var hash string
	if patch.Password != nil {
		var err error
		if hash, err = s.hash(*patch.Password); err != nil {
			return nil, err
		}
	}

	var updated *model.User
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		u, err := store.GetUser(ctx, tx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.NotFound("user", id)
		}

		if patch.Name != nil {
			u.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Email != nil {
			u.Email = store.NormalizeEmail(*patch.Email)
		}
		if patch.Role != nil {
			u.Role = *patch.Role
		}
		if err := validateUser(*u); err != nil {
			return err
		}

		taken, err := store.EmailTaken(ctx, tx, u.Email, u.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Duplicate("email", u.Email)
		}

		if err := store.UpdateUser(ctx, tx, u); err != nil {
			return err
		}
		if hash != "" {
			if err := store.UpdateUserPassword(ctx, tx, u.ID, hash); err != nil {
				return err
			}
		}

		updated = u
		return audit.Record(ctx, tx, adminID, model.ActionEditUser,
			fmt.Sprintf("edited user %s (%s)", u.Name, u.Email))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a user. An admin cannot delete their own account.
func (s *Service) Delete(ctx context.Context, adminID, id int64) error {
	if id == adminID {
		return apperr.SelfDelete(id)
	}
	return store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		u, err := store.GetUser(ctx, tx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.NotFound("user", id)
		}
		if err := store.DeleteUser(ctx, tx, id); err != nil {
			return err
		}
		return audit.Record(ctx, tx, adminID, model.ActionDeleteUser,
			fmt.Sprintf("deleted user %s (%s)", u.Name, u.Email))
	})
}

// Authenticate returns the user matching email and password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperr.Validation("email and password required")
	}
	u, err := store.GetUserByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, apperr.New(apperr.CodeUnauthorized, "invalid credentials")
	}
	return u, nil
}

// ChangePassword replaces a user's own password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return apperr.New(apperr.CodeUnauthorized, "current password is incorrect")
	}
	hash, err := s.hash(next)
	if err != nil {
		return err
	}
	return store.UpdateUserPassword(ctx, s.db, userID, hash)
}

func (s *Service) hash(password string) (string, error) {
	if err := model.ValidatePassword(password); err != nil {
		return "", apperr.Wrap(apperr.CodeValidation, err, err.Error()).With("field", "password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperr.Wrap(apperr.CodeValidation, err, "password too long").With("field", "password")
	}
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func validateUser(u model.User) error {
	if u.Name == "" {
		return apperr.Validation("name is required").With("field", "name")
	}
	if err := checker.Var(u.Email, "required,email"); err != nil {
		return apperr.Validation("a valid email is required").With("field", "email")
	}
	if !model.ValidRole(u.Role) {
		return apperr.Validation("unknown role").With("field", "role").With("role", u.Role)
	}
	return nil
}

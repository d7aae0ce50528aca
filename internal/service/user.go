package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/password"
	"github.com/taskdesk/taskdesk/internal/store"
)

// UserService manages accounts, authentication, and avatar files.
type UserService struct {
	db        *store.DB
	log       *zap.Logger
	avatarDir string
	security  model.SecurityConfig
}

// NewUserService creates the service and ensures the avatar upload
// directory exists under the store's data directory.
func NewUserService(db *store.DB, log *zap.Logger, security model.SecurityConfig) (*UserService, error) {
	avatarDir := filepath.Join(db.DataDir(), "uploads", "avatars")
	if err := os.MkdirAll(avatarDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating avatar directory %s: %w", avatarDir, err)
	}
	return &UserService{db: db, log: log, avatarDir: avatarDir, security: security}, nil
}

// CreateUserInput holds the fields for a new account.
type CreateUserInput struct {
	Username string
	Password string
	FullName string
	Email    string
	Role     string
	Avatar   string
}

// UpdateUserInput holds a partial account update; nil fields are left
// unchanged.
type UpdateUserInput struct {
	FullName *string
	Email    *string
	Role     *string
	Active   *bool
	Avatar   *string
}

// List returns all users with password hashes cleared.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := store.GetAll[model.User](ctx, s.db, store.Users)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = users[i].Sanitized()
	}
	return users, nil
}

// Get returns a single user by id, sanitized.
func (s *UserService) Get(ctx context.Context, id string) (model.User, error) {
	user, err := store.GetByID[model.User](ctx, s.db, store.Users, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.User{}, notFoundErr("user", id)
	}
	if err != nil {
		return model.User{}, err
	}
	return user.Sanitized(), nil
}

// Search returns users whose username, full name, or email contains the
// query, case-insensitively.
func (s *UserService) Search(ctx context.Context, query string) ([]model.User, error) {
	q := strings.ToLower(query)
	users, err := store.Find(ctx, s.db, store.Users, func(u model.User) bool {
		return strings.Contains(strings.ToLower(u.Username), q) ||
			strings.Contains(strings.ToLower(u.FullName), q) ||
			strings.Contains(strings.ToLower(u.Email), q)
	})
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = users[i].Sanitized()
	}
	return users, nil
}

// Create validates uniqueness of username and email, hashes the password,
// and stores the new account.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (model.User, error) {
	if strings.TrimSpace(in.Username) == "" {
		return model.User{}, validationErr("username", "must not be empty")
	}
	if len(in.Password) < s.security.MinPasswordLength {
		return model.User{}, validationErr("password",
			fmt.Sprintf("must be at least %d characters", s.security.MinPasswordLength))
	}
	if strings.TrimSpace(in.Email) == "" {
		return model.User{}, validationErr("email", "must not be empty")
	}
	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	if role != model.RoleAdmin && role != model.RoleUser {
		return model.User{}, validationErr("role", fmt.Sprintf("unknown role %q", role))
	}

	if err := s.checkUnique(ctx, "", in.Username, in.Email); err != nil {
		return model.User{}, err
	}

	hashed, err := password.Hash(in.Password, s.security.BcryptCost)
	if err != nil {
		return model.User{}, err
	}

	now := time.Now()
	user := model.User{
		Username:  in.Username,
		Password:  hashed,
		FullName:  in.FullName,
		Email:     in.Email,
		Role:      role,
		Active:    true,
		Avatar:    in.Avatar,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := store.Insert(ctx, s.db, store.Users, user)
	if err != nil {
		return model.User{}, err
	}

	s.log.Info("user created", zap.String("username", created.Username), zap.String("id", created.ID))
	return created.Sanitized(), nil
}

// Update merges the provided fields into an existing account,
// revalidating email uniqueness when the email changes.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (model.User, error) {
	existing, err := store.GetByID[model.User](ctx, s.db, store.Users, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.User{}, notFoundErr("user", id)
	}
	if err != nil {
		return model.User{}, err
	}

	partial := map[string]any{"updated_at": time.Now()}
	if in.FullName != nil {
		partial["full_name"] = *in.FullName
	}
	if in.Email != nil && *in.Email != existing.Email {
		if strings.TrimSpace(*in.Email) == "" {
			return model.User{}, validationErr("email", "must not be empty")
		}
		if err := s.checkUnique(ctx, id, "", *in.Email); err != nil {
			return model.User{}, err
		}
		partial["email"] = *in.Email
	}
	if in.Role != nil {
		if *in.Role != model.RoleAdmin && *in.Role != model.RoleUser {
			return model.User{}, validationErr("role", fmt.Sprintf("unknown role %q", *in.Role))
		}
		partial["role"] = *in.Role
	}
	if in.Active != nil {
		partial["active"] = *in.Active
	}
	if in.Avatar != nil {
		partial["avatar"] = *in.Avatar
	}

	updated, err := store.Update[model.User](ctx, s.db, store.Users, id, partial)
	if err != nil {
		return model.User{}, err
	}

	s.log.Info("user updated", zap.String("id", id))
	return updated.Sanitized(), nil
}

// ChangePassword verifies the current password and replaces it. The new
// password must differ from the old one and satisfy the minimum length.
func (s *UserService) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	user, err := store.GetByID[model.User](ctx, s.db, store.Users, id)
	if errors.Is(err, store.ErrNotFound) {
		return notFoundErr("user", id)
	}
	if err != nil {
		return err
	}

	if !password.Verify(user.Password, oldPassword) {
		return fmt.Errorf("current password mismatch: %w", ErrInvalidCredentials)
	}
	if password.Verify(user.Password, newPassword) {
		return validationErr("password", "must differ from the current password")
	}
	if len(newPassword) < s.security.MinPasswordLength {
		return validationErr("password",
			fmt.Sprintf("must be at least %d characters", s.security.MinPasswordLength))
	}

	hashed, err := password.Hash(newPassword, s.security.BcryptCost)
	if err != nil {
		return err
	}
	if _, err := store.Update[model.User](ctx, s.db, store.Users, id, map[string]any{
		"password":   hashed,
		"updated_at": time.Now(),
	}); err != nil {
		return err
	}

	s.log.Info("password changed", zap.String("id", id))
	return nil
}

// Delete removes the account and its avatar file, if any.
func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := store.GetByID[model.User](ctx, s.db, store.Users, id)
	if errors.Is(err, store.ErrNotFound) {
		return notFoundErr("user", id)
	}
	if err != nil {
		return err
	}

	if user.Avatar != "" {
		if err := os.Remove(user.Avatar); err != nil && !os.IsNotExist(err) {
			s.log.Warn("removing avatar file", zap.String("path", user.Avatar), zap.Error(err))
		}
	}

	if _, err := s.db.Delete(ctx, store.Users, id); err != nil {
		return err
	}

	s.log.Info("user deleted", zap.String("id", id))
	return nil
}

// Authenticate checks the credentials against the stored bcrypt hash.
// On success it stamps the last-login time and returns the sanitized
// user. Unknown usernames and wrong passwords produce the same error.
func (s *UserService) Authenticate(ctx context.Context, username, plain string) (model.User, error) {
	matches, err := store.Find(ctx, s.db, store.Users, func(u model.User) bool {
		return u.Username == username
	})
	if err != nil {
		return model.User{}, err
	}
	if len(matches) == 0 {
		s.log.Info("login failed: unknown username", zap.String("username", username))
		return model.User{}, ErrInvalidCredentials
	}

	user := matches[0]
	if !user.Active {
		s.log.Info("login rejected: account disabled", zap.String("username", username))
		return model.User{}, ErrAccountDisabled
	}
	if !password.Verify(user.Password, plain) {
		s.log.Info("login failed: wrong password", zap.String("username", username))
		return model.User{}, ErrInvalidCredentials
	}

	now := time.Now()
	updated, err := store.Update[model.User](ctx, s.db, store.Users, user.ID, map[string]any{
		"last_login": now,
	})
	if err != nil {
		return model.User{}, err
	}

	s.log.Info("login succeeded", zap.String("username", username))
	return updated.Sanitized(), nil
}

// UploadAvatar copies the file at srcPath into the avatar directory under
// a unique name, removes the previous avatar, and records the new path.
func (s *UserService) UploadAvatar(ctx context.Context, userID, srcPath string) (string, error) {
	user, err := store.GetByID[model.User](ctx, s.db, store.Users, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", notFoundErr("user", userID)
	}
	if err != nil {
		return "", err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("opening uploaded file %s: %w", srcPath, err)
	}
	defer src.Close()

	name := fmt.Sprintf("%s-%d%s", userID, time.Now().UnixMilli(), filepath.Ext(srcPath))
	dstPath := filepath.Join(s.avatarDir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("creating avatar file %s: %w", dstPath, err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("copying avatar to %s: %w", dstPath, err)
	}

	if user.Avatar != "" {
		if err := os.Remove(user.Avatar); err != nil && !os.IsNotExist(err) {
			s.log.Warn("removing previous avatar", zap.String("path", user.Avatar), zap.Error(err))
		}
	}

	if _, err := store.Update[model.User](ctx, s.db, store.Users, userID, map[string]any{
		"avatar":     dstPath,
		"updated_at": time.Now(),
	}); err != nil {
		return "", err
	}

	s.log.Info("avatar updated", zap.String("user_id", userID), zap.String("path", dstPath))
	return dstPath, nil
}

// checkUnique rejects usernames and emails already taken by another
// account. Empty values are skipped; excludeID ignores the account being
// updated.
func (s *UserService) checkUnique(ctx context.Context, excludeID, username, email string) error {
	users, err := store.GetAll[model.User](ctx, s.db, store.Users)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.ID == excludeID {
			continue
		}
		if username != "" && u.Username == username {
			return validationErr("username", fmt.Sprintf("%q is already taken", username))
		}
		if email != "" && strings.EqualFold(u.Email, email) {
			return validationErr("email", fmt.Sprintf("%q is already taken", email))
		}
	}
	return nil
}

package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/password"
)

// Default admin credentials created on first run. The password is stored
// bcrypt-hashed like any other account; there is no special login path
// for it.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)

// defaultTags are seeded when the tags collection is empty.
var defaultTags = []model.Tag{
	{Name: "Important", Color: "#e74c3c"},
	{Name: "Work", Color: "#3498db"},
	{Name: "Personal", Color: "#2ecc71"},
	{Name: "Home", Color: "#f39c12"},
	{Name: "Study", Color: "#9b59b6"},
}

// Seed inserts the default admin account and tags into their collections
// when those collections are empty. Safe to call repeatedly.
func (s *DB) Seed(ctx context.Context) error {
	users, err := GetAll[model.User](ctx, s, Users)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		hashed, err := password.Hash(DefaultAdminPassword, 0)
		if err != nil {
			return fmt.Errorf("hashing default admin password: %w", err)
		}
		now := time.Now()
		admin := model.User{
			Username:  DefaultAdminUsername,
			Password:  hashed,
			FullName:  "System Administrator",
			Email:     "admin@example.com",
			Role:      model.RoleAdmin,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := Insert(ctx, s, Users, admin); err != nil {
			return err
		}
		s.log.Info("seeded default admin account", zap.String("username", admin.Username))
	}

	tags, err := GetAll[model.Tag](ctx, s, Tags)
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		for _, tag := range defaultTags {
			tag.CreatedAt = time.Now()
			if _, err := Insert(ctx, s, Tags, tag); err != nil {
				return err
			}
		}
		s.log.Info("seeded default tags", zap.Int("count", len(defaultTags)))
	}

	return nil
}

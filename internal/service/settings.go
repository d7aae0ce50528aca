package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/store"
)

// SettingsService manages per-user preferences and the application
// configuration file.
type SettingsService struct {
	db         *store.DB
	log        *zap.Logger
	configPath string
	defaults   *model.AppConfig
}

// NewSettingsService creates the service. configPath locates the
// application config file; defaults fill in user preferences that were
// never saved.
func NewSettingsService(db *store.DB, log *zap.Logger, configPath string, defaults *model.AppConfig) *SettingsService {
	return &SettingsService{db: db, log: log, configPath: configPath, defaults: defaults}
}

// UserSettings returns the stored preferences of a user, falling back to
// defaults derived from the application config when none were saved.
func (s *SettingsService) UserSettings(ctx context.Context, userID string) (model.UserSettings, error) {
	settings, err := store.GetByID[model.UserSettings](ctx, s.db, store.Settings, userID)
	if errors.Is(err, store.ErrNotFound) {
		return s.defaultUserSettings(userID), nil
	}
	if err != nil {
		return model.UserSettings{}, err
	}
	return settings, nil
}

// SaveUserSettings merges the given fields into a user's preferences and
// stores the result. The settings record is keyed by the user id.
func (s *SettingsService) SaveUserSettings(ctx context.Context, userID string, in UpdateSettingsInput) (model.UserSettings, error) {
	if _, err := store.GetByID[model.User](ctx, s.db, store.Users, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.UserSettings{}, notFoundErr("user", userID)
		}
		return model.UserSettings{}, err
	}

	current, err := s.UserSettings(ctx, userID)
	if err != nil {
		return model.UserSettings{}, err
	}

	if in.Theme != nil {
		current.Theme = *in.Theme
	}
	if in.Language != nil {
		current.Language = *in.Language
	}
	if in.Notifications != nil {
		current.Notifications = *in.Notifications
	}
	if in.DefaultView != nil {
		if !model.ValidView(*in.DefaultView) {
			return model.UserSettings{}, validationErr("default_view", fmt.Sprintf("unknown view %q", *in.DefaultView))
		}
		current.DefaultView = *in.DefaultView
	}
	if in.DefaultFilter != nil {
		current.DefaultFilter = *in.DefaultFilter
	}
	if in.TaskSortOrder != nil {
		current.TaskSortOrder = *in.TaskSortOrder
	}
	if in.ShowCompletedTasks != nil {
		current.ShowCompletedTasks = *in.ShowCompletedTasks
	}
	current.ID = userID
	current.UserID = userID

	saved, err := store.Insert(ctx, s.db, store.Settings, current)
	if err != nil {
		return model.UserSettings{}, err
	}
	s.log.Info("user settings saved", zap.String("user_id", userID))
	return saved, nil
}

// ResetUserSettings drops a user's stored preferences so defaults apply
// again.
func (s *SettingsService) ResetUserSettings(ctx context.Context, userID string) error {
	if _, err := s.db.Delete(ctx, store.Settings, userID); err != nil {
		return err
	}
	s.log.Info("user settings reset", zap.String("user_id", userID))
	return nil
}

// UpdateSettingsInput holds a partial preferences update; nil fields are
// left unchanged.
type UpdateSettingsInput struct {
	Theme              *string
	Language           *string
	Notifications      *bool
	DefaultView        *string
	DefaultFilter      *string
	TaskSortOrder      *string
	ShowCompletedTasks *bool
}

// AppSettings loads the application config from disk, falling back to
// defaults when the file does not exist.
func (s *SettingsService) AppSettings() (*model.AppConfig, error) {
	return model.LoadConfig(s.configPath)
}

// SaveAppSettings writes the application config to disk.
func (s *SettingsService) SaveAppSettings(cfg *model.AppConfig) error {
	if err := model.SaveConfig(s.configPath, cfg); err != nil {
		return err
	}
	s.log.Info("app settings saved", zap.String("path", s.configPath))
	return nil
}

// ResetAppSettings rewrites the config file with defaults and returns
// them.
func (s *SettingsService) ResetAppSettings() (*model.AppConfig, error) {
	cfg := model.DefaultAppConfig()
	if err := model.SaveConfig(s.configPath, cfg); err != nil {
		return nil, err
	}
	s.log.Info("app settings reset", zap.String("path", s.configPath))
	return cfg, nil
}

func (s *SettingsService) defaultUserSettings(userID string) model.UserSettings {
	return model.UserSettings{
		ID:                 userID,
		UserID:             userID,
		Theme:              s.defaults.General.Theme,
		Language:           s.defaults.General.Language,
		Notifications:      s.defaults.Notifications.Enabled,
		DefaultView:        s.defaults.Display.DefaultView,
		DefaultFilter:      s.defaults.Display.DefaultFilter,
		TaskSortOrder:      s.defaults.Display.DefaultSort,
		ShowCompletedTasks: s.defaults.Display.ShowCompletedTasks,
	}
}

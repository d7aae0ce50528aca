package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/store"
)

// DefaultTagColor is assigned when a tag is created without a color.
const DefaultTagColor = "#3498db"

// TagService manages the shared tag vocabulary and tag assignments on
// tasks.
type TagService struct {
	db  *store.DB
	log *zap.Logger
}

// NewTagService creates the service.
func NewTagService(db *store.DB, log *zap.Logger) *TagService {
	return &TagService{db: db, log: log}
}

// List returns all tags sorted by name, case-insensitively.
func (s *TagService) List(ctx context.Context) ([]model.Tag, error) {
	tags, err := store.GetAll[model.Tag](ctx, s.db, store.Tags)
	if err != nil {
		return nil, err
	}
	sort.Slice(tags, func(i, j int) bool {
		return strings.ToLower(tags[i].Name) < strings.ToLower(tags[j].Name)
	})
	return tags, nil
}

// Get returns a single tag by id.
func (s *TagService) Get(ctx context.Context, id string) (model.Tag, error) {
	tag, err := store.GetByID[model.Tag](ctx, s.db, store.Tags, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Tag{}, notFoundErr("tag", id)
	}
	return tag, err
}

// Create stores a new tag. Names are unique ignoring case.
func (s *TagService) Create(ctx context.Context, name, color string) (model.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Tag{}, validationErr("name", "must not be empty")
	}
	if err := s.checkNameFree(ctx, name, ""); err != nil {
		return model.Tag{}, err
	}
	if color == "" {
		color = DefaultTagColor
	}

	tag := model.Tag{Name: name, Color: color, CreatedAt: time.Now()}
	created, err := store.Insert(ctx, s.db, store.Tags, tag)
	if err != nil {
		return model.Tag{}, err
	}
	s.log.Info("tag created", zap.String("id", created.ID), zap.String("name", created.Name))
	return created, nil
}

// Update renames or recolors a tag. A rename must not collide with
// another tag's name.
func (s *TagService) Update(ctx context.Context, id string, name, color *string) (model.Tag, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return model.Tag{}, err
	}

	partial := map[string]any{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return model.Tag{}, validationErr("name", "must not be empty")
		}
		if err := s.checkNameFree(ctx, trimmed, id); err != nil {
			return model.Tag{}, err
		}
		partial["name"] = trimmed
	}
	if color != nil {
		partial["color"] = *color
	}
	if len(partial) == 0 {
		return s.Get(ctx, id)
	}

	updated, err := store.Update[model.Tag](ctx, s.db, store.Tags, id, partial)
	if err != nil {
		return model.Tag{}, err
	}
	s.log.Info("tag updated", zap.String("id", id))
	return updated, nil
}

// Delete removes a tag and strips its id from every task that carries it.
func (s *TagService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	tagged, err := store.Find(ctx, s.db, store.Tasks, func(t model.Task) bool {
		return slices.Contains(t.TagIDs, id)
	})
	if err != nil {
		return err
	}
	for _, t := range tagged {
		remaining := slices.DeleteFunc(slices.Clone(t.TagIDs), func(tid string) bool {
			return tid == id
		})
		if _, err := store.Update[model.Task](ctx, s.db, store.Tasks, t.ID, map[string]any{
			"tag_ids": remaining,
		}); err != nil {
			return err
		}
	}

	if _, err := s.db.Delete(ctx, store.Tags, id); err != nil {
		return err
	}
	s.log.Info("tag deleted", zap.String("id", id), zap.Int("tasks_updated", len(tagged)))
	return nil
}

// TagsForTask resolves a task's tag ids into tags, sorted by name.
// Dangling ids are skipped.
func (s *TagService) TagsForTask(ctx context.Context, taskID string) ([]model.Tag, error) {
	task, err := store.GetByID[model.Task](ctx, s.db, store.Tasks, taskID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundErr("task", taskID)
	}
	if err != nil {
		return nil, err
	}

	tags := make([]model.Tag, 0, len(task.TagIDs))
	for _, id := range task.TagIDs {
		tag, err := store.GetByID[model.Tag](ctx, s.db, store.Tags, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		return strings.ToLower(tags[i].Name) < strings.ToLower(tags[j].Name)
	})
	return tags, nil
}

// SetTaskTags replaces a task's tag set. Every id must name an existing
// tag.
func (s *TagService) SetTaskTags(ctx context.Context, taskID string, tagIDs []string) error {
	if _, err := store.GetByID[model.Task](ctx, s.db, store.Tasks, taskID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundErr("task", taskID)
		}
		return err
	}
	for _, id := range tagIDs {
		if _, err := store.GetByID[model.Tag](ctx, s.db, store.Tags, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return validationErr("tag_ids", fmt.Sprintf("unknown tag %q", id))
			}
			return err
		}
	}
	if tagIDs == nil {
		tagIDs = []string{}
	}

	_, err := store.Update[model.Task](ctx, s.db, store.Tasks, taskID, map[string]any{
		"tag_ids":    tagIDs,
		"updated_at": time.Now(),
	})
	return err
}

func (s *TagService) checkNameFree(ctx context.Context, name, excludeID string) error {
	lower := strings.ToLower(name)
	clash, err := store.Find(ctx, s.db, store.Tags, func(t model.Tag) bool {
		return t.ID != excludeID && strings.ToLower(t.Name) == lower
	})
	if err != nil {
		return err
	}
	if len(clash) > 0 {
		return validationErr("name", fmt.Sprintf("tag %q already exists", name))
	}
	return nil
}

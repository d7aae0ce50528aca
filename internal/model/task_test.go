package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taskdesk/taskdesk/internal/model"
)

func TestPriorityRank(t *testing.T) {
	assert.Less(t, model.PriorityRank(model.PriorityHigh), model.PriorityRank(model.PriorityMedium))
	assert.Less(t, model.PriorityRank(model.PriorityMedium), model.PriorityRank(model.PriorityLow))
	assert.Less(t, model.PriorityRank(model.PriorityLow), model.PriorityRank("bogus"))
}

func TestIsOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, model.Task{DueDate: &past, Status: model.StatusPending}.IsOverdue(now))
	assert.False(t, model.Task{DueDate: &past, Status: model.StatusCompleted}.IsOverdue(now),
		"completed tasks are never overdue")
	assert.False(t, model.Task{DueDate: &future, Status: model.StatusPending}.IsOverdue(now))
	assert.False(t, model.Task{Status: model.StatusPending}.IsOverdue(now))
}

func TestValidStatusAndPriority(t *testing.T) {
	assert.True(t, model.ValidStatus(model.StatusInProgress))
	assert.False(t, model.ValidStatus("paused"))
	assert.True(t, model.ValidPriority(model.PriorityLow))
	assert.False(t, model.ValidPriority("urgent"))
}

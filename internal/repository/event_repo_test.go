package repository

import (
	"context"
	"testing"

	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRepository_Sources(t *testing.T) {
	repo := NewRepository(testutil.NewDB(t))
	ctx := context.Background()

	on := &model.EventSource{Name: "on", DBConnection: "sqlite", Enabled: true}
	off := &model.EventSource{Name: "off", DBConnection: "sqlite", Enabled: false}
	require.NoError(t, repo.EventRepo.CreateSource(ctx, on))
	require.NoError(t, repo.EventRepo.CreateSource(ctx, off))

	require.NoError(t, repo.EventRepo.UpdateLastProcessed(ctx, on.ID, 42))

	sources, err := repo.EventRepo.FindEnabledSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "on", sources[0].Name)
	assert.Equal(t, int64(42), sources[0].LastProcessedID)
}

func TestEventRepository_FindRulesOrder(t *testing.T) {
	repo := NewRepository(testutil.NewDB(t))
	ctx := context.Background()

	rules := []*model.EventRule{
		{EventSourceID: 1, RunTemplateID: 10, Priority: 1, Enabled: true},
		{EventSourceID: 1, RunTemplateID: 11, Priority: 9, Enabled: true},
		{EventSourceID: 1, RunTemplateID: 12, Priority: 9, Enabled: true},
		{EventSourceID: 1, RunTemplateID: 13, Priority: 50, Enabled: false},
		{EventSourceID: 2, RunTemplateID: 14, Priority: 99, Enabled: true},
	}
	for _, r := range rules {
		require.NoError(t, repo.EventRepo.CreateRule(ctx, r))
	}

	got, err := repo.EventRepo.FindRules(ctx, 1)
	require.NoError(t, err)
	var order []uint
	for _, r := range got {
		order = append(order, r.RunTemplateID)
	}
	assert.Equal(t, []uint{11, 12, 10}, order)

	require.NoError(t, repo.EventRepo.DeleteRulesByRunTemplate(ctx, 11))
	got, err = repo.EventRepo.FindRules(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

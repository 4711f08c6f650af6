package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-jobrunner/config"
	"golang-jobrunner/internal/configfield"
	"golang-jobrunner/internal/credtype"
	"golang-jobrunner/internal/executor"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/recurrence"
	"golang-jobrunner/internal/status"
	"golang-jobrunner/pkg/cache"
	"golang-jobrunner/pkg/logger"
	"golang-jobrunner/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingType struct {
	queries *int
	err     error
}

func (c *countingType) Name() string        { return "Counting" }
func (c *countingType) Description() string { return "counts queries" }

func (c *countingType) FieldsProvided() *configfield.Fields {
	return configfield.New("Counting").Add(configfield.NewField("TOKEN", configfield.TypeSecret, "Token"))
}

func (c *countingType) FieldsInternal() *configfield.Fields {
	return configfield.New("Counting").Add(configfield.NewField("API_SECRET", configfield.TypePassword, "API secret"))
}

func (c *countingType) Query(_ context.Context, values map[string]string) (*configfield.Fields, error) {
	*c.queries++
	if c.err != nil {
		return nil, c.err
	}
	token := configfield.NewField("TOKEN", configfield.TypeSecret, "Token").SetValue("token-for-" + values["API_SECRET"])
	token.Secret = true
	return configfield.New("Counting").Add(token), nil
}

func newCountingResolver(queries *int, err error) CredentialResolver {
	registry := credtype.NewRegistry()
	registry.Register("Counting", func() credtype.CredentialType {
		return &countingType{queries: queries, err: err}
	})
	cfg := &config.Config{Cache: config.Cache{CredentialTTL: time.Minute}}
	return NewCredentialResolver(cfg, logger.NewNop(), registry, cache.NewCache(time.Minute, time.Minute))
}

func countingCredential() *model.Credential {
	return &model.Credential{
		ID:             7,
		Name:           "api",
		CredentialType: &model.CredentialType{Name: "Counting API", Class: "Counting"},
		Values: []model.CredentialValue{
			{Name: "API_SECRET", Value: "s"},
			{Name: "REGION", Value: "eu"},
		},
	}
}

func TestCredentialResolver_Resolve(t *testing.T) {
	queries := 0
	resolver := newCountingResolver(&queries, nil)

	fields, err := resolver.Resolve(context.Background(), countingCredential())
	require.NoError(t, err)

	assert.Equal(t, []string{"REGION", "TOKEN"}, fields.Codes())
	assert.Equal(t, "token-for-s", fields.Get("TOKEN").Value)
	assert.True(t, fields.Get("TOKEN").Secret)
	assert.Equal(t, "eu", fields.Get("REGION").Value)
	assert.Equal(t, configfield.CredentialType("Counting API", 7), fields.Get("REGION").Source)
	assert.False(t, fields.Has("API_SECRET"))
}

func TestCredentialResolver_CachesUntilInvalidated(t *testing.T) {
	queries := 0
	resolver := newCountingResolver(&queries, nil)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, countingCredential())
	require.NoError(t, err)
	first.Get("REGION").SetValue("changed")

	second, err := resolver.Resolve(ctx, countingCredential())
	require.NoError(t, err)
	assert.Equal(t, 1, queries)
	assert.Equal(t, "eu", second.Get("REGION").Value, "cached copy is not shared")

	resolver.Invalidate(7)
	_, err = resolver.Resolve(ctx, countingCredential())
	require.NoError(t, err)
	assert.Equal(t, 2, queries)
}

func TestCredentialResolver_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cred    *model.Credential
		err     error
		wantErr error
	}{
		{name: "nil credential", cred: nil},
		{name: "missing type", cred: &model.Credential{ID: 1}},
		{
			name:    "unknown plugin",
			cred:    &model.Credential{ID: 2, CredentialType: &model.CredentialType{Class: "Nope"}},
			wantErr: credtype.ErrUnknownType,
		},
		{
			name: "query failure",
			cred: countingCredential(),
			err:  errors.New("backend down"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queries := 0
			resolver := newCountingResolver(&queries, tt.err)
			_, err := resolver.Resolve(context.Background(), tt.cred)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCredentialService_WritesInvalidateResolvedFields(t *testing.T) {
	tests := []struct {
		name     string
		write    func(ctx context.Context, svc CredentialService, id uint) error
		wantHost string
		wantPass bool
	}{
		{
			name: "set values",
			write: func(ctx context.Context, svc CredentialService, id uint) error {
				return svc.SetValues(ctx, id, map[string]string{"DB_HOST": "db2.internal"})
			},
			wantHost: "db2.internal",
		},
		{
			name: "delete",
			write: func(ctx context.Context, svc CredentialService, id uint) error {
				return svc.Delete(ctx, id)
			},
			wantHost: "localhost",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, utils.TimeNowUTC, executor.NewFake(0, ""))
			fx := seed(t, env.repo, recurrence.Disabled)
			cred := bindCommonCredential(t, env, fx, map[string]string{"DB_HOST": "db.internal", "DB_PASSWORD": "s3cret"})
			ctx, collector := withCollector()

			before, err := env.svc.RunTemplateService.GetEnvironment(ctx, fx.rt)
			require.NoError(t, err)
			assert.Equal(t, "db.internal", before.Get("DB_HOST").Value)

			require.NoError(t, tt.write(ctx, env.svc.CredentialService, cred.ID))
			assert.Len(t, collector.Filter(status.Success), 1)

			after, err := env.svc.RunTemplateService.GetEnvironment(ctx, fx.rt)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, after.Get("DB_HOST").Value)
			assert.Equal(t, tt.wantPass, after.Has("DB_PASSWORD"), "replaced values drop old keys")
		})
	}
}

func TestCredentialService_UnknownCredential(t *testing.T) {
	env := newTestEnv(t, utils.TimeNowUTC, executor.NewFake(0, ""))
	ctx := context.Background()

	assert.ErrorIs(t, env.svc.CredentialService.SetValues(ctx, 404, map[string]string{"A": "b"}), ErrCredentialNotFound)
	assert.ErrorIs(t, env.svc.CredentialService.Delete(ctx, 404), ErrCredentialNotFound)
}

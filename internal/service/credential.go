package service

import (
	"context"
	"fmt"
	"golang-jobrunner/config"
	"golang-jobrunner/internal/configfield"
	"golang-jobrunner/internal/credtype"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/repository"
	"golang-jobrunner/internal/status"
	"golang-jobrunner/pkg/cache"
	"golang-jobrunner/pkg/common"
	"golang-jobrunner/pkg/logger"
	"golang-jobrunner/pkg/utils"
)

// CredentialResolver turns a stored credential into environment fields
// through its credential type plugin.
type CredentialResolver interface {
	Resolve(ctx context.Context, cred *model.Credential) (*configfield.Fields, error)
	Invalidate(credentialID uint)
}

type credentialResolver struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *credtype.Registry
	cache    cache.Cache
}

func NewCredentialResolver(cfg *config.Config, log *logger.Logger, registry *credtype.Registry, inmemoryCache cache.Cache) CredentialResolver {
	return &credentialResolver{
		cfg:      cfg,
		log:      log,
		registry: registry,
		cache:    inmemoryCache,
	}
}

// Resolve returns the plugin's fields overridden by the stored values.
// Settings the plugin consumes itself are never exported.
func (r *credentialResolver) Resolve(ctx context.Context, cred *model.Credential) (*configfield.Fields, error) {
	if cred == nil {
		return nil, fmt.Errorf("credential is nil")
	}
	if cred.CredentialType == nil {
		return nil, fmt.Errorf("credential %d has no credential type", cred.ID)
	}

	key := fmt.Sprintf(common.KEY_CREDENTIAL_QUERY, cred.ID)
	if cached, ok := cache.GetFromCache[*configfield.Fields](r.cache, key); ok {
		return cached.Clone(), nil
	}

	plugin, err := r.registry.Get(cred.CredentialType.Class)
	if err != nil {
		return nil, fmt.Errorf("credential %d: %w", cred.ID, err)
	}

	stored := cred.ValueMap()
	queried, err := plugin.Query(ctx, stored)
	if err != nil {
		return nil, fmt.Errorf("credential %q (%s) query failed: %w", cred.Name, plugin.Name(), err)
	}

	internal := plugin.FieldsInternal()
	fields := configfield.New(cred.Name).
		WithSource(configfield.CredentialType(cred.CredentialType.Name, cred.ID))
	fields.AddAll(queried)
	for _, k := range utils.SortedKeys(stored) {
		if internal.Has(k) {
			continue
		}
		fields.Add(configfield.NewField(k, configfield.TypeString, k).SetValue(stored[k]))
	}
	for _, code := range internal.Codes() {
		fields.Remove(code)
	}

	r.log.DebugContext(ctx, "Credential resolved",
		logger.UintField("credential_id", cred.ID),
		logger.StringField("credential_type", plugin.Name()),
		logger.IntField("fields", fields.Len()),
	)

	if r.cache != nil {
		r.cache.Set(key, fields.Clone(), r.cfg.Cache.CredentialTTL)
	}
	return fields, nil
}

func (r *credentialResolver) Invalidate(credentialID uint) {
	if r.cache == nil {
		return
	}
	r.cache.Delete(fmt.Sprintf(common.KEY_CREDENTIAL_QUERY, credentialID))
}

const originCredential = "Credential"

// CredentialService edits stored credentials. Every write drops the cached
// fields of the credential it touched.
type CredentialService interface {
	Get(ctx context.Context, id uint) (*model.Credential, error)
	// SetValues replaces all stored values of a credential.
	SetValues(ctx context.Context, id uint, values map[string]string) error
	// Delete removes a credential and unbinds it from every run template.
	Delete(ctx context.Context, id uint) error
}

type credentialService struct {
	log      *logger.Logger
	repo     *repository.Repository
	registry *credtype.Registry
	resolver CredentialResolver
}

func NewCredentialService(log *logger.Logger, repo *repository.Repository, registry *credtype.Registry, resolver CredentialResolver) CredentialService {
	return &credentialService{
		log:      log,
		repo:     repo,
		registry: registry,
		resolver: resolver,
	}
}

func (s *credentialService) Get(ctx context.Context, id uint) (*model.Credential, error) {
	cred, err := s.repo.CredentialRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load credential %d: %w", id, err)
	}
	if cred == nil {
		return nil, fmt.Errorf("%w: %d", ErrCredentialNotFound, id)
	}
	return cred, nil
}

func (s *credentialService) SetValues(ctx context.Context, id uint, values map[string]string) error {
	cred, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	err = s.repo.UnitOfWork.Run(ctx, func(opts ...utils.DBOption) error {
		if err := s.repo.CredentialRepo.DeleteValues(ctx, id, opts...); err != nil {
			return err
		}
		for _, k := range utils.SortedKeys(values) {
			if err := s.repo.CredentialRepo.SetValue(ctx, id, k, values[k], s.valueType(cred, k), opts...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store values of credential %d: %w", id, err)
	}

	s.resolver.Invalidate(id)
	status.Report(ctx, s.log, status.Success, originCredential, "Credential %q updated", cred.Name)
	return nil
}

func (s *credentialService) Delete(ctx context.Context, id uint) error {
	cred, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	err = s.repo.UnitOfWork.Run(ctx, func(opts ...utils.DBOption) error {
		return s.repo.CredentialRepo.Delete(ctx, id, opts...)
	})
	if err != nil {
		return fmt.Errorf("failed to delete credential %d: %w", id, err)
	}

	s.resolver.Invalidate(id)
	status.Report(ctx, s.log, status.Success, originCredential, "Credential %q deleted", cred.Name)
	return nil
}

// valueType is the type the credential's plugin declares for key, string
// otherwise.
func (s *credentialService) valueType(cred *model.Credential, key string) string {
	if cred.CredentialType == nil || s.registry == nil {
		return string(configfield.TypeString)
	}
	plugin, err := s.registry.Get(cred.CredentialType.Class)
	if err != nil {
		return string(configfield.TypeString)
	}
	for _, declared := range []*configfield.Fields{plugin.FieldsProvided(), plugin.FieldsInternal()} {
		if declared == nil {
			continue
		}
		if f := declared.Get(key); f != nil {
			return string(f.Type)
		}
	}
	return string(configfield.TypeString)
}

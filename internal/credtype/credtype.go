// Package credtype implements the credential plugins that turn stored
// credential settings into environment fields.
package credtype

import (
	"context"
	"errors"
	"fmt"
	"golang-jobrunner/internal/configfield"
	"sort"
	"sync"
)

var ErrUnknownType = errors.New("unknown credential type")

// CredentialType resolves the fields a credential contributes to a job
// environment. values are the settings stored on the credential.
type CredentialType interface {
	Name() string
	Description() string
	// FieldsProvided lists the keys the plugin emits.
	FieldsProvided() *configfield.Fields
	// FieldsInternal lists the settings the plugin consumes; they are never
	// exported into the job environment.
	FieldsInternal() *configfield.Fields
	Query(ctx context.Context, values map[string]string) (*configfield.Fields, error)
}

type Factory func() CredentialType

// Registry maps plugin names, as stored in credential_type.class, to
// factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

func (r *Registry) Get(name string) (CredentialType, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return factory(), nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewDefaultRegistry registers the built-in plugins.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(CommonName, func() CredentialType { return NewCommon() })
	r.Register(EnvFileName, func() CredentialType { return NewEnvFile() })
	r.Register(VaultName, func() CredentialType { return NewVault() })
	r.Register(InfisicalName, func() CredentialType { return NewInfisical() })
	return r
}

func required(values map[string]string, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if values[k] == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credential settings: %v", missing)
	}
	return nil
}

func internalField(code string, typ configfield.Type, name string, secret bool) *configfield.Field {
	f := configfield.NewField(code, typ, name)
	f.Required = true
	f.Secret = secret
	return f
}

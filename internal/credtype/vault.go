package credtype

import (
	"context"
	"fmt"
	"golang-jobrunner/internal/configfield"
	"golang-jobrunner/pkg/utils"

	vault "github.com/hashicorp/vault/api"
)

const (
	VaultName = "Vault"

	VaultAddress   = "VAULT_ADDR"
	VaultToken     = "VAULT_TOKEN"
	VaultMount     = "VAULT_MOUNT"
	VaultPath      = "VAULT_PATH"
	VaultNamespace = "VAULT_NAMESPACE"
)

// Vault reads one KV v2 secret and exports each of its keys.
type Vault struct{}

func NewVault() *Vault {
	return &Vault{}
}

func (v *Vault) Name() string {
	return VaultName
}

func (v *Vault) Description() string {
	return "HashiCorp Vault KV v2 secret"
}

func (v *Vault) FieldsProvided() *configfield.Fields {
	return configfield.New(VaultName)
}

func (v *Vault) FieldsInternal() *configfield.Fields {
	namespace := internalField(VaultNamespace, configfield.TypeString, "Namespace", false)
	namespace.Required = false
	mount := internalField(VaultMount, configfield.TypeString, "KV mount", false)
	mount.Required = false
	mount.DefaultValue = "secret"

	return configfield.New(VaultName).
		Add(internalField(VaultAddress, configfield.TypeURL, "Vault address", false)).
		Add(internalField(VaultToken, configfield.TypeSecret, "Vault token", true)).
		Add(internalField(VaultPath, configfield.TypeString, "Secret path", false)).
		Add(mount).
		Add(namespace)
}

func (v *Vault) Query(ctx context.Context, values map[string]string) (*configfield.Fields, error) {
	if err := required(values, VaultAddress, VaultToken, VaultPath); err != nil {
		return nil, err
	}

	cfg := vault.DefaultConfig()
	cfg.Address = values[VaultAddress]
	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(values[VaultToken])
	if ns := values[VaultNamespace]; ns != "" {
		client.SetNamespace(ns)
	}

	mount := values[VaultMount]
	if mount == "" {
		mount = "secret"
	}

	secret, err := client.KVv2(mount).Get(ctx, values[VaultPath])
	if err != nil {
		return nil, fmt.Errorf("failed to read vault secret %s/%s: %w", mount, values[VaultPath], err)
	}

	fields := configfield.New(VaultName)
	for _, key := range utils.SortedKeys(secret.Data) {
		f := configfield.NewField(key, configfield.TypeSecret, key).SetValue(fmt.Sprint(secret.Data[key]))
		f.Secret = true
		fields.Add(f)
	}
	return fields, nil
}

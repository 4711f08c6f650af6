package credtype

import (
	"context"
	"fmt"
	"golang-jobrunner/internal/configfield"

	infisical "github.com/infisical/go-sdk"
)

const (
	InfisicalName = "Infisical"

	InfisicalSiteURL      = "INFISICAL_SITE_URL"
	InfisicalClientID     = "INFISICAL_CLIENT_ID"
	InfisicalClientSecret = "INFISICAL_CLIENT_SECRET"
	InfisicalProjectID    = "INFISICAL_PROJECT_ID"
	InfisicalEnvironment  = "INFISICAL_ENV"
	InfisicalSecretPath   = "INFISICAL_PATH"
)

// Infisical lists the secrets of one project environment using
// universal-auth machine identity credentials.
type Infisical struct{}

func NewInfisical() *Infisical {
	return &Infisical{}
}

func (i *Infisical) Name() string {
	return InfisicalName
}

func (i *Infisical) Description() string {
	return "Infisical project secrets"
}

func (i *Infisical) FieldsProvided() *configfield.Fields {
	return configfield.New(InfisicalName)
}

func (i *Infisical) FieldsInternal() *configfield.Fields {
	site := internalField(InfisicalSiteURL, configfield.TypeURL, "Site URL", false)
	site.Required = false
	path := internalField(InfisicalSecretPath, configfield.TypeString, "Secret path", false)
	path.Required = false
	path.DefaultValue = "/"

	return configfield.New(InfisicalName).
		Add(site).
		Add(internalField(InfisicalClientID, configfield.TypeString, "Client ID", false)).
		Add(internalField(InfisicalClientSecret, configfield.TypeSecret, "Client secret", true)).
		Add(internalField(InfisicalProjectID, configfield.TypeString, "Project ID", false)).
		Add(internalField(InfisicalEnvironment, configfield.TypeString, "Environment slug", false)).
		Add(path)
}

func (i *Infisical) Query(ctx context.Context, values map[string]string) (*configfield.Fields, error) {
	if err := required(values, InfisicalClientID, InfisicalClientSecret, InfisicalProjectID, InfisicalEnvironment); err != nil {
		return nil, err
	}

	client := infisical.NewInfisicalClient(ctx, infisical.Config{
		SiteUrl:          values[InfisicalSiteURL],
		AutoTokenRefresh: false,
	})

	if _, err := client.Auth().UniversalAuthLogin(values[InfisicalClientID], values[InfisicalClientSecret]); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Infisical: %w", err)
	}

	path := values[InfisicalSecretPath]
	if path == "" {
		path = "/"
	}
	secrets, err := client.Secrets().List(infisical.ListSecretsOptions{
		ProjectID:   values[InfisicalProjectID],
		Environment: values[InfisicalEnvironment],
		SecretPath:  path,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list Infisical secrets: %w", err)
	}

	fields := configfield.New(InfisicalName)
	for _, secret := range secrets {
		f := configfield.NewField(secret.SecretKey, configfield.TypeSecret, secret.SecretKey).SetValue(secret.SecretValue)
		f.Secret = true
		fields.Add(f)
	}
	return fields, nil
}

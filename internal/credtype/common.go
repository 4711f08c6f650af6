package credtype

import (
	"context"
	"golang-jobrunner/internal/configfield"
)

const CommonName = "Common"

// Common exports the credential's stored values as they are.
type Common struct{}

func NewCommon() *Common {
	return &Common{}
}

func (c *Common) Name() string {
	return CommonName
}

func (c *Common) Description() string {
	return "Static key/value credential"
}

func (c *Common) FieldsProvided() *configfield.Fields {
	return configfield.New(CommonName)
}

func (c *Common) FieldsInternal() *configfield.Fields {
	return configfield.New(CommonName)
}

func (c *Common) Query(_ context.Context, _ map[string]string) (*configfield.Fields, error) {
	return configfield.New(CommonName), nil
}

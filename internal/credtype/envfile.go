package credtype

import (
	"context"
	"fmt"
	"golang-jobrunner/internal/configfield"
	"golang-jobrunner/pkg/utils"

	"github.com/joho/godotenv"
)

const (
	EnvFileName = "EnvFile"

	EnvFilePath = "ENV_FILE"
)

// EnvFile reads KEY=value pairs from a dotenv file on the worker.
type EnvFile struct{}

func NewEnvFile() *EnvFile {
	return &EnvFile{}
}

func (e *EnvFile) Name() string {
	return EnvFileName
}

func (e *EnvFile) Description() string {
	return "Variables loaded from a .env file"
}

func (e *EnvFile) FieldsProvided() *configfield.Fields {
	return configfield.New(EnvFileName)
}

func (e *EnvFile) FieldsInternal() *configfield.Fields {
	return configfield.New(EnvFileName).
		Add(internalField(EnvFilePath, configfield.TypeFilePath, "Path to the .env file", false))
}

func (e *EnvFile) Query(_ context.Context, values map[string]string) (*configfield.Fields, error) {
	if err := required(values, EnvFilePath); err != nil {
		return nil, err
	}
	path := values[EnvFilePath]

	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	fields := configfield.New(EnvFileName).WithSource(configfield.File(path))
	for _, key := range utils.SortedKeys(env) {
		fields.Add(configfield.NewField(key, configfield.TypeString, key).SetValue(env[key]))
	}
	return fields, nil
}

package credtype

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"golang-jobrunner/internal/configfield"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	assert.Equal(t, []string{CommonName, EnvFileName, InfisicalName, VaultName}, r.Names())

	plugin, err := r.Get(VaultName)
	require.NoError(t, err)
	assert.Equal(t, VaultName, plugin.Name())

	_, err = r.Get("Nope")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestCommon_QueryIsEmpty(t *testing.T) {
	fields, err := NewCommon().Query(context.Background(), map[string]string{"A": "1"})
	require.NoError(t, err)
	assert.Equal(t, 0, fields.Len())
}

func TestEnvFile_Query(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.env")
	require.NoError(t, os.WriteFile(path, []byte("DB_HOST=db.local\nDB_PASS='s3cret'\n# comment\n"), 0o600))

	fields, err := NewEnvFile().Query(context.Background(), map[string]string{EnvFilePath: path})
	require.NoError(t, err)

	assert.Equal(t, []string{"DB_HOST", "DB_PASS"}, fields.Codes())
	assert.Equal(t, "s3cret", fields.Get("DB_PASS").Value)
	assert.Equal(t, configfield.File(path), fields.Get("DB_HOST").Source)
}

func TestEnvFile_QueryErrors(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{name: "missing setting", values: map[string]string{}},
		{name: "missing file", values: map[string]string{EnvFilePath: "/nonexistent/app.env"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEnvFile().Query(context.Background(), tt.values)
			assert.Error(t, err)
		})
	}
}

func TestEnvFile_InternalFields(t *testing.T) {
	internal := NewEnvFile().FieldsInternal()
	assert.True(t, internal.Has(EnvFilePath))
}

func TestVault_Query(t *testing.T) {
	var gotToken, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Vault-Token")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"data": map[string]interface{}{
					"API_KEY": "abc",
					"PORT":    8080,
				},
				"metadata": map[string]interface{}{
					"created_time":  "2024-01-02T03:04:05.000000000Z",
					"deletion_time": "",
					"destroyed":     false,
					"version":       3,
				},
			},
		})
	}))
	defer srv.Close()

	fields, err := NewVault().Query(context.Background(), map[string]string{
		VaultAddress: srv.URL,
		VaultToken:   "root",
		VaultPath:    "apps/billing",
	})
	require.NoError(t, err)

	assert.Equal(t, "root", gotToken)
	assert.Equal(t, "/v1/secret/data/apps/billing", gotPath)
	assert.Equal(t, []string{"API_KEY", "PORT"}, fields.Codes())
	assert.Equal(t, "abc", fields.Get("API_KEY").Value)
	assert.Equal(t, "8080", fields.Get("PORT").Value)
	assert.True(t, fields.Get("API_KEY").IsSensitive())
}

func TestVault_QueryRequiresSettings(t *testing.T) {
	_, err := NewVault().Query(context.Background(), map[string]string{VaultAddress: "http://127.0.0.1:1"})
	assert.Error(t, err)
}

func TestInfisical_QueryRequiresSettings(t *testing.T) {
	_, err := NewInfisical().Query(context.Background(), map[string]string{InfisicalClientID: "id"})
	assert.Error(t, err)
}

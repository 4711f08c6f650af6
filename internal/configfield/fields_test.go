package configfield

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields_AddKeepsCodeOrder(t *testing.T) {
	f := New("env")
	f.Add(NewField("ZETA", TypeString, "").SetValue("z"))
	f.Add(NewField("ALPHA", TypeString, "").SetValue("a"))
	f.Add(NewField("MIDDLE", TypeString, "").SetValue("m"))

	assert.Equal(t, []string{"ALPHA", "MIDDLE", "ZETA"}, f.Codes())
	assert.Equal(t, 3, f.Len())
}

func TestFields_AddMergePreservesFlags(t *testing.T) {
	f := New("env")
	original := NewField("DB_PASSWORD", TypeSecret, "Database password")
	original.Required = true
	original.Secret = true
	original.Logo = "db.svg"
	original.Value = "old"
	original.Source = ApplicationDefault("backup")
	f.Add(original)

	override := NewField("DB_PASSWORD", TypeString, "other name")
	override.Value = "new"
	override.Source = TenantOverride(5)
	f.Add(override)

	got := f.Get("DB_PASSWORD")
	require.NotNil(t, got)
	assert.Equal(t, "new", got.Value)
	assert.Equal(t, TenantOverride(5), got.Source)
	assert.True(t, got.Required)
	assert.True(t, got.Secret)
	assert.Equal(t, TypeSecret, got.Type)
	assert.Equal(t, "Database password", got.Name)
	assert.Equal(t, "db.svg", got.Logo, "empty logo must not clear the existing one")

	withLogo := NewField("DB_PASSWORD", TypeString, "")
	withLogo.Logo = "vault.svg"
	withLogo.Value = "newer"
	f.Add(withLogo)
	assert.Equal(t, "vault.svg", f.Get("DB_PASSWORD").Logo)
	assert.Equal(t, 1, f.Len())
}

func TestFields_AddDoesNotAlias(t *testing.T) {
	src := New("src")
	src.Add(NewField("A", TypeString, "").SetValue("1"))

	dst := New("dst").AddAll(src)
	dst.Add(NewField("A", TypeString, "").SetValue("2"))

	assert.Equal(t, "1", src.Get("A").Value)
	assert.Equal(t, "2", dst.Get("A").Value)
}

func TestFields_DefaultSource(t *testing.T) {
	f := New("env").WithSource(File("/etc/app.env"))
	f.Add(NewField("A", TypeString, "").SetValue("1"))
	f.Add(NewField("B", TypeString, "").SetValue("2").SetSource(JobOverride(3)))

	assert.Equal(t, File("/etc/app.env"), f.Get("A").Source)
	assert.Equal(t, JobOverride(3), f.Get("B").Source)
}

func TestFields_ApplyMacros(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		code   string
		want   string
	}{
		{
			name:   "expands known tokens",
			values: map[string]string{"A": "x", "B": "y", "C": "{A}-{B}"},
			code:   "C",
			want:   "x-y",
		},
		{
			name:   "keeps unknown tokens verbatim",
			values: map[string]string{"A": "x", "D": "{A}/{MISSING}"},
			code:   "D",
			want:   "x/{MISSING}",
		},
		{
			name:   "single pass without recursion",
			values: map[string]string{"A": "{B}", "B": "b", "C": "{A}"},
			code:   "C",
			want:   "{B}",
		},
		{
			name:   "lowercase braces are not macros",
			values: map[string]string{"A": "x", "E": "{a}"},
			code:   "E",
			want:   "{a}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New("env").SetValues(tt.values).ApplyMacros()
			assert.Equal(t, tt.want, f.Get(tt.code).Value)
		})
	}
}

func TestFields_ApplyMacrosUsesDefault(t *testing.T) {
	f := New("env")
	f.Add(NewField("HOST", TypeString, "").SetValue("db.local"))
	url := NewField("URL", TypeURL, "")
	url.DefaultValue = "postgres://{HOST}/app"
	f.Add(url)

	f.ApplyMacros()
	assert.Equal(t, "postgres://db.local/app", f.Get("URL").Value)
}

func TestFields_EnvMap(t *testing.T) {
	f := New("env")
	f.Add(NewField("A", TypeString, "").SetValue("1"))
	withDefault := NewField("B", TypeString, "")
	withDefault.DefaultValue = "fallback"
	f.Add(withDefault)

	assert.Equal(t, map[string]string{"A": "1", "B": "fallback"}, f.EnvMap())
}

func TestFields_RemoveAndClone(t *testing.T) {
	f := New("env").SetValues(map[string]string{"A": "1", "B": "2", "C": "3"})
	c := f.Clone()

	assert.True(t, f.Remove("B"))
	assert.False(t, f.Remove("B"))
	assert.Equal(t, []string{"A", "C"}, f.Codes())
	assert.Equal(t, []string{"A", "B", "C"}, c.Codes())

	c.Get("A").Value = "changed"
	assert.Equal(t, "1", f.Get("A").Value)
}

func TestExpand(t *testing.T) {
	f := New("env").SetValues(map[string]string{"DIR": "/data", "NAME": "dump"})
	assert.Equal(t, "--out /data/dump.sql --x {Y}", Expand("--out {DIR}/{NAME}.sql --x {Y}", f))
	assert.Equal(t, "plain", Expand("plain", nil))
}

func TestNormalizeType(t *testing.T) {
	tests := map[string]Type{
		"directory": TypeFilePath,
		"checkbox":  TypeBool,
		"switch":    TypeBool,
		"boolean":   TypeBool,
		"text":      TypeString,
		"number":    TypeInteger,
		"select":    TypeSet,
		"password":  TypePassword,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, NormalizeType(in))
		})
	}
}

func TestSource_String(t *testing.T) {
	assert.Equal(t, "credential:Vault#4", CredentialType("Vault", 4).String())
	assert.Equal(t, "runtemplate#9", TenantOverride(9).String())
	assert.Equal(t, "file:/x.env", File("/x.env").String())
	assert.True(t, Source{}.IsZero())
}

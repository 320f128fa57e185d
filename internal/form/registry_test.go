package form

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/formcheck/internal/metrics"
)

func ids(reg *Registry) []string {
	var out []string
	for _, f := range reg.List() {
		out = append(out, f.Def.ID)
	}
	return out
}

func writeDef(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestRegistryDefaults(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.LoadDefaults())
	assert.Equal(t, []string{"basic", "signup"}, ids(reg))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.FormsLoaded))

	_, err := reg.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownForm)
}

func TestRegistryDirectoryOverrides(t *testing.T) {
	dir := t.TempDir()
	writeDef(t, dir, "contact.yml", minimalDef)
	writeDef(t, dir, "signup.yaml", "id: signup\ntitle: Override\nfields:\n  - { name: handle, label: Handle, type: text }\n")
	writeDef(t, dir, "README.md", "not a form")

	reg := NewRegistry()
	require.NoError(t, reg.Load(dir))
	assert.Equal(t, []string{"basic", "contact", "signup"}, ids(reg))

	f, err := reg.Get("signup")
	require.NoError(t, err)
	assert.Equal(t, "Override", f.Def.Title)
	assert.Equal(t, []string{"handle"}, f.Schema.FieldNames())
}

func TestRegistryMissingDirLoadsDefaults(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Load(filepath.Join(t.TempDir(), "absent")))
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryFailedLoadKeepsPreviousSet(t *testing.T) {
	dir := t.TempDir()
	writeDef(t, dir, "contact.yaml", minimalDef)

	reg := NewRegistry()
	require.NoError(t, reg.Load(dir))
	require.Equal(t, 3, reg.Len())

	writeDef(t, dir, "broken.yaml", "id: broken\nfields: nope\n")
	assert.Error(t, reg.Load(dir))
	assert.Equal(t, []string{"basic", "contact", "signup"}, ids(reg))
}

func TestRegistryReplace(t *testing.T) {
	fd, err := ParseFormDef([]byte(minimalDef), "contact.yaml")
	require.NoError(t, err)
	f, err := Compile(fd)
	require.NoError(t, err)

	reg := NewRegistry()
	reg.Replace(f)
	got, err := reg.Get("contact")
	require.NoError(t, err)
	assert.Same(t, f, got)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FormsLoaded))
}

func TestRegistryZeroValue(t *testing.T) {
	var reg Registry
	_, err := reg.Get("signup")
	assert.ErrorIs(t, err, ErrUnknownForm)
	assert.Empty(t, reg.List())

	fd, err := ParseFormDef([]byte(minimalDef), "contact.yaml")
	require.NoError(t, err)
	f, err := Compile(fd)
	require.NoError(t, err)

	require.NotPanics(t, func() { reg.Replace(f) })
	assert.Equal(t, 1, reg.Len())
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tomlConfig = `
strip = true
plus_to_bracket = true
lib_dir = "/opt/abc"
symbols = ["PARTS", "SOLFEGE"]

[defines]
TITLE = "Scale"
COMPOSER = "Trad."
`

const yamlConfig = `
strip_chords: true
fatal_warnings: true
symbols: [PARTS]
defines:
  TITLE: Scale
`

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTOML(t *testing.T) {
	t.Setenv(EnvLibDir, "")
	c, err := Load(write(t, "abcpp.toml", tomlConfig))
	require.NoError(t, err)

	opts := c.Options()
	assert.True(t, opts.Strip)
	assert.True(t, opts.PlusToBracket)
	assert.False(t, opts.StripChords)
	assert.Equal(t, "/opt/abc", opts.LibDir)
	assert.Equal(t, []string{"PARTS", "SOLFEGE", "COMPOSER=Trad.", "TITLE=Scale"}, c.DefineArgs())
}

func TestLoadYAML(t *testing.T) {
	t.Setenv(EnvLibDir, "")
	c, err := Load(write(t, "abcpp.yml", yamlConfig))
	require.NoError(t, err)

	opts := c.Options()
	assert.True(t, opts.StripChords)
	assert.True(t, opts.FatalWarnings)
	assert.Empty(t, opts.LibDir)
	assert.Equal(t, []string{"PARTS", "TITLE=Scale"}, c.DefineArgs())
}

func TestEnvOverridesLibDir(t *testing.T) {
	t.Setenv(EnvLibDir, "/env/lib")

	c, err := Load(write(t, "abcpp.toml", tomlConfig))
	require.NoError(t, err)
	assert.Equal(t, "/env/lib", c.LibDir)

	assert.Equal(t, "/env/lib", Default().LibDir)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "failed to read config")

	_, err = Load(write(t, "abcpp.ini", "strip=1"))
	assert.ErrorContains(t, err, `unsupported config format ".ini"`)

	_, err = Load(write(t, "abcpp.toml", "strip = [nope"))
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestLoadEmptyPath(t *testing.T) {
	t.Setenv(EnvLibDir, "")
	c, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, c.DefineArgs())
	assert.Equal(t, Config{}, *c)
}

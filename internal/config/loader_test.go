package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnviron(t *testing.T, env ...string) {
	t.Helper()
	orig := osEnviron
	osEnviron = func() []string { return env }
	t.Cleanup(func() { osEnviron = orig })
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const loaderDoc = `
project: demo
services:
  db:
    image: postgres:${PG_VERSION}
    ports: ["${PG_PORT}:5432"]
  api:
    image: strata/storage-api:latest
    depends_on: [db]
`

func TestLoadFile_ImplicitEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, DefaultConfigFile, loaderDoc)
	writeFile(t, dir, DefaultEnvFile, "PG_VERSION=15\nPG_PORT=5433\n")
	withEnviron(t, "PG_VERSION=16")

	cfg, err := LoadFile(path, "", "")
	require.NoError(t, err)

	db := cfg.Services["db"]
	// The process environment wins over the env file.
	assert.Equal(t, "postgres:16", db.Image)
	assert.Equal(t, []string{"5433:5432"}, db.Ports)
	assert.Equal(t, "demo", cfg.Project)
}

func TestLoadFile_NoEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, DefaultConfigFile, loaderDoc)
	withEnviron(t, "PG_VERSION=16", "PG_PORT=6543")

	cfg, err := LoadFile(path, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"6543:5432"}, cfg.Services["db"].Ports)
}

func TestLoadFile_ExplicitEnvFileMissing(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, DefaultConfigFile, loaderDoc)
	withEnviron(t)

	_, err := LoadFile(path, filepath.Join(dir, "prod.env"), "")
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "io", confErr.ErrorType)
}

func TestLoadFile_ExplicitEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, DefaultConfigFile, loaderDoc)
	envFile := writeFile(t, dir, "prod.env", "# production\nPG_VERSION=16\nPG_PORT=\"7000\"\n")
	writeFile(t, dir, DefaultEnvFile, "PG_PORT=1\n")
	withEnviron(t)

	cfg, err := LoadFile(path, envFile, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"7000:5432"}, cfg.Services["db"].Ports)
}

func TestLoadFile_Errors(t *testing.T) {
	withEnviron(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), "", "")
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
	})

	t.Run("invalid yaml carries the path", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), DefaultConfigFile, "services: [")
		_, err := LoadFile(path, "", "")
		var confErr *ConfigurationError
		require.ErrorAs(t, err, &confErr)
		assert.Equal(t, path, confErr.FilePath)
		assert.Contains(t, confErr.DetailedError(), "Suggestions:")
	})

	t.Run("validation failure", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), DefaultConfigFile, "project: x\nservices:\n  api:\n    depends_on: [db]\n")
		_, err := LoadFile(path, "", "")
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
		assert.Contains(t, err.Error(), `unknown service "db"`)
	})

	t.Run("cycle", func(t *testing.T) {
		doc := "project: x\ndefault_environment: a\nenvironments:\n  a: {extends: b}\n  b: {extends: a}\n"
		path := writeFile(t, t.TempDir(), DefaultConfigFile, doc)
		_, err := LoadFile(path, "", "")
		assert.True(t, IsCycle(err))
	})
}

func TestLoadDocument_DefaultProjectName(t *testing.T) {
	withEnviron(t)
	dir := filepath.Join(t.TempDir(), "My Stack")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := writeFile(t, dir, DefaultConfigFile, "services:\n  db:\n    image: postgres\n")

	doc, _, err := LoadDocument(path, "")
	require.NoError(t, err)
	assert.Equal(t, "mystack", doc.Project)
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "vars.env", "A=1\nexport B=two\nC='quoted value'\n")

	vars, err := LoadEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "two", "C": "quoted value"}, vars)
}

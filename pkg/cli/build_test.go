package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	return p
}

func TestRunBuildClean(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "api.rqc", `
config {
  baseUrl http://localhost:3000
}

api /u {
  get {
    response {
      id Number @mock(1)
    }
  }
}
`)

	m, diags := runBuild(context.Background(), path)
	require.Empty(t, diags)
	require.NotNil(t, m)
	assert.Len(t, m.Endpoints, 1)
	assert.Equal(t, []string{"http://localhost:3000"}, m.BaseUrls)
}

func TestRunBuildParseError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "api.rqc", `api /u { get { response { id ] } } }`)

	m, diags := runBuild(context.Background(), path)
	require.Nil(t, m)
	require.NotEmpty(t, diags)
}

func TestRunBuildMissingFile(t *testing.T) {
	_, diags := runBuild(context.Background(), "/nonexistent/api.rqc")
	require.NotEmpty(t, diags)
}

func TestCountCategories(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "api.rqc", `
category a {
  prefix "/a"
  category b {
    prefix "/b"
    api /c { get { response {} } }
  }
}
`)
	m, diags := runBuild(context.Background(), path)
	require.Empty(t, diags)
	assert.Equal(t, 2, countCategories(m.Categories))
}

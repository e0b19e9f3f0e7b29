package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docwatch/docwatch/internal/watch"
)

const sampleTargets = `
targets:
  - url: https://api.example.com/openapi.json
    type: openapi
    api_name: Example API
  - url: https://docs.example.com/guide#authentication
    type: html
    api_name: Example Guide
    selector: "main.docs"
  - url: https://api.example.com/collection.json
    type: postman
    api_name: Example Collection
`

func TestParsePreservesOrder(t *testing.T) {
	t.Parallel()

	reg, err := Parse([]byte(sampleTargets))
	require.NoError(t, err)
	require.Equal(t, 3, reg.Len())

	targets := reg.Targets()
	require.Equal(t, "https://api.example.com/openapi.json", targets[0].URL)
	require.Equal(t, watch.TypeOpenAPI, targets[0].DeclaredType)
	require.Equal(t, "Example Guide", targets[1].APIName)
	require.Equal(t, "main.docs", targets[1].Selector)
	require.Equal(t, watch.TypePostman, targets[2].DeclaredType)
}

func TestParseRejectsUnknownType(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
targets:
  - url: https://api.example.com/spec.wsdl
    type: wsdl
    api_name: Legacy
`))
	require.ErrorContains(t, err, "unknown declared type")
}

func TestParseRejectsMalformedURL(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
targets:
  - url: "not a url"
    type: json
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "target 0")
}

func TestParseRejectsEmptyAndDuplicate(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("targets: []\n"))
	require.ErrorContains(t, err, "no targets")

	_, err = Parse([]byte(`
targets:
  - url: https://api.example.com/openapi.json
    type: openapi
    api_name: Example
  - url: https://api.example.com/openapi.json
    type: openapi
    api_name: Example
`))
	require.ErrorContains(t, err, "duplicates")
}

func TestLoadReadsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTargets), 0o600))

	reg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, reg.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read targets file")
}

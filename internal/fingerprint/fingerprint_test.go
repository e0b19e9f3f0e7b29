package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docwatch/docwatch/internal/parse"
	"github.com/docwatch/docwatch/internal/watch"
)

func TestFingerprintDeterministic(t *testing.T) {
	t.Parallel()

	f := New()
	doc := watch.NormalizedDocument{
		TextContent: "GET /pets: List pets",
		Structured: parse.APIDescription{
			Endpoints: []parse.Endpoint{{Method: "GET", Path: "/pets", Summary: "List pets"}},
		},
	}

	first, err := f.Fingerprint(doc)
	require.NoError(t, err)
	second, err := f.Fingerprint(doc)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Len(t, first, 64)
}

func TestFingerprintKeyOrderIndependentForMaps(t *testing.T) {
	t.Parallel()

	f := New()
	a := watch.NormalizedDocument{
		TextContent: "same",
		Structured:  map[string]any{"b": 2.0, "a": 1.0},
	}
	b := watch.NormalizedDocument{
		TextContent: "same",
		Structured:  map[string]any{"a": 1.0, "b": 2.0},
	}

	ha, err := f.Fingerprint(a)
	require.NoError(t, err)
	hb, err := f.Fingerprint(b)
	require.NoError(t, err)
	require.Equal(t, ha, hb)
}

func TestFingerprintSensitiveToEachSection(t *testing.T) {
	t.Parallel()

	f := New()
	base := watch.NormalizedDocument{TextContent: "text", Structured: []string{"block"}}

	baseHash, err := f.Fingerprint(base)
	require.NoError(t, err)

	textChanged := base
	textChanged.TextContent = "text changed"
	textHash, err := f.Fingerprint(textChanged)
	require.NoError(t, err)
	require.NotEqual(t, baseHash, textHash)

	structChanged := base
	structChanged.Structured = []string{"block", "extra"}
	structHash, err := f.Fingerprint(structChanged)
	require.NoError(t, err)
	require.NotEqual(t, baseHash, structHash)
}

func TestFingerprintNilStructured(t *testing.T) {
	t.Parallel()

	f := New()
	hash, err := f.Fingerprint(watch.NormalizedDocument{TextContent: "plain markdown"})
	require.NoError(t, err)
	require.NotEmpty(t, hash)
}

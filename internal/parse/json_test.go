package parse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docwatch/docwatch/internal/watch"
)

func jsonTarget() watch.Target {
	return watch.Target{URL: "https://x/data.json", DeclaredType: watch.TypeJSON, APIName: "data"}
}

func TestJSONCanonicalTextIsKeyOrderIndependent(t *testing.T) {
	t.Parallel()

	p := &JSON{}

	a, err := p.Parse(rawResponse(jsonTarget(), `{"b": 2, "a": {"y": true, "x": [1, 2]}}`))
	require.NoError(t, err)
	b, err := p.Parse(rawResponse(jsonTarget(), `{"a": {"x": [1, 2], "y": true}, "b": 2}`))
	require.NoError(t, err)

	require.Equal(t, a.TextContent, b.TextContent)
	require.Equal(t, `{"a":{"x":[1,2],"y":true},"b":2}`, a.TextContent)
}

func TestJSONArrayOrderStillMatters(t *testing.T) {
	t.Parallel()

	p := &JSON{}

	a, err := p.Parse(rawResponse(jsonTarget(), `{"items": [1, 2]}`))
	require.NoError(t, err)
	b, err := p.Parse(rawResponse(jsonTarget(), `{"items": [2, 1]}`))
	require.NoError(t, err)

	require.NotEqual(t, a.TextContent, b.TextContent)
}

func TestJSONDecodeFailure(t *testing.T) {
	t.Parallel()

	_, err := (&JSON{}).Parse(rawResponse(jsonTarget(), `{"items": [1,`))
	require.Error(t, err)

	var pe *watch.ParseError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, watch.TypeJSON, pe.ContentType)
	require.Equal(t, `{"items": [1,`, pe.Preview)
}

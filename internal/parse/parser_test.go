package parse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docwatch/docwatch/internal/watch"
)

func rawResponse(target watch.Target, body string) watch.RawResponse {
	return watch.RawResponse{Target: target, StatusCode: 200, Body: []byte(body)}
}

func TestDefaultRegistryCoversAllFamilies(t *testing.T) {
	t.Parallel()

	r := Default()
	for _, ct := range []watch.ContentType{
		watch.TypeHTML, watch.TypeOpenAPI, watch.TypeJSON, watch.TypePostman, watch.TypeMarkdown,
	} {
		p, err := r.Lookup(ct)
		require.NoError(t, err)
		require.Equal(t, ct, p.ContentType())
	}

	_, err := r.Lookup(watch.ContentType("protobuf"))
	require.Error(t, err)
}

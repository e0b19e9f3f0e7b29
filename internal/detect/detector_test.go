package detect

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docwatch/docwatch/internal/parse"
	"github.com/docwatch/docwatch/internal/watch"
)

func openapiDoc(endpoints ...parse.Endpoint) watch.NormalizedDocument {
	return watch.NormalizedDocument{
		ContentType: watch.TypeOpenAPI,
		Structured:  parse.APIDescription{Endpoints: endpoints},
	}
}

func openapiSnapshot(t *testing.T, hash string, endpoints ...parse.Endpoint) *watch.Snapshot {
	t.Helper()
	data, err := json.Marshal(parse.APIDescription{Endpoints: endpoints})
	require.NoError(t, err)
	return &watch.Snapshot{ContentType: watch.TypeOpenAPI, ContentHash: hash, StructuredData: data}
}

func TestCompareFirstObservation(t *testing.T) {
	t.Parallel()

	v := New().Compare(openapiDoc(), "abc", nil)
	require.True(t, v.HasChanges)
	require.Equal(t, "first observation", v.Summary)
	require.Empty(t, v.PreviousHash)
}

func TestCompareUnchanged(t *testing.T) {
	t.Parallel()

	prior := openapiSnapshot(t, "abc", parse.Endpoint{Method: "GET", Path: "/pets"})
	v := New().Compare(openapiDoc(parse.Endpoint{Method: "GET", Path: "/pets"}), "abc", prior)
	require.False(t, v.HasChanges)
	require.Equal(t, "abc", v.PreviousHash)
}

func TestCompareEndpointDiff(t *testing.T) {
	t.Parallel()

	prior := openapiSnapshot(t, "old",
		parse.Endpoint{Method: "GET", Path: "/pets", Summary: "List pets"},
		parse.Endpoint{Method: "DELETE", Path: "/pets/{id}"},
	)
	doc := openapiDoc(
		parse.Endpoint{Method: "GET", Path: "/pets", Summary: "List pets (paginated)"},
		parse.Endpoint{Method: "POST", Path: "/pets"},
	)

	v := New().Compare(doc, "new", prior)
	require.True(t, v.HasChanges)
	require.Equal(t, "endpoints: added POST /pets; removed DELETE /pets/{id}; modified GET /pets [possible breaking change]", v.Summary)
}

func TestCompareContentTypeTransition(t *testing.T) {
	t.Parallel()

	prior := openapiSnapshot(t, "old", parse.Endpoint{Method: "GET", Path: "/pets"})
	doc := watch.NormalizedDocument{ContentType: watch.TypeHTML, TextContent: "404 Not Found"}

	v := New().Compare(doc, "new", prior)
	require.True(t, v.HasChanges)
	require.Equal(t, "content type changed from openapi to html", v.Summary)
}

func TestCompareOpaqueTextFallback(t *testing.T) {
	t.Parallel()

	prior := &watch.Snapshot{ContentType: watch.TypeMarkdown, ContentHash: "old"}
	doc := watch.NormalizedDocument{ContentType: watch.TypeMarkdown, TextContent: "# changed"}

	v := New().Compare(doc, "new", prior)
	require.True(t, v.HasChanges)
	require.Equal(t, "content changed", v.Summary)
}

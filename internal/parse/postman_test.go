package parse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docwatch/docwatch/internal/watch"
)

const collection = `{
  "info": {"name": "Billing API"},
  "item": [
    {
      "name": "List invoices",
      "request": {"method": "get", "url": {"raw": "https://api.x/invoices"}}
    },
    {
      "name": "Admin",
      "item": [
        {
          "name": "Void invoice",
          "request": {"method": "POST", "url": "https://api.x/invoices/void"}
        }
      ]
    }
  ]
}`

func postmanTarget() watch.Target {
	return watch.Target{URL: "https://x/collection.json", DeclaredType: watch.TypePostman, APIName: "billing"}
}

func TestPostmanFlattensNestedFolders(t *testing.T) {
	t.Parallel()

	doc, err := (&Postman{}).Parse(rawResponse(postmanTarget(), collection))
	require.NoError(t, err)

	col, ok := doc.Structured.(Collection)
	require.True(t, ok)
	require.Equal(t, "Billing API", col.Name)
	require.Equal(t, []RequestEntry{
		{Name: "List invoices", Method: "GET", URL: "https://api.x/invoices"},
		{Name: "Void invoice", Method: "POST", URL: "https://api.x/invoices/void"},
	}, col.Requests)

	require.Contains(t, doc.TextContent, "GET https://api.x/invoices (List invoices)")
}

func TestPostmanRejectsNonCollections(t *testing.T) {
	t.Parallel()

	_, err := (&Postman{}).Parse(rawResponse(postmanTarget(), `{"unrelated": true}`))
	require.Error(t, err)

	var pe *watch.ParseError
	require.True(t, errors.As(err, &pe))
	require.Contains(t, pe.Reason, "not a Postman collection")
}

func TestPostmanDecodeFailure(t *testing.T) {
	t.Parallel()

	_, err := (&Postman{}).Parse(rawResponse(postmanTarget(), `{"info":`))
	require.Error(t, err)

	var pe *watch.ParseError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, watch.TypePostman, pe.ContentType)
}

package parse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docwatch/docwatch/internal/watch"
)

const docsPage = `<!DOCTYPE html>
<html>
<head><title>API Docs</title><style>body { color: red }</style></head>
<body>
<script>window.analytics = true;</script>
<nav>Home | Docs</nav>
<main>
<h2 id="auth">Authentication</h2>
<p>Send a bearer token with every request.</p>
<h3 id="auth-scopes">Scopes</h3>
<p>Scopes limit what a token can do.</p>
<h2 id="rate-limits">Rate limits</h2>
<p>120 requests per minute.</p>
</main>
</body>
</html>`

func htmlTarget(url, selector string) watch.Target {
	return watch.Target{URL: url, DeclaredType: watch.TypeHTML, APIName: "docs", Selector: selector}
}

func TestHTMLWholePageText(t *testing.T) {
	t.Parallel()

	doc, err := (&HTML{}).Parse(rawResponse(htmlTarget("https://x/docs", ""), docsPage))
	require.NoError(t, err)
	require.Equal(t, watch.TypeHTML, doc.ContentType)
	require.Contains(t, doc.TextContent, "Send a bearer token")
	require.Contains(t, doc.TextContent, "120 requests per minute.")
	require.NotContains(t, doc.TextContent, "analytics")
	require.NotContains(t, doc.TextContent, "color: red")
}

func TestHTMLSelectorScopesExtraction(t *testing.T) {
	t.Parallel()

	doc, err := (&HTML{}).Parse(rawResponse(htmlTarget("https://x/docs", "main p"), docsPage))
	require.NoError(t, err)

	blocks, ok := doc.Structured.([]string)
	require.True(t, ok)
	require.Len(t, blocks, 3)
	require.NotContains(t, doc.TextContent, "Home | Docs")
}

func TestHTMLSelectorMatchingNothingFails(t *testing.T) {
	t.Parallel()

	_, err := (&HTML{}).Parse(rawResponse(htmlTarget("https://x/docs", "#missing"), docsPage))
	require.Error(t, err)

	var pe *watch.ParseError
	require.True(t, errors.As(err, &pe))
	require.Contains(t, pe.Reason, "#missing")
	require.NotEmpty(t, pe.Preview)
}

func TestHTMLAnchorSection(t *testing.T) {
	t.Parallel()

	doc, err := (&HTML{}).Parse(rawResponse(htmlTarget("https://x/docs#auth", ""), docsPage))
	require.NoError(t, err)

	// The auth section includes its subsection and stops at the next h2.
	require.Contains(t, doc.TextContent, "Send a bearer token")
	require.Contains(t, doc.TextContent, "Scopes limit what a token can do.")
	require.NotContains(t, doc.TextContent, "120 requests per minute.")
}

func TestHTMLUnknownAnchorFallsBackToWholePage(t *testing.T) {
	t.Parallel()

	doc, err := (&HTML{}).Parse(rawResponse(htmlTarget("https://x/docs#nope", ""), docsPage))
	require.NoError(t, err)
	require.Contains(t, doc.TextContent, "120 requests per minute.")
}

func TestHTMLEmptyPageIsObservable(t *testing.T) {
	t.Parallel()

	doc, err := (&HTML{}).Parse(rawResponse(htmlTarget("https://x/docs", ""), "<html><body></body></html>"))
	require.NoError(t, err)
	require.Empty(t, doc.TextContent)
}

package parse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docwatch/docwatch/internal/watch"
)

func markdownTarget() watch.Target {
	return watch.Target{URL: "https://x/README.md", DeclaredType: watch.TypeMarkdown, APIName: "readme"}
}

func TestMarkdownOutline(t *testing.T) {
	t.Parallel()

	body := "# Billing API\r\n\r\nIntro text.\r\n\r\n## Endpoints ##\r\n\r\n```\r\n# not a heading\r\n```\r\n\r\n### Invoices\r\n"
	doc, err := (&Markdown{}).Parse(rawResponse(markdownTarget(), body))
	require.NoError(t, err)

	require.NotContains(t, doc.TextContent, "\r")
	require.Equal(t, []Heading{
		{Level: 1, Text: "Billing API"},
		{Level: 2, Text: "Endpoints"},
		{Level: 3, Text: "Invoices"},
	}, doc.Structured)
}

func TestMarkdownWithoutHeadingsHasNoOutline(t *testing.T) {
	t.Parallel()

	doc, err := (&Markdown{}).Parse(rawResponse(markdownTarget(), "plain prose, no structure at all"))
	require.NoError(t, err)
	require.Nil(t, doc.Structured)
	require.Equal(t, "plain prose, no structure at all", doc.TextContent)
}

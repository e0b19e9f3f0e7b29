package parse

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/docwatch/docwatch/internal/watch"
)

// headingTags orders heading ranks for anchor section extraction.
var headingTags = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
}

// HTML extracts visible text from a page, optionally scoped by the
// target's CSS selector or URL anchor.
type HTML struct{}

// ContentType implements watch.Parser.
func (p *HTML) ContentType() watch.ContentType {
	return watch.TypeHTML
}

// Parse builds a normalized document from an HTML body. Selection order:
// explicit selector first, then URL anchor, then the whole page.
func (p *HTML) Parse(resp watch.RawResponse) (watch.NormalizedDocument, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return watch.NormalizedDocument{}, &watch.ParseError{
			ContentType: watch.TypeHTML,
			Reason:      "failed building document tree",
			Preview:     watch.Preview(resp.Body),
			Err:         err,
		}
	}
	doc.Find("script, style, noscript").Remove()

	// A selector that matches nothing is a target misconfiguration; an
	// empty page without one is a legitimate degraded observation.
	blocks := p.selectBlocks(doc, resp.Target)
	if len(blocks) == 0 && resp.Target.Selector != "" {
		return watch.NormalizedDocument{}, &watch.ParseError{
			ContentType: watch.TypeHTML,
			Reason:      "selector " + resp.Target.Selector + " matched nothing",
			Preview:     watch.Preview(resp.Body),
		}
	}

	return watch.NormalizedDocument{
		Target:      resp.Target,
		ContentType: watch.TypeHTML,
		TextContent: strings.Join(blocks, "\n"),
		Structured:  blocks,
		RawPreview:  watch.Preview(resp.Body),
	}, nil
}

// selectBlocks returns one text block per extracted element.
func (p *HTML) selectBlocks(doc *goquery.Document, target watch.Target) []string {
	if target.Selector != "" {
		return textBlocks(doc.Find(target.Selector))
	}
	if anchor := target.Anchor(); anchor != "" {
		if section := anchorSection(doc, anchor); len(section) > 0 {
			return section
		}
		// Unknown anchor degrades to the whole page rather than failing.
	}
	return textBlocks(doc.Find("body"))
}

func textBlocks(sel *goquery.Selection) []string {
	var blocks []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if text := collapseWhitespace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	return blocks
}

// anchorSection extracts the element with the given id. When the anchor
// is a heading, the section runs until the next heading of the same or
// higher rank.
func anchorSection(doc *goquery.Document, anchor string) []string {
	start := doc.Find("#" + anchor).First()
	if start.Length() == 0 {
		start = doc.Find("[name=" + anchor + "]").First()
	}
	if start.Length() == 0 {
		return nil
	}

	rank, isHeading := headingTags[goquery.NodeName(start)]
	if !isHeading {
		return textBlocks(start)
	}

	blocks := textBlocks(start)
	for sib := start.Next(); sib.Length() > 0; sib = sib.Next() {
		if r, ok := headingTags[goquery.NodeName(sib)]; ok && r <= rank {
			break
		}
		blocks = append(blocks, textBlocks(sib)...)
	}
	return blocks
}

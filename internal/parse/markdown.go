package parse

import (
	"strings"

	"github.com/docwatch/docwatch/internal/watch"
)

// Heading is one outline entry of a Markdown document.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Markdown passes document text through largely unchanged and derives a
// heading outline where one exists.
type Markdown struct{}

// ContentType implements watch.Parser.
func (p *Markdown) ContentType() watch.ContentType {
	return watch.TypeMarkdown
}

// Parse normalizes line endings and extracts ATX headings. Text inside
// fenced code blocks never contributes to the outline.
func (p *Markdown) Parse(resp watch.RawResponse) (watch.NormalizedDocument, error) {
	text := strings.ReplaceAll(string(resp.Body), "\r\n", "\n")
	text = strings.TrimRight(text, "\n")

	var outline []Heading
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if h, ok := parseHeading(trimmed); ok {
			outline = append(outline, h)
		}
	}

	doc := watch.NormalizedDocument{
		Target:      resp.Target,
		ContentType: watch.TypeMarkdown,
		TextContent: text,
		RawPreview:  watch.Preview(resp.Body),
	}
	if len(outline) > 0 {
		doc.Structured = outline
	}
	return doc, nil
}

func parseHeading(line string) (Heading, bool) {
	if !strings.HasPrefix(line, "#") {
		return Heading{}, false
	}
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level > 6 || level == len(line) || line[level] != ' ' {
		return Heading{}, false
	}
	text := strings.TrimSpace(strings.TrimRight(line[level+1:], "# "))
	if text == "" {
		return Heading{}, false
	}
	return Heading{Level: level, Text: text}, true
}

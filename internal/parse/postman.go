package parse

import (
	"encoding/json"
	"strings"

	"github.com/docwatch/docwatch/internal/watch"
)

// RequestEntry is one request extracted from a Postman collection,
// folders flattened.
type RequestEntry struct {
	Name   string `json:"name"`
	Method string `json:"method"`
	URL    string `json:"url"`
}

// Collection is the structured form a Postman target normalizes to.
type Collection struct {
	Name     string         `json:"name,omitempty"`
	Requests []RequestEntry `json:"requests"`
}

// collectionDoc mirrors the subset of the Postman v2 schema we read.
// Items nest arbitrarily deep; a node is a folder when it has child
// items and a request when it has a request object.
type collectionDoc struct {
	Info struct {
		Name string `json:"name"`
	} `json:"info"`
	Item []collectionItem `json:"item"`
}

type collectionItem struct {
	Name    string           `json:"name"`
	Item    []collectionItem `json:"item"`
	Request *requestDoc      `json:"request"`
}

type requestDoc struct {
	Method string          `json:"method"`
	URL    json.RawMessage `json:"url"`
}

// Postman extracts the request inventory from a collection document.
type Postman struct{}

// ContentType implements watch.Parser.
func (p *Postman) ContentType() watch.ContentType {
	return watch.TypePostman
}

// Parse decodes the collection and flattens its request entries in
// document order.
func (p *Postman) Parse(resp watch.RawResponse) (watch.NormalizedDocument, error) {
	preview := watch.Preview(resp.Body)

	var doc collectionDoc
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return watch.NormalizedDocument{}, &watch.ParseError{
			ContentType: watch.TypePostman,
			Reason:      "failed decoding collection",
			Preview:     preview,
			Err:         err,
		}
	}
	if doc.Info.Name == "" && len(doc.Item) == 0 {
		return watch.NormalizedDocument{}, &watch.ParseError{
			ContentType: watch.TypePostman,
			Reason:      "document is not a Postman collection",
			Preview:     preview,
		}
	}

	col := Collection{Name: doc.Info.Name}
	collectRequests(doc.Item, &col.Requests)

	return watch.NormalizedDocument{
		Target:      resp.Target,
		ContentType: watch.TypePostman,
		TextContent: requestText(col),
		Structured:  col,
		RawPreview:  preview,
	}, nil
}

func collectRequests(items []collectionItem, out *[]RequestEntry) {
	for _, item := range items {
		if item.Request != nil {
			*out = append(*out, RequestEntry{
				Name:   item.Name,
				Method: strings.ToUpper(item.Request.Method),
				URL:    requestURL(item.Request.URL),
			})
		}
		if len(item.Item) > 0 {
			collectRequests(item.Item, out)
		}
	}
}

// requestURL handles both URL encodings the schema allows: a plain
// string or an object with a raw field.
func requestURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var asObject struct {
		Raw string `json:"raw"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil {
		return asObject.Raw
	}
	return ""
}

func requestText(col Collection) string {
	var b strings.Builder
	if col.Name != "" {
		b.WriteString(col.Name)
		b.WriteByte('\n')
	}
	for _, r := range col.Requests {
		b.WriteString(r.Method)
		b.WriteByte(' ')
		b.WriteString(r.URL)
		if r.Name != "" {
			b.WriteString(" (")
			b.WriteString(r.Name)
			b.WriteByte(')')
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

package parse

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/docwatch/docwatch/internal/watch"
)

// httpMethods are the operation keys recognized under an OpenAPI path item.
var httpMethods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// Endpoint is one operation extracted from an OpenAPI document.
type Endpoint struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Summary string `json:"summary,omitempty"`
}

// Ident returns the stable "METHOD path" identity used for diffing.
func (e Endpoint) Ident() string {
	return e.Method + " " + e.Path
}

// APIDescription is the structured form an OpenAPI target normalizes to.
type APIDescription struct {
	Version   string     `json:"version,omitempty"`
	Title     string     `json:"title,omitempty"`
	Endpoints []Endpoint `json:"endpoints"`
}

// OpenAPI decodes Swagger/OpenAPI documents served as JSON or YAML and
// reduces them to an endpoint inventory.
type OpenAPI struct{}

// ContentType implements watch.Parser.
func (p *OpenAPI) ContentType() watch.ContentType {
	return watch.TypeOpenAPI
}

// Parse validates the document root and extracts its endpoints, sorted
// by path then method. A methodFilter on the target keeps only matching
// HTTP methods.
func (p *OpenAPI) Parse(resp watch.RawResponse) (watch.NormalizedDocument, error) {
	preview := watch.Preview(resp.Body)
	fail := func(reason string, err error) (watch.NormalizedDocument, error) {
		return watch.NormalizedDocument{}, &watch.ParseError{
			ContentType: watch.TypeOpenAPI,
			Reason:      reason,
			Preview:     preview,
			Err:         err,
		}
	}

	body := strings.TrimSpace(string(resp.Body))
	if body == "" {
		return fail("empty body", nil)
	}
	if strings.HasPrefix(strings.ToLower(body), "<") {
		// The classifier catches this earlier; re-checked because the
		// parser is also reachable directly in tests and tooling.
		return fail("body is HTML, not an API description", nil)
	}

	root, err := decodeMapping([]byte(body))
	if err != nil {
		return fail("failed decoding body", err)
	}

	paths, ok := root["paths"].(map[string]any)
	if !ok {
		return fail("document has no paths object", nil)
	}

	desc := APIDescription{
		Version:   documentVersion(root),
		Title:     documentTitle(root),
		Endpoints: extractEndpoints(paths, resp.Target.MethodFilter),
	}

	return watch.NormalizedDocument{
		Target:      resp.Target,
		ContentType: watch.TypeOpenAPI,
		TextContent: endpointText(desc),
		Structured:  desc,
		RawPreview:  preview,
	}, nil
}

// decodeMapping tries JSON first, then YAML, requiring a mapping root.
func decodeMapping(body []byte) (map[string]any, error) {
	var asJSON map[string]any
	if err := json.Unmarshal(body, &asJSON); err == nil {
		return asJSON, nil
	}

	var asYAML map[string]any
	if err := yaml.Unmarshal(body, &asYAML); err != nil {
		return nil, fmt.Errorf("neither JSON nor YAML mapping: %w", err)
	}
	if asYAML == nil {
		return nil, fmt.Errorf("decoded document is empty")
	}
	return asYAML, nil
}

func documentVersion(root map[string]any) string {
	if v, ok := root["openapi"].(string); ok {
		return v
	}
	if v, ok := root["swagger"].(string); ok {
		return v
	}
	return ""
}

func documentTitle(root map[string]any) string {
	info, ok := root["info"].(map[string]any)
	if !ok {
		return ""
	}
	title, _ := info["title"].(string)
	return title
}

func extractEndpoints(paths map[string]any, methodFilter string) []Endpoint {
	filter := strings.ToLower(strings.TrimSpace(methodFilter))

	endpoints := make([]Endpoint, 0, len(paths))
	for path, item := range paths {
		operations, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, method := range httpMethods {
			op, found := operations[method]
			if !found {
				continue
			}
			if filter != "" && method != filter {
				continue
			}
			endpoints = append(endpoints, Endpoint{
				Method:  strings.ToUpper(method),
				Path:    path,
				Summary: operationSummary(op),
			})
		}
	}

	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].Path != endpoints[j].Path {
			return endpoints[i].Path < endpoints[j].Path
		}
		return endpoints[i].Method < endpoints[j].Method
	})
	return endpoints
}

func operationSummary(op any) string {
	fields, ok := op.(map[string]any)
	if !ok {
		return ""
	}
	if s, ok := fields["summary"].(string); ok && s != "" {
		return s
	}
	s, _ := fields["description"].(string)
	return collapseWhitespace(s)
}

// endpointText renders a deterministic line-per-endpoint view for
// fingerprinting.
func endpointText(desc APIDescription) string {
	var b strings.Builder
	if desc.Title != "" || desc.Version != "" {
		b.WriteString(strings.TrimSpace(desc.Title + " " + desc.Version))
		b.WriteByte('\n')
	}
	for _, e := range desc.Endpoints {
		b.WriteString(e.Ident())
		if e.Summary != "" {
			b.WriteString(": ")
			b.WriteString(e.Summary)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

package parse

import (
	"encoding/json"

	"github.com/docwatch/docwatch/internal/watch"
)

// JSON normalizes arbitrary JSON documents. The text content is a
// canonical re-serialization with sorted object keys, so responses that
// only shuffle key order fingerprint identically.
type JSON struct{}

// ContentType implements watch.Parser.
func (p *JSON) ContentType() watch.ContentType {
	return watch.TypeJSON
}

// Parse decodes the body generically and re-serializes it canonically.
func (p *JSON) Parse(resp watch.RawResponse) (watch.NormalizedDocument, error) {
	var tree any
	if err := json.Unmarshal(resp.Body, &tree); err != nil {
		return watch.NormalizedDocument{}, &watch.ParseError{
			ContentType: watch.TypeJSON,
			Reason:      "failed decoding body",
			Preview:     watch.Preview(resp.Body),
			Err:         err,
		}
	}

	canonical, err := Canonical(tree)
	if err != nil {
		return watch.NormalizedDocument{}, &watch.ParseError{
			ContentType: watch.TypeJSON,
			Reason:      "failed canonical re-serialization",
			Preview:     watch.Preview(resp.Body),
			Err:         err,
		}
	}

	return watch.NormalizedDocument{
		Target:      resp.Target,
		ContentType: watch.TypeJSON,
		TextContent: string(canonical),
		Structured:  tree,
		RawPreview:  watch.Preview(resp.Body),
	}, nil
}

// Canonical serializes a structured value deterministically. Object keys
// come out sorted because encoding/json orders map keys.
func Canonical(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Package classify resolves the actual content family of a response,
// possibly overriding the target's declared type.
package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/docwatch/docwatch/internal/watch"
)

// MinBodyLength is the threshold below which a body is never handed to a
// structured parser.
const MinBodyLength = 10

// sniffWindow bounds how far into the body HTML markers are searched.
const sniffWindow = 500

// errorPageWindow bounds the error-page indicator scan.
const errorPageWindow = 1000

// Resolution is the classifier's verdict for one response.
type Resolution struct {
	ContentType watch.ContentType

	// Diagnostic records why the declared type was overridden: a
	// too-short body, an HTML marker, a decode failure, or an
	// error-page indicator. Empty when the declared type held.
	Diagnostic string
}

// Classifier applies the resolution policy. With Strict set, a
// JSON/OpenAPI body that fails structural decoding is a hard error
// instead of degrading to an html classification.
type Classifier struct {
	Strict bool
}

// New builds a Classifier.
func New(strict bool) *Classifier {
	return &Classifier{Strict: strict}
}

var htmlMarkers = []string{
	"<!doctype html",
	"<html",
	"<meta charset",
	"<title>",
	"<head",
	"<body",
}

var errorPageIndicators = []string{
	"<title>404",
	"<title>not found",
	"<title>error",
	"<title>forbidden",
	"<h1>404",
	"<h1>not found",
	"<h1>error",
	"<h1>forbidden",
	"<h1>500",
	"<h1>internal server error",
}

// Resolve decides which parser variant applies to the response.
// Malformed and empty bodies never reach a structured parser: they
// resolve to html with a diagnostic so the pipeline records a
// degraded observation instead of crashing.
func (c *Classifier) Resolve(resp watch.RawResponse) (Resolution, error) {
	body := string(resp.Body)
	trimmed := strings.TrimSpace(body)

	if len(trimmed) < MinBodyLength {
		return Resolution{
			ContentType: watch.TypeHTML,
			Diagnostic:  fmt.Sprintf("body too short for structured parsing (%d chars)", len(trimmed)),
		}, nil
	}

	if reason := htmlSniff(resp.Headers.Get("Content-Type"), trimmed); reason != "" {
		res := Resolution{ContentType: watch.TypeHTML, Diagnostic: ""}
		if resp.Target.DeclaredType != watch.TypeHTML {
			res.Diagnostic = fmt.Sprintf("declared %s but response is HTML (%s)", resp.Target.DeclaredType, reason)
		}
		if ind := errorPageIndicator(trimmed); ind != "" {
			res.Diagnostic = joinDiagnostics(res.Diagnostic, "error page indicator: "+ind)
		}
		return res, nil
	}

	declared := resp.Target.DeclaredType
	switch declared {
	case watch.TypeOpenAPI, watch.TypeJSON, watch.TypePostman:
		if err := checkStructured(declared, trimmed); err != nil {
			if c.Strict {
				return Resolution{}, &watch.ClassificationError{
					Reason: fmt.Sprintf("declared %s body failed structural decoding", declared),
					Err:    err,
				}
			}
			return Resolution{
				ContentType: watch.TypeHTML,
				Diagnostic:  fmt.Sprintf("declared %s but body failed decoding: %v", declared, err),
			}, nil
		}
	}
	return Resolution{ContentType: declared}, nil
}

// htmlSniff returns a non-empty reason when the response is HTML by
// header or by body marker within the sniff window.
func htmlSniff(contentType, body string) string {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml") {
		return "content-type " + ct
	}
	window := strings.ToLower(body)
	if len(window) > sniffWindow {
		window = window[:sniffWindow]
	}
	for _, marker := range htmlMarkers {
		if strings.Contains(window, marker) {
			return "marker " + marker
		}
	}
	return ""
}

// errorPageIndicator scans the start of an HTML body for common error
// page titles and headings.
func errorPageIndicator(body string) string {
	window := strings.ToLower(body)
	if len(window) > errorPageWindow {
		window = window[:errorPageWindow]
	}
	for _, indicator := range errorPageIndicators {
		if strings.Contains(window, indicator) {
			return indicator
		}
	}
	return ""
}

// checkStructured verifies the body decodes for its declared family.
func checkStructured(declared watch.ContentType, body string) error {
	var decoded any
	if err := json.Unmarshal([]byte(body), &decoded); err == nil {
		return nil
	}
	if declared == watch.TypeOpenAPI {
		// OpenAPI specs are also served as YAML.
		if err := yaml.Unmarshal([]byte(body), &decoded); err != nil {
			return fmt.Errorf("neither JSON nor YAML: %w", err)
		}
		if _, ok := decoded.(map[string]any); !ok {
			return fmt.Errorf("decoded YAML is not a mapping")
		}
		return nil
	}
	return fmt.Errorf("invalid JSON")
}

func joinDiagnostics(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}

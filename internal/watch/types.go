// Package watch defines the core types shared across the pipeline.
package watch

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ContentType identifies a document family the pipeline knows how to parse.
type ContentType string

// Content types accepted for Target.DeclaredType and produced by the classifier.
const (
	TypeHTML     ContentType = "html"
	TypeOpenAPI  ContentType = "openapi"
	TypeJSON     ContentType = "json"
	TypePostman  ContentType = "postman"
	TypeMarkdown ContentType = "markdown"
)

// KnownContentType reports whether t is one of the supported families.
func KnownContentType(t ContentType) bool {
	switch t {
	case TypeHTML, TypeOpenAPI, TypeJSON, TypePostman, TypeMarkdown:
		return true
	}
	return false
}

// Target is a configured endpoint to monitor. Immutable once loaded.
type Target struct {
	URL          string      `json:"url" yaml:"url"`
	DeclaredType ContentType `json:"type" yaml:"type"`
	APIName      string      `json:"api_name" yaml:"api_name"`
	MethodName   string      `json:"method_name,omitempty" yaml:"method_name,omitempty"`
	Selector     string      `json:"selector,omitempty" yaml:"selector,omitempty"`
	MethodFilter string      `json:"method_filter,omitempty" yaml:"method_filter,omitempty"`
	Description  string      `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate rejects malformed targets before any fetch begins.
func (t Target) Validate() error {
	if strings.TrimSpace(t.URL) == "" {
		return fmt.Errorf("target url is required")
	}
	u, err := url.Parse(t.URL)
	if err != nil {
		return fmt.Errorf("target url %q: %w", t.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target url %q: unsupported scheme %q", t.URL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("target url %q: missing host", t.URL)
	}
	if !KnownContentType(t.DeclaredType) {
		return fmt.Errorf("target %q: unknown declared type %q", t.URL, t.DeclaredType)
	}
	return nil
}

// BaseURL returns the URL with any fragment stripped. Fetches always use
// the base URL; the fragment only steers HTML section extraction.
func (t Target) BaseURL() string {
	if i := strings.IndexByte(t.URL, '#'); i >= 0 {
		return t.URL[:i]
	}
	return t.URL
}

// Anchor returns the URL fragment, if any.
func (t Target) Anchor() string {
	if i := strings.IndexByte(t.URL, '#'); i >= 0 {
		return t.URL[i+1:]
	}
	return ""
}

// Name returns a human-readable label for logs and summaries.
func (t Target) Name() string {
	if t.APIName != "" {
		return t.APIName
	}
	return t.URL
}

// Key returns the snapshot key this target is stored under.
func (t Target) Key() SnapshotKey {
	return SnapshotKey{URL: t.URL, APIName: t.APIName, MethodName: t.MethodName}
}

// SnapshotKey identifies the append-only snapshot log for one target.
type SnapshotKey struct {
	URL        string
	APIName    string
	MethodName string
}

// RawResponse is the fetcher's output, handed to the classifier unmodified.
type RawResponse struct {
	Target     Target
	StatusCode int
	Headers    http.Header
	Body       []byte
	FetchedAt  time.Time
	Rendered   bool
	Attempts   int
}

// NormalizedDocument is the common shape every parser produces.
type NormalizedDocument struct {
	Target      Target
	ContentType ContentType
	TextContent string
	Structured  any
	RawPreview  string

	// Diagnostic carries non-fatal classification notes, such as a decode
	// error that forced an html fallback or an error-page indicator.
	Diagnostic string
}

// Snapshot is one persisted observation of a normalized document.
// Rows are append-only; the core never rewrites history.
type Snapshot struct {
	URL            string
	APIName        string
	MethodName     string
	ContentType    ContentType
	RawContent     string
	TextContent    string
	StructuredData []byte
	ContentHash    string
	CreatedAt      time.Time
	HasChanges     bool
}

// Key returns the log key the snapshot belongs to.
func (s Snapshot) Key() SnapshotKey {
	return SnapshotKey{URL: s.URL, APIName: s.APIName, MethodName: s.MethodName}
}

// Stage names a step of the per-target task state machine.
type Stage string

// Pipeline stages in execution order; Done and Failed are terminal.
const (
	StagePending        Stage = "pending"
	StageFetching       Stage = "fetching"
	StageClassifying    Stage = "classifying"
	StageParsing        Stage = "parsing"
	StageFingerprinting Stage = "fingerprinting"
	StageDiffing        Stage = "diffing"
	StageDone           Stage = "done"
	StageFailed         Stage = "failed"
)

// ChangeReport is the per-target outcome of one run. Transient; the run
// report owns it, nothing persists it.
type ChangeReport struct {
	Target       Target
	Stage        Stage
	ContentType  ContentType
	PreviousHash string
	NewHash      string
	HasChanges   bool
	Summary      string
	Diagnostic   string
	Err          error
}

// Failed reports whether the target task ended in the failed state.
func (r ChangeReport) Failed() bool {
	return r.Err != nil
}

// ErrorText renders the error for storage or display, empty on success.
func (r ChangeReport) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// RunReport aggregates one full pass over the target registry. Reports
// preserve registry order regardless of completion order.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Reports    []ChangeReport
	Succeeded  int
	Failed     int
	Changed    int
}

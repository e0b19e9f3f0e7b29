// Package detect compares a freshly fingerprinted document against the
// most recent stored snapshot and produces a change verdict.
package detect

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/docwatch/docwatch/internal/parse"
	"github.com/docwatch/docwatch/internal/watch"
)

// Verdict is the detector's per-target outcome, folded into the
// ChangeReport by the orchestrator.
type Verdict struct {
	PreviousHash string
	HasChanges   bool
	Summary      string
}

// Detector derives verdicts. Stateless; all history arrives as the
// prior snapshot.
type Detector struct{}

// New returns a Detector.
func New() *Detector {
	return &Detector{}
}

// Compare applies the change rules: no prior snapshot means a first
// observation, equal hashes mean no change, anything else is a change
// with a best-effort summary. The prior snapshot is never mutated.
func (d *Detector) Compare(doc watch.NormalizedDocument, newHash string, prior *watch.Snapshot) Verdict {
	if prior == nil {
		return Verdict{HasChanges: true, Summary: "first observation"}
	}
	if prior.ContentHash == newHash {
		return Verdict{PreviousHash: prior.ContentHash, HasChanges: false, Summary: "unchanged"}
	}
	return Verdict{
		PreviousHash: prior.ContentHash,
		HasChanges:   true,
		Summary:      changeSummary(doc, prior),
	}
}

// changeSummary prefers a structural endpoint diff for OpenAPI targets
// and falls back to a generic description elsewhere.
func changeSummary(doc watch.NormalizedDocument, prior *watch.Snapshot) string {
	if prior.ContentType != doc.ContentType {
		return fmt.Sprintf("content type changed from %s to %s", prior.ContentType, doc.ContentType)
	}
	if doc.ContentType == watch.TypeOpenAPI {
		if s := endpointDiff(doc, prior); s != "" {
			return s
		}
	}
	return "content changed"
}

func endpointDiff(doc watch.NormalizedDocument, prior *watch.Snapshot) string {
	desc, ok := doc.Structured.(parse.APIDescription)
	if !ok || len(prior.StructuredData) == 0 {
		return ""
	}
	var before parse.APIDescription
	if err := json.Unmarshal(prior.StructuredData, &before); err != nil {
		return ""
	}

	oldSet := endpointSet(before.Endpoints)
	newSet := endpointSet(desc.Endpoints)

	var added, removed, modified []string
	for ident, summary := range newSet {
		old, existed := oldSet[ident]
		switch {
		case !existed:
			added = append(added, ident)
		case old != summary:
			modified = append(modified, ident)
		}
	}
	for ident := range oldSet {
		if _, still := newSet[ident]; !still {
			removed = append(removed, ident)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(modified)

	var parts []string
	if len(added) > 0 {
		parts = append(parts, "added "+strings.Join(added, ", "))
	}
	if len(removed) > 0 {
		parts = append(parts, "removed "+strings.Join(removed, ", "))
	}
	if len(modified) > 0 {
		parts = append(parts, "modified "+strings.Join(modified, ", "))
	}
	if len(parts) == 0 {
		return ""
	}
	summary := "endpoints: " + strings.Join(parts, "; ")
	// Removed endpoints break existing clients; flag them.
	if len(removed) > 0 {
		summary += " [possible breaking change]"
	}
	return summary
}

func endpointSet(endpoints []parse.Endpoint) map[string]string {
	set := make(map[string]string, len(endpoints))
	for _, e := range endpoints {
		set[e.Ident()] = e.Summary
	}
	return set
}

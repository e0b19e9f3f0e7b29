// Package fingerprint derives the stable content hash that the change
// detector compares across runs.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/docwatch/docwatch/internal/parse"
	"github.com/docwatch/docwatch/internal/watch"
)

// SHA256 hashes the normalized text together with the canonical
// serialization of the structured data, separated by a NUL byte so the
// two sections can never bleed into each other.
type SHA256 struct{}

// New returns the default fingerprinter.
func New() *SHA256 {
	return &SHA256{}
}

// Fingerprint implements watch.Fingerprinter. Identical semantic
// content yields an identical hex digest regardless of the incidental
// formatting the parsers already normalized away.
func (SHA256) Fingerprint(doc watch.NormalizedDocument) (string, error) {
	structured, err := parse.Canonical(doc.Structured)
	if err != nil {
		return "", fmt.Errorf("canonicalize structured data: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(doc.TextContent))
	h.Write([]byte{0})
	h.Write(structured)
	return hex.EncodeToString(h.Sum(nil)), nil
}

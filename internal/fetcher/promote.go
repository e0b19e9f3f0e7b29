package fetcher

import (
	"bytes"
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/docwatch/docwatch/internal/watch"
)

// Detector decides whether a probe response needs a rendered re-fetch.
type Detector interface {
	ShouldPromote(resp watch.RawResponse) bool
}

// Promoting wraps a probe fetcher with an optional rendered fallback.
// HTML targets whose probe body looks like an empty JS shell are fetched
// again through the rendered fetcher; all other targets pass through.
type Promoting struct {
	probe    watch.Fetcher
	rendered watch.Fetcher
	detector Detector
	logger   *zap.Logger
}

// NewPromoting builds the wrapper. rendered and detector may be nil, in
// which case probing is all that happens.
func NewPromoting(probe, rendered watch.Fetcher, detector Detector, logger *zap.Logger) *Promoting {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Promoting{probe: probe, rendered: rendered, detector: detector, logger: logger}
}

// Fetch probes the target and promotes to a rendered fetch when warranted.
// A failed rendered fetch falls back to the probe response rather than
// failing the target.
func (p *Promoting) Fetch(ctx context.Context, target watch.Target) (watch.RawResponse, error) {
	resp, err := p.probe.Fetch(ctx, target)
	if err != nil {
		return watch.RawResponse{}, err
	}
	if target.DeclaredType != watch.TypeHTML || p.rendered == nil || p.detector == nil {
		return resp, nil
	}
	if !p.detector.ShouldPromote(resp) {
		return resp, nil
	}

	renderedResp, rerr := p.rendered.Fetch(ctx, target)
	if rerr != nil {
		p.logger.Warn("rendered fetch failed, keeping probe response",
			zap.String("target", target.Name()),
			zap.Error(rerr),
		)
		return resp, nil
	}
	p.logger.Info("promoted to rendered fetch", zap.String("target", target.Name()))
	return renderedResp, nil
}

// Heuristic implements Detector with a handful of shell-page rules.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a detector; threshold 0 selects the default.
func NewHeuristic(threshold int) *Heuristic {
	if threshold == 0 {
		threshold = 2048
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

var shellMarkers = [][]byte{
	[]byte("__next"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
}

// ShouldPromote reports whether the probe body looks like an unrendered
// single-page-app shell.
func (h *Heuristic) ShouldPromote(resp watch.RawResponse) bool {
	if resp.StatusCode != 200 || resp.Rendered {
		return false
	}
	body := resp.Body
	if len(body) == 0 {
		return true
	}
	if len(body) < h.BodyLengthThreshold && scriptDensityHigh(body) {
		return true
	}
	for _, marker := range shellMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

// scriptDensityHigh reports whether script tags cover at least a quarter
// of the document.
func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	coverage := 0
	pos := 0
	for {
		rel := strings.Index(lower[pos:], openTag)
		if rel == -1 {
			break
		}
		start := pos + rel

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			coverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		relEnd := strings.Index(lower[contentStart:], closeTag)
		var next int
		if relEnd == -1 {
			next = total
		} else {
			next = contentStart + relEnd + len(closeTag)
		}
		coverage += next - start
		pos = next
	}

	if coverage == 0 {
		return false
	}
	return coverage*100/total >= 25
}

// Package pipeline drives every registered target through fetch,
// classify, parse, fingerprint and diff, and assembles the run report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docwatch/docwatch/internal/classify"
	"github.com/docwatch/docwatch/internal/detect"
	"github.com/docwatch/docwatch/internal/metrics"
	"github.com/docwatch/docwatch/internal/parse"
	"github.com/docwatch/docwatch/internal/watch"
)

// Config is the orchestrator's immutable tuning, passed at construction
// so tests can vary it freely.
type Config struct {
	// Concurrency bounds simultaneous in-flight target tasks. Never
	// unbounded; zero selects the default.
	Concurrency int

	// RunDeadline bounds one full pass. Zero disables the deadline.
	RunDeadline time.Duration
}

const defaultConcurrency = 10

// Orchestrator owns one run at a time. Failure isolation is the primary
// invariant: no target's error ever aborts another target or the run.
type Orchestrator struct {
	cfg           Config
	fetcher       watch.Fetcher
	classifier    *classify.Classifier
	parsers       *parse.Registry
	fingerprinter watch.Fingerprinter
	detector      *detect.Detector
	gateway       watch.SnapshotGateway
	clock         watch.Clock
	logger        *zap.Logger
}

// New wires an orchestrator. All collaborators are required except the
// clock and logger, which default to the system clock and a nop logger.
func New(
	cfg Config,
	fetcher watch.Fetcher,
	classifier *classify.Classifier,
	parsers *parse.Registry,
	fingerprinter watch.Fingerprinter,
	detector *detect.Detector,
	gateway watch.SnapshotGateway,
	clock watch.Clock,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if fetcher == nil || classifier == nil || parsers == nil || fingerprinter == nil || detector == nil || gateway == nil {
		return nil, fmt.Errorf("pipeline: all stage collaborators are required")
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("pipeline: concurrency must be >= 0")
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if clock == nil {
		clock = watch.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Orchestrator{
		cfg:           cfg,
		fetcher:       fetcher,
		classifier:    classifier,
		parsers:       parsers,
		fingerprinter: fingerprinter,
		detector:      detector,
		gateway:       gateway,
		clock:         clock,
		logger:        logger,
	}, nil
}

// Run processes all targets and returns the aggregated report. The
// report preserves registry order regardless of completion order. An
// empty registry is the only error; per-target failures land in their
// ChangeReport entries instead.
func (o *Orchestrator) Run(ctx context.Context, targets []watch.Target) (watch.RunReport, error) {
	if len(targets) == 0 {
		return watch.RunReport{}, fmt.Errorf("pipeline: target registry is empty")
	}

	report := watch.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: o.clock.Now(),
		Reports:   make([]watch.ChangeReport, len(targets)),
	}
	o.logger.Info("run started",
		zap.String("run_id", report.RunID),
		zap.Int("targets", len(targets)),
		zap.Int("concurrency", o.cfg.Concurrency),
	)

	runCtx := ctx
	var cancel context.CancelFunc
	if o.cfg.RunDeadline > 0 {
		runCtx, cancel = context.WithTimeout(ctx, o.cfg.RunDeadline)
		defer cancel()
	}

	sem := make(chan struct{}, o.cfg.Concurrency)
	fetch := newFetchGroup(o.fetcher)
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target watch.Target) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-runCtx.Done():
				// Never started; still yields a terminal failed report.
				report.Reports[i] = watch.ChangeReport{
					Target: target,
					Stage:  watch.StageFailed,
					Err:    fmt.Errorf("run deadline elapsed before task started: %w", runCtx.Err()),
				}
				metrics.ObserveTarget(target.URL, "timeout")
				return
			}
			defer func() { <-sem }()

			metrics.IncInFlight()
			defer metrics.DecInFlight()
			report.Reports[i] = o.process(runCtx, fetch, target)
		}(i, target)
	}
	wg.Wait()

	report.FinishedAt = o.clock.Now()
	for _, r := range report.Reports {
		switch {
		case r.Failed():
			report.Failed++
		default:
			report.Succeeded++
			if r.HasChanges {
				report.Changed++
			}
		}
	}

	status := "ok"
	if report.Failed > 0 {
		status = "partial"
	}
	metrics.ObserveRun(status, report.FinishedAt.Sub(report.StartedAt))
	o.logger.Info("run finished",
		zap.String("run_id", report.RunID),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("changed", report.Changed),
	)
	return report, nil
}

// process walks one target through the stage machine. Every error is
// converted into the report at the stage it occurred; nothing escapes.
func (o *Orchestrator) process(ctx context.Context, fetch *fetchGroup, target watch.Target) watch.ChangeReport {
	report := watch.ChangeReport{Target: target, Stage: watch.StagePending}
	log := o.logger.With(zap.String("target", target.Name()), zap.String("url", target.URL))

	report.Stage = watch.StageFetching
	fetchStart := o.clock.Now()
	resp, err := fetch.Fetch(ctx, target)
	attempts := resp.Attempts
	if err != nil {
		var fe *watch.FetchError
		if errors.As(err, &fe) {
			attempts = fe.Attempts
		}
	}
	metrics.ObserveFetch(target.URL, attempts, o.clock.Now().Sub(fetchStart))
	if err != nil {
		return o.fail(report, log, err)
	}
	if resp.Rendered {
		metrics.ObserveRenderedFetch()
	}

	report.Stage = watch.StageClassifying
	resolution, err := o.classifier.Resolve(resp)
	if err != nil {
		return o.fail(report, log, err)
	}
	report.ContentType = resolution.ContentType
	report.Diagnostic = resolution.Diagnostic

	report.Stage = watch.StageParsing
	parser, err := o.parsers.Lookup(resolution.ContentType)
	if err != nil {
		return o.fail(report, log, err)
	}
	doc, err := parser.Parse(resp)
	if err != nil {
		return o.fail(report, log, err)
	}
	doc.ContentType = resolution.ContentType
	doc.Diagnostic = resolution.Diagnostic

	report.Stage = watch.StageFingerprinting
	hash, err := o.fingerprinter.Fingerprint(doc)
	if err != nil {
		return o.fail(report, log, err)
	}
	report.NewHash = hash

	report.Stage = watch.StageDiffing
	prior, err := o.gateway.LoadLatest(ctx, target.Key())
	if err != nil {
		return o.fail(report, log, err)
	}
	verdict := o.detector.Compare(doc, hash, prior)
	report.PreviousHash = verdict.PreviousHash
	report.HasChanges = verdict.HasChanges
	report.Summary = verdict.Summary

	snap, err := o.buildSnapshot(target, resp, doc, hash, verdict.HasChanges)
	if err != nil {
		return o.fail(report, log, err)
	}
	if err := o.gateway.Append(ctx, snap); err != nil {
		metrics.ObserveSnapshotWrite("error")
		return o.fail(report, log, err)
	}
	metrics.ObserveSnapshotWrite("ok")

	report.Stage = watch.StageDone
	metrics.ObserveTarget(target.URL, "done")
	if report.HasChanges {
		metrics.ObserveChange(target.URL, string(report.ContentType))
		log.Info("change detected",
			zap.String("content_type", string(report.ContentType)),
			zap.String("summary", report.Summary),
		)
	}
	return report
}

// buildSnapshot renders the append-only row for this observation.
// A row is written on every successful pass, changed or not.
func (o *Orchestrator) buildSnapshot(target watch.Target, resp watch.RawResponse, doc watch.NormalizedDocument, hash string, hasChanges bool) (watch.Snapshot, error) {
	structured, err := parse.Canonical(doc.Structured)
	if err != nil {
		return watch.Snapshot{}, fmt.Errorf("serialize structured data: %w", err)
	}
	return watch.Snapshot{
		URL:            target.URL,
		APIName:        target.APIName,
		MethodName:     target.MethodName,
		ContentType:    doc.ContentType,
		RawContent:     string(resp.Body),
		TextContent:    doc.TextContent,
		StructuredData: structured,
		ContentHash:    hash,
		CreatedAt:      o.clock.Now(),
		HasChanges:     hasChanges,
	}, nil
}

func (o *Orchestrator) fail(report watch.ChangeReport, log *zap.Logger, err error) watch.ChangeReport {
	log.Warn("target failed",
		zap.String("stage", string(report.Stage)),
		zap.Error(err),
	)
	metrics.ObserveTarget(report.Target.URL, "failed")
	report.Err = err
	report.Stage = watch.StageFailed
	return report
}

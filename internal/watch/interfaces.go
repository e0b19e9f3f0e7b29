package watch

import (
	"context"
	"time"
)

// Fetcher retrieves one target's raw response. Implementations own retry
// behavior for transient failures; permanent failures return immediately.
type Fetcher interface {
	Fetch(ctx context.Context, target Target) (RawResponse, error)
}

// Parser normalizes a raw response of one content family.
type Parser interface {
	ContentType() ContentType
	Parse(resp RawResponse) (NormalizedDocument, error)
}

// Fingerprinter derives a stable content hash from a normalized document.
type Fingerprinter interface {
	Fingerprint(doc NormalizedDocument) (string, error)
}

// SnapshotGateway is the core's only access to the external snapshot
// store: load the single most recent snapshot per key, append new ones.
type SnapshotGateway interface {
	LoadLatest(ctx context.Context, key SnapshotKey) (*Snapshot, error)
	Append(ctx context.Context, snap Snapshot) error
}

// Notifier receives the finalized run report. Delivery is external; the
// core's obligation ends at the hand-over.
type Notifier interface {
	Notify(ctx context.Context, report RunReport) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock with time.Now.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/docwatch/docwatch/internal/watch"
)

func TestLogNotifierEmitsChangedAndFailedEntries(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	n := NewLog(zap.New(core))

	report := watch.RunReport{
		RunID: "run-1",
		Reports: []watch.ChangeReport{
			{Target: watch.Target{APIName: "changed"}, HasChanges: true, Summary: "content changed"},
			{Target: watch.Target{APIName: "steady"}, HasChanges: false},
			{Target: watch.Target{APIName: "broken"}, Stage: watch.StageFailed, Err: errors.New("boom")},
		},
		Succeeded: 2,
		Failed:    1,
		Changed:   1,
	}

	require.NoError(t, n.Notify(context.Background(), report))

	require.Len(t, logs.FilterMessage("run report").All(), 1)
	require.Len(t, logs.FilterMessage("target changed").All(), 1)
	require.Len(t, logs.FilterMessage("target failed").All(), 1)
}

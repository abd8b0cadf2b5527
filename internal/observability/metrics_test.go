package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordCommand("login", 12*time.Millisecond, nil)
	RecordCommand("get", 24*time.Millisecond, errors.New("boom"))
	RecordChunkRead()
	RecordTagRefresh("fresh")
	SetTagsLoaded(3)

	if got := testutil.ToFloat64(tagsLoaded); got != 3 {
		t.Fatalf("unexpected tags loaded gauge: %v", got)
	}
	if got := testutil.ToFloat64(protocolCommands.WithLabelValues("get", "error")); got < 1 {
		t.Fatalf("expected get/error counter, got %v", got)
	}
}

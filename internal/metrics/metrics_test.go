package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/api/v1/presentations/:id/export", "202", 0.042)

	counter := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/presentations/:id/export", "202"))
	if counter != 1.0 {
		t.Errorf("Expected counter to be 1.0, got %f", counter)
	}
}

func TestRecordExportLifecycle(t *testing.T) {
	ExportsStartedTotal.Reset()
	ExportsCompletedTotal.Reset()
	ExportsInProgress.Set(0)

	RecordExportStarted("mp4")
	RecordExportStarted("avi")

	inProgress := testutil.ToFloat64(ExportsInProgress)
	if inProgress != 2.0 {
		t.Errorf("Expected 2 exports in progress, got %f", inProgress)
	}

	RecordExportCompleted("completed", "mp4", "high", 95.2)
	RecordExportCompleted("error", "avi", "medium", 12.1)

	completed := testutil.ToFloat64(ExportsCompletedTotal.WithLabelValues("completed", "mp4"))
	if completed != 1.0 {
		t.Errorf("Expected completed counter to be 1.0, got %f", completed)
	}

	failed := testutil.ToFloat64(ExportsCompletedTotal.WithLabelValues("error", "avi"))
	if failed != 1.0 {
		t.Errorf("Expected error counter to be 1.0, got %f", failed)
	}

	inProgress = testutil.ToFloat64(ExportsInProgress)
	if inProgress != 0.0 {
		t.Errorf("Expected 0 exports in progress, got %f", inProgress)
	}
}

func TestRecordSlideFailure(t *testing.T) {
	SlideFailuresTotal.Reset()

	RecordSlideFailure("tts")
	RecordSlideFailure("tts")
	RecordSlideFailure("render")

	tts := testutil.ToFloat64(SlideFailuresTotal.WithLabelValues("tts"))
	if tts != 2.0 {
		t.Errorf("Expected tts failure counter to be 2.0, got %f", tts)
	}
}

func TestUpdateQueueDepth(t *testing.T) {
	UpdateQueueDepth(7)

	depth := testutil.ToFloat64(ExportQueueDepth)
	if depth != 7.0 {
		t.Errorf("Expected queue depth to be 7.0, got %f", depth)
	}
}

func TestRecordCacheAccess(t *testing.T) {
	CacheHits.Reset()
	CacheMisses.Reset()

	RecordCacheAccess("job_status", true)
	RecordCacheAccess("job_status", true)
	RecordCacheAccess("job_status", false)

	hits := testutil.ToFloat64(CacheHits.WithLabelValues("job_status"))
	if hits != 2.0 {
		t.Errorf("Expected 2 hits, got %f", hits)
	}

	misses := testutil.ToFloat64(CacheMisses.WithLabelValues("job_status"))
	if misses != 1.0 {
		t.Errorf("Expected 1 miss, got %f", misses)
	}
}

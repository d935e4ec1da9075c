package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	assessmentsStartedTotal   atomic.Uint64
	assessmentsCompletedTotal atomic.Uint64
	resumeUploadsRejected     atomic.Uint64
	resumeUploadsFailed       atomic.Uint64
	httpPanicsTotal           atomic.Uint64

	stageCallsTotal     = newLabeledCounter()
	stageFallbacksTotal = newLabeledCounter()
	rateLimitedTotal    = newLabeledCounter()

	analysisDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncAssessmentStarted counts a session submitted for analysis.
func IncAssessmentStarted() {
	assessmentsStartedTotal.Add(1)
}

// IncAssessmentCompleted counts a session that received its results.
func IncAssessmentCompleted() {
	assessmentsCompletedTotal.Add(1)
}

// IncStageCall counts a gateway call for the stage.
func IncStageCall(stage string) {
	stageCallsTotal.Inc(stage)
}

// IncStageFallback counts a gateway call that returned fallback data.
func IncStageFallback(stage string) {
	stageFallbacksTotal.Inc(stage)
}

// IncResumeUploadRejected counts uploads failing type or size validation.
func IncResumeUploadRejected() {
	resumeUploadsRejected.Add(1)
}

// IncResumeUploadFailed counts uploads whose text could not be extracted.
func IncResumeUploadFailed() {
	resumeUploadsFailed.Add(1)
}

// IncHTTPPanic counts handler panics turned into 500 responses.
func IncHTTPPanic() {
	httpPanicsTotal.Add(1)
}

// IncRateLimited counts a request refused by the rate limiter.
func IncRateLimited(group string) {
	rateLimitedTotal.Inc(group)
}

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// SinceMs returns the milliseconds elapsed since start.
func SinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "assessments_started_total", "Total assessment sessions started", assessmentsStartedTotal.Load())
	writeCounter(&buf, "assessments_completed_total", "Total assessments that produced results", assessmentsCompletedTotal.Load())
	writeLabeledCounter(&buf, "analysis_stage_calls_total", "Gateway calls by stage", "stage", stageCallsTotal.Snapshot())
	writeLabeledCounter(&buf, "analysis_stage_fallbacks_total", "Gateway calls answered with fallback data by stage", "stage", stageFallbacksTotal.Snapshot())
	writeCounter(&buf, "resume_uploads_rejected_total", "Resume uploads rejected by validation", resumeUploadsRejected.Load())
	writeCounter(&buf, "resume_uploads_failed_total", "Resume uploads whose text extraction failed", resumeUploadsFailed.Load())
	writeCounter(&buf, "http_panics_total", "Handler panics recovered", httpPanicsTotal.Load())
	writeLabeledCounter(&buf, "http_rate_limited_total", "Requests refused by the rate limiter by group", "group", rateLimitedTotal.Snapshot())
	writeHistogram(&buf, "analysis_duration_ms", "Analysis duration in milliseconds", analysisDuration.Snapshot())
	return buf.String()
}

type labeledCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{values: map[string]uint64{}}
}

func (l *labeledCounter) Inc(label string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values[label]++
}

func (l *labeledCounter) Snapshot() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]uint64, len(l.values))
	for k, v := range l.values {
		out[k] = v
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe adds value to the first bucket that holds it; rendering accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

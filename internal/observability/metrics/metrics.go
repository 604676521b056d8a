package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// FanoutLabel identifies a replication fan-out write by originating operation
// and the collection it touched.
type FanoutLabel struct {
	Operation  string
	Collection string
}

// Recorder aggregates in-memory counters for HTTP requests, replication
// fan-out writes, reconciliation repairs, notification deliveries, and
// persistence failures. It coordinates concurrent writers via a RWMutex.
type Recorder struct {
	mu                 sync.RWMutex
	requestCount       map[requestLabel]uint64
	requestDuration    map[requestLabel]time.Duration
	fanoutWrites       map[FanoutLabel]uint64
	reconcileRuns      uint64
	reconcileRepairs   map[string]uint64
	notificationEvents map[string]uint64
	videoEvents        map[string]uint64
	persistFailures    uint64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers
// can record immediately without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:       make(map[requestLabel]uint64),
		requestDuration:    make(map[requestLabel]time.Duration),
		fanoutWrites:       make(map[FanoutLabel]uint64),
		reconcileRepairs:   make(map[string]uint64),
		notificationEvents: make(map[string]uint64),
		videoEvents:        make(map[string]uint64),
	}
}

// Default returns the singleton Recorder shared across helper functions for
// packages that do not require custom instrumentation pipelines.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest normalizes the request label set and accumulates totals for
// request count and cumulative duration by HTTP method, normalized path, and
// status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// ObserveFanout records the number of documents a replication operation wrote
// into a collection. Canonical writes and mirror writes are both counted.
func (r *Recorder) ObserveFanout(operation, collection string, documents int) {
	if documents <= 0 {
		return
	}
	label := FanoutLabel{
		Operation:  normalizeName(operation),
		Collection: normalizeName(collection),
	}
	r.mu.Lock()
	r.fanoutWrites[label] += uint64(documents)
	r.mu.Unlock()
}

// ObserveReconcile records a reconciliation pass and the documents it repaired
// per collection.
func (r *Recorder) ObserveReconcile(repairedUsers, repairedVideos int) {
	r.mu.Lock()
	r.reconcileRuns++
	if repairedUsers > 0 {
		r.reconcileRepairs["users"] += uint64(repairedUsers)
	}
	if repairedVideos > 0 {
		r.reconcileRepairs["videos"] += uint64(repairedVideos)
	}
	r.mu.Unlock()
}

// ObserveNotification records a notification delivery outcome ("delivered" or "skipped").
func (r *Recorder) ObserveNotification(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.notificationEvents[normalized]++
	r.mu.Unlock()
}

// ObserveVideoEvent records a video lifecycle event ("publish", "view", "delete").
func (r *Recorder) ObserveVideoEvent(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.videoEvents[normalized]++
	r.mu.Unlock()
}

// ObservePersistFailure records a failed attempt to persist the dataset.
func (r *Recorder) ObservePersistFailure() {
	r.mu.Lock()
	r.persistFailures++
	r.mu.Unlock()
}

// FanoutCounts returns a copy of the fan-out write counters for reporting and tests.
func (r *Recorder) FanoutCounts() map[FanoutLabel]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[FanoutLabel]uint64, len(r.fanoutWrites))
	for label, value := range r.fanoutWrites {
		counts[label] = value
	}
	return counts
}

// NotificationCounts returns a copy of the notification outcome counters.
func (r *Recorder) NotificationCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]uint64, len(r.notificationEvents))
	for event, value := range r.notificationEvents {
		counts[event] = value
	}
	return counts
}

// ReconcileCounts returns the number of reconciliation runs and repaired
// documents per collection.
func (r *Recorder) ReconcileCounts() (runs uint64, repairs map[string]uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	repairs = make(map[string]uint64, len(r.reconcileRepairs))
	for collection, value := range r.reconcileRepairs {
		repairs[collection] = value
	}
	return r.reconcileRuns, repairs
}

// Reset clears all counters on the recorder. It is intended for test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.fanoutWrites = make(map[FanoutLabel]uint64)
	r.reconcileRuns = 0
	r.reconcileRepairs = make(map[string]uint64)
	r.notificationEvents = make(map[string]uint64)
	r.videoEvents = make(map[string]uint64)
	r.persistFailures = 0
}

// Handler exposes the Recorder as an http.Handler that writes Prometheus text
// exposition data with the appropriate content type.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the Recorder's metrics in Prometheus text format, sorting
// label sets to provide stable output for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	fanoutLabels := r.sortedFanoutLabels()
	repairCollections := sortedKeys(r.reconcileRepairs)
	notificationEvents := sortedKeys(r.notificationEvents)
	videoEvents := sortedKeys(r.videoEvents)

	fmt.Fprintln(w, "# HELP clipstream_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE clipstream_http_requests_total counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "clipstream_http_requests_total{method=%q,path=%q,status=%q} %d\n", label.method, label.path, label.status, r.requestCount[label])
	}

	fmt.Fprintln(w, "# HELP clipstream_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE clipstream_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "clipstream_http_request_duration_seconds_sum{method=%q,path=%q,status=%q} %f\n", label.method, label.path, label.status, r.requestDuration[label].Seconds())
	}

	fmt.Fprintln(w, "# HELP clipstream_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE clipstream_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "clipstream_http_request_duration_seconds_count{method=%q,path=%q,status=%q} %d\n", label.method, label.path, label.status, r.requestCount[label])
	}

	fmt.Fprintln(w, "# HELP clipstream_fanout_writes_total Documents written by replication fan-out, by operation and collection")
	fmt.Fprintln(w, "# TYPE clipstream_fanout_writes_total counter")
	for _, label := range fanoutLabels {
		fmt.Fprintf(w, "clipstream_fanout_writes_total{operation=%q,collection=%q} %d\n", label.Operation, label.Collection, r.fanoutWrites[label])
	}

	fmt.Fprintln(w, "# HELP clipstream_reconcile_runs_total Total reconciliation passes executed")
	fmt.Fprintln(w, "# TYPE clipstream_reconcile_runs_total counter")
	fmt.Fprintf(w, "clipstream_reconcile_runs_total %d\n", r.reconcileRuns)

	fmt.Fprintln(w, "# HELP clipstream_reconcile_repairs_total Documents repaired by reconciliation, by collection")
	fmt.Fprintln(w, "# TYPE clipstream_reconcile_repairs_total counter")
	for _, collection := range repairCollections {
		fmt.Fprintf(w, "clipstream_reconcile_repairs_total{collection=%q} %d\n", collection, r.reconcileRepairs[collection])
	}

	fmt.Fprintln(w, "# HELP clipstream_notification_events_total Notification delivery outcomes by type")
	fmt.Fprintln(w, "# TYPE clipstream_notification_events_total counter")
	for _, event := range notificationEvents {
		fmt.Fprintf(w, "clipstream_notification_events_total{event=%q} %d\n", event, r.notificationEvents[event])
	}

	fmt.Fprintln(w, "# HELP clipstream_video_events_total Video lifecycle events by type")
	fmt.Fprintln(w, "# TYPE clipstream_video_events_total counter")
	for _, event := range videoEvents {
		fmt.Fprintf(w, "clipstream_video_events_total{event=%q} %d\n", event, r.videoEvents[event])
	}

	fmt.Fprintln(w, "# HELP clipstream_persist_failures_total Failed attempts to persist the dataset")
	fmt.Fprintln(w, "# TYPE clipstream_persist_failures_total counter")
	fmt.Fprintf(w, "clipstream_persist_failures_total %d\n", r.persistFailures)
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func (r *Recorder) sortedFanoutLabels() []FanoutLabel {
	labels := make([]FanoutLabel, 0, len(r.fanoutWrites))
	for label := range r.fanoutWrites {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Operation != labels[j].Operation {
			return labels[i].Operation < labels[j].Operation
		}
		return labels[i].Collection < labels[j].Collection
	})
	return labels
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if looksLikeIdentifier(part) {
			parts[i] = ":id"
		}
	}
	normalized := strings.Join(parts, "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasSuffix(normalized, "/") && len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func looksLikeIdentifier(segment string) bool {
	if len(segment) >= 16 {
		return true
	}
	digitCount := 0
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			digitCount++
		}
	}
	return digitCount >= 3
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// ObserveRequest is a helper on the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// ObserveFanout records fan-out writes on the default recorder.
func ObserveFanout(operation, collection string, documents int) {
	defaultRecorder.ObserveFanout(operation, collection, documents)
}

// Handler exposes the default recorder as an HTTP handler.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}

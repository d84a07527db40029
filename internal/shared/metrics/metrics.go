// Package metrics keeps process-local counters for generation and provider
// traffic and renders them in the Prometheus text exposition format.
package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	durationBucketsMs = []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000}

	generationStarted   = newCounterVec("task")
	generationCompleted = newCounterVec("task")
	generationFailed    = newCounterVec("task", "code")
	generationDuration  = newHistogramVec(durationBucketsMs, "task")

	llmCalls   = newCounterVec("provider", "outcome")
	llmRetries = newCounterVec("provider")
	llmTokens  = newCounterVec("provider", "kind")
	llmLatency = newHistogramVec(durationBucketsMs, "provider")

	// GenerationsInFlight counts generation requests between Start and
	// Complete or Fail.
	GenerationsInFlight Gauge
)

func IncGenerationStarted(task string)        { generationStarted.Add(1, task) }
func IncGenerationCompleted(task string)      { generationCompleted.Add(1, task) }
func IncGenerationFailed(task, code string)   { generationFailed.Add(1, task, code) }
func IncLLMCall(provider, outcome string)     { llmCalls.Add(1, provider, outcome) }
func IncLLMRetry(provider string)             { llmRetries.Add(1, provider) }
func ObserveLLMLatencyMs(p string, v float64) { llmLatency.Observe(v, p) }

// ObserveGenerationDurationMs records an end-to-end generation duration.
func ObserveGenerationDurationMs(task string, ms float64) {
	generationDuration.Observe(ms, task)
}

// AddLLMTokens counts prompt and completion tokens reported by a provider.
func AddLLMTokens(provider string, prompt, completion int) {
	if prompt > 0 {
		llmTokens.Add(uint64(prompt), provider, "prompt")
	}
	if completion > 0 {
		llmTokens.Add(uint64(completion), provider, "completion")
	}
}

// SinceMillis returns the elapsed time since start in milliseconds.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// Handler serves Render.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(Render()))
	}
}

// Render writes every metric in exposition format.
func Render() string {
	var buf bytes.Buffer
	generationStarted.write(&buf, "generation_started_total", "Document generations started")
	generationCompleted.write(&buf, "generation_completed_total", "Document generations that persisted a version")
	generationFailed.write(&buf, "generation_failed_total", "Document generations that failed, by error code")
	generationDuration.write(&buf, "generation_duration_ms", "End-to-end generation duration in milliseconds")
	GenerationsInFlight.write(&buf, "generation_in_flight", "Generations currently running")
	llmCalls.write(&buf, "llm_calls_total", "Provider attempts by outcome")
	llmRetries.write(&buf, "llm_retries_total", "Provider attempts that were retried")
	llmTokens.write(&buf, "llm_tokens_total", "Tokens reported by providers")
	llmLatency.write(&buf, "llm_latency_ms", "Provider attempt latency in milliseconds")
	return buf.String()
}

// Gauge is a value that moves both ways.
type Gauge struct {
	v atomic.Int64
}

// Add moves the gauge by delta.
func (g *Gauge) Add(delta int64) { g.v.Add(delta) }

// Value reads the gauge.
func (g *Gauge) Value() int64 { return g.v.Load() }

func (g *Gauge) write(buf *bytes.Buffer, name, help string) {
	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n", name, help, name, name, g.Value())
}

type counterVec struct {
	mu     sync.Mutex
	labels []string
	values map[string]uint64
}

func newCounterVec(labels ...string) *counterVec {
	return &counterVec{labels: labels, values: map[string]uint64{}}
}

func (v *counterVec) Add(n uint64, values ...string) {
	key := labelKey(v.labels, values)
	v.mu.Lock()
	v.values[key] += n
	v.mu.Unlock()
}

func (v *counterVec) write(buf *bytes.Buffer, name, help string) {
	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s counter\n", name, help, name)
	v.mu.Lock()
	keys := sortedKeys(v.values)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s} %d\n", name, k, v.values[k])
	}
	v.mu.Unlock()
}

type histogram struct {
	counts []uint64
	sum    float64
	count  uint64
}

type histogramVec struct {
	mu      sync.Mutex
	labels  []string
	buckets []float64
	series  map[string]*histogram
}

func newHistogramVec(buckets []float64, labels ...string) *histogramVec {
	return &histogramVec{labels: labels, buckets: buckets, series: map[string]*histogram{}}
}

func (v *histogramVec) Observe(value float64, labels ...string) {
	if value < 0 {
		value = 0
	}
	key := labelKey(v.labels, labels)
	v.mu.Lock()
	defer v.mu.Unlock()
	h, ok := v.series[key]
	if !ok {
		h = &histogram{counts: make([]uint64, len(v.buckets))}
		v.series[key] = h
	}
	h.count++
	h.sum += value
	for i, bound := range v.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (v *histogramVec) write(buf *bytes.Buffer, name, help string) {
	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s histogram\n", name, help, name)
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, key := range sortedKeys(v.series) {
		h := v.series[key]
		var cumulative uint64
		for i, bound := range v.buckets {
			cumulative += h.counts[i]
			fmt.Fprintf(buf, "%s_bucket{%s,le=%q} %d\n", name, key, formatFloat(bound), cumulative)
		}
		fmt.Fprintf(buf, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, key, h.count)
		fmt.Fprintf(buf, "%s_sum{%s} %s\n", name, key, formatFloat(h.sum))
		fmt.Fprintf(buf, "%s_count{%s} %d\n", name, key, h.count)
	}
}

func labelKey(names, values []string) string {
	parts := make([]string, len(names))
	for i, name := range names {
		val := ""
		if i < len(values) {
			val = values[i]
		}
		parts[i] = fmt.Sprintf("%s=%q", name, val)
	}
	return strings.Join(parts, ",")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

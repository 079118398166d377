package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Conversion metrics
	activeConversions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bookreader_active_conversions",
		Help: "Number of conversions currently running",
	})

	conversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookreader_conversions_total",
		Help: "Total number of conversion runs",
	}, []string{"status"}) // status: "complete" or "partial"

	conversionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bookreader_conversion_duration_seconds",
		Help:    "Duration of full conversion runs in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	})

	// Chunk metrics
	chunksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookreader_chunks_total",
		Help: "Total number of chunks processed",
	}, []string{"status"}) // status: "completed", "failed", "skipped"

	inFlightChunks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bookreader_chunks_in_flight",
		Help: "Number of chunks currently being synthesized",
	})

	// TTS metrics
	ttsRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookreader_tts_requests_total",
		Help: "Total number of TTS requests",
	}, []string{"status"})

	ttsLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bookreader_tts_latency_seconds",
		Help:    "TTS synthesis latency in seconds",
		Buckets: []float64{0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
	})

	ttsRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookreader_tts_retries_total",
		Help: "Total number of TTS retry attempts",
	})

	audioBytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookreader_audio_bytes_total",
		Help: "Total audio bytes written to storage",
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookreader_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})
)

// RecordConversionStart records the start of a conversion run
func RecordConversionStart() {
	activeConversions.Inc()
}

// RecordConversionEnd records the end of a conversion run
func RecordConversionEnd(start time.Time, fullyComplete bool) {
	activeConversions.Dec()
	conversionDuration.Observe(time.Since(start).Seconds())

	status := "complete"
	if !fullyComplete {
		status = "partial"
	}
	conversionsTotal.WithLabelValues(status).Inc()
}

// RecordChunkCompleted records a chunk whose segment was durably written
func RecordChunkCompleted() {
	chunksProcessed.WithLabelValues("completed").Inc()
}

// RecordChunkFailed records a chunk that permanently failed
func RecordChunkFailed() {
	chunksProcessed.WithLabelValues("failed").Inc()
}

// RecordChunkSkipped records a chunk skipped because a prior run completed it
func RecordChunkSkipped() {
	chunksProcessed.WithLabelValues("skipped").Inc()
}

// RecordChunkInFlight tracks the in-flight chunk gauge
func RecordChunkInFlight(delta int) {
	inFlightChunks.Add(float64(delta))
}

// RecordTTSRequest records the outcome and latency of one TTS call
func RecordTTSRequest(start time.Time, success bool) {
	ttsLatency.Observe(time.Since(start).Seconds())

	status := "success"
	if !success {
		status = "error"
	}
	ttsRequests.WithLabelValues(status).Inc()
}

// RecordTTSRetry increments the retry counter
func RecordTTSRetry() {
	ttsRetries.Inc()
}

// RecordAudioBytes records audio bytes written to storage
func RecordAudioBytes(n int64) {
	audioBytesWritten.Add(float64(n))
}

// RecordError records an error by type and component
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

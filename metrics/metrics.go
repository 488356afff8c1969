package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogEntries tracks the number of indexed entries per content type
	CatalogEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iptv_catalog_entries",
		Help: "Number of catalog entries by content type",
	}, []string{"type"})

	// PlaylistFetches tracks playlist downloads by outcome (direct, proxy, stale, error)
	PlaylistFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_playlist_fetches_total",
		Help: "Total number of playlist fetches by result",
	}, []string{"result"})

	// PlaybackSessionsActive tracks open playback sessions
	PlaybackSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_playback_sessions_active",
		Help: "Number of open playback sessions",
	})

	// PlaybackAttempts tracks attach attempts by strategy and proxy use
	PlaybackAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_playback_attempts_total",
		Help: "Total number of stream attach attempts",
	}, []string{"strategy", "proxy"})

	// PlaybackFailures tracks transport failures by class
	PlaybackFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_playback_failures_total",
		Help: "Total number of playback failures by class",
	}, []string{"class"})

	// PlaybackTerminalErrors tracks sessions that gave up
	PlaybackTerminalErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_playback_terminal_errors_total",
		Help: "Total number of sessions that ended in a terminal error",
	}, []string{"class"})

	// ProgressWrites tracks remote progress writes by result (ok, error, dropped)
	ProgressWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_progress_writes_total",
		Help: "Total number of remote progress writes by result",
	}, []string{"result"})

	// CircuitBreakerState tracks the current state of circuit breakers
	// 0=closed, 1=open, 2=half-open
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iptv_circuit_breaker_state",
		Help: "Current state of circuit breaker (0=closed, 1=open, 2=half-open)",
	}, []string{"name"})

	// CircuitBreakerTrips tracks how many times a circuit breaker transitioned to OPEN
	CircuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_circuit_breaker_trips_total",
		Help: "Total number of times circuit breaker transitioned to OPEN state",
	}, []string{"name"})

	// HTTPRequests tracks served requests by method and status class
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_http_requests_total",
		Help: "Total number of HTTP requests by method and status class",
	}, []string{"method", "status"})

	// HealthCheckFailures tracks health check failures
	HealthCheckFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptv_health_check_failures_total",
		Help: "Total number of health check failures",
	})
)

// SetCatalogEntries updates the entry gauge for a content type
func SetCatalogEntries(contentType string, count int) {
	CatalogEntries.WithLabelValues(contentType).Set(float64(count))
}

// RecordPlaylistFetch increments the playlist fetch counter for a result
func RecordPlaylistFetch(result string) {
	PlaylistFetches.WithLabelValues(result).Inc()
}

// SessionOpened increments the active session gauge
func SessionOpened() {
	PlaybackSessionsActive.Inc()
}

// SessionClosed decrements the active session gauge
func SessionClosed() {
	PlaybackSessionsActive.Dec()
}

// RecordPlaybackAttempt increments the attach attempt counter
func RecordPlaybackAttempt(strategy string, viaProxy bool) {
	proxy := "false"
	if viaProxy {
		proxy = "true"
	}
	PlaybackAttempts.WithLabelValues(strategy, proxy).Inc()
}

// RecordPlaybackFailure increments the failure counter for a class
func RecordPlaybackFailure(class string) {
	PlaybackFailures.WithLabelValues(class).Inc()
}

// RecordTerminalError increments the terminal error counter for a class
func RecordTerminalError(class string) {
	PlaybackTerminalErrors.WithLabelValues(class).Inc()
}

// RecordProgressWrite increments the remote progress write counter
func RecordProgressWrite(result string) {
	ProgressWrites.WithLabelValues(result).Inc()
}

// SetCircuitBreakerState updates the circuit breaker state metric
// state should be one of: "CLOSED" (0), "OPEN" (1), "HALF-OPEN" (2)
func SetCircuitBreakerState(name, state string) {
	var value float64
	switch state {
	case "CLOSED":
		value = 0
	case "OPEN":
		value = 1
	case "HALF-OPEN":
		value = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(value)
}

// RecordCircuitBreakerTrip increments the circuit breaker trip counter
func RecordCircuitBreakerTrip(name string) {
	CircuitBreakerTrips.WithLabelValues(name).Inc()
}

// RecordHealthCheckFailure increments the health check failure counter
func RecordHealthCheckFailure() {
	HealthCheckFailures.Inc()
}

// RecordHTTPRequest increments the request counter. status is collapsed to
// its class (2xx, 4xx, ...).
func RecordHTTPRequest(method string, status int) {
	class := "other"
	if status >= 100 && status < 600 {
		class = strconv.Itoa(status/100) + "xx"
	}
	HTTPRequests.WithLabelValues(method, class).Inc()
}

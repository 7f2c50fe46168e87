package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hotels", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hotels", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hotels", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hotels", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	ExternalRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hotels", Name: "external_retries_total", Help: "Retried outbound requests."},
		[]string{"endpoint", "status"},
	)
	SessionRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hotels", Name: "session_refreshes_total", Help: "Token/cookie acquisitions."},
		[]string{"result"}, // ok|missing_token|error
	)
	PagesFetched = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "hotels", Name: "listing_pages_total", Help: "Listing pages fetched."},
	)
	RecordsPersisted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hotels", Name: "records_total", Help: "Normalized hotels sent to the sink."},
		[]string{"result"}, // ok|error
	)
	CityOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hotels", Name: "cities_total", Help: "Processed cities by outcome."},
		[]string{"outcome"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hotels", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
)

// Serve exposes reg on addr in the background. An empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		HTTPRequests, HTTPLatency,
		ExternalRequests, ExternalLatency, ExternalRetries,
		SessionRefreshes, PagesFetched, RecordsPersisted, CityOutcomes,
		CacheEvents,
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

// ObserveExternal records one outbound call; status 0 means no response.
func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveRetry(endpoint string, status int) {
	ExternalRetries.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

func ObserveSessionRefresh(result string) {
	SessionRefreshes.WithLabelValues(result).Inc()
}

func ObservePage() { PagesFetched.Inc() }

func ObserveRecord(result string) {
	RecordsPersisted.WithLabelValues(result).Inc()
}

func ObserveCity(outcome string) {
	CityOutcomes.WithLabelValues(outcome).Inc()
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

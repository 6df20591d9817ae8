// Package metrics provides Prometheus metrics for the media browser.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	listingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_listings_total",
			Help: "Directory listings by result (ok, empty, error, discarded)",
		},
		[]string{"result"},
	)

	listingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexus_listing_duration_seconds",
			Help:    "Time spent enumerating a directory and resolving its files",
			Buckets: prometheus.DefBuckets,
		},
	)

	skippedFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_listing_skipped_files_total",
			Help: "Files left out of a listing, by reason (unresolvable, unsupported)",
		},
		[]string{"reason"},
	)

	permissionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_permission_outcomes_total",
			Help: "Permission gatekeeper outcomes (granted, rejected, invalid)",
		},
		[]string{"outcome"},
	)

	sessionRestores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_session_restores_total",
			Help: "Launch-time restore attempts by result",
		},
		[]string{"result"},
	)

	storageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_storage_errors_total",
			Help: "Handle store and settings failures by operation",
		},
		[]string{"op"},
	)

	previewsLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_previews_live",
			Help: "Preview URLs created and not yet released",
		},
	)

	previewsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nexus_previews_created_total",
			Help: "Preview URLs created",
		},
	)

	previewsReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nexus_previews_released_total",
			Help: "Preview URLs released",
		},
	)

	thumbnailTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nexus_thumbnail_timeouts_total",
			Help: "Thumbnail generations abandoned at the bounded wait",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordListing records a finished listing.
func RecordListing(result string, d time.Duration) {
	listingsTotal.WithLabelValues(result).Inc()
	listingDuration.Observe(d.Seconds())
}

// RecordDiscardedListing counts a listing superseded by a newer navigation.
func RecordDiscardedListing() {
	listingsTotal.WithLabelValues("discarded").Inc()
}

// RecordSkippedFile counts a file dropped from a listing.
func RecordSkippedFile(reason string) {
	skippedFilesTotal.WithLabelValues(reason).Inc()
}

// RecordPermission counts a gatekeeper outcome.
func RecordPermission(outcome string) {
	permissionOutcomes.WithLabelValues(outcome).Inc()
}

// RecordRestore counts a launch-time restore.
func RecordRestore(result string) {
	sessionRestores.WithLabelValues(result).Inc()
}

// RecordStorageError counts a storage failure.
func RecordStorageError(op string) {
	storageErrors.WithLabelValues(op).Inc()
}

// RecordPreviewCreated counts a created preview URL.
func RecordPreviewCreated() {
	previewsCreated.Inc()
	previewsLive.Inc()
}

// RecordPreviewReleased counts n released preview URLs.
func RecordPreviewReleased(n int) {
	if n <= 0 {
		return
	}
	previewsReleased.Add(float64(n))
	previewsLive.Sub(float64(n))
}

// RecordThumbnailTimeout counts a thumbnail that hit the bounded wait.
func RecordThumbnailTimeout() {
	thumbnailTimeouts.Inc()
}

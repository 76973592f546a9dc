package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "qr_photo"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PhotosUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "photos_uploaded_total",
		Help:      "Photos accepted from guests.",
	})

	PhotoBytesUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "photo_bytes_uploaded_total",
		Help:      "Decoded bytes of accepted photos.",
	})

	UploadsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photo_uploads_rejected_total",
			Help:      "Guest uploads rejected, by error kind.",
		},
		[]string{"kind"},
	)

	ArchivesBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "archives_built_total",
		Help:      "Bulk download archives streamed.",
	})

	ArchivePhotos = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "archive_photos",
		Help:      "Photos per bulk download archive.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	LiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_subscribers",
		Help:      "Open live session feeds.",
	})
)

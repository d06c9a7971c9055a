package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Read outcome labels for RecordReadStop.
const (
	ReadStopConnectionClosed = "connection_closed"
	ReadStopInvalidFrame     = "invalid_frame"
	ReadStopInterrupted      = "interrupted"
	ReadStopInboxDiscarded   = "inbox_discarded"
	ReadStopIO               = "io"
)

var (
	registerOnce sync.Once

	framesRead = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netstring",
			Subsystem: "channel",
			Name:      "frames_read_total",
			Help:      "Frames decoded by reader pumps.",
		},
		[]string{"channel"},
	)
	framesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netstring",
			Subsystem: "channel",
			Name:      "frames_skipped_total",
			Help:      "Frames dropped by the inbound mapper.",
		},
		[]string{"channel"},
	)
	framesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netstring",
			Subsystem: "channel",
			Name:      "frames_written_total",
			Help:      "Frames encoded and written by writer pumps.",
		},
		[]string{"channel"},
	)
	bytesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netstring",
			Subsystem: "channel",
			Name:      "bytes_written_total",
			Help:      "Encoded frame bytes handed to the transport.",
		},
		[]string{"channel"},
	)
	flushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netstring",
			Subsystem: "channel",
			Name:      "flushes_total",
			Help:      "Acknowledged flushes, including terminal sends.",
		},
		[]string{"channel"},
	)
	readStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netstring",
			Subsystem: "channel",
			Name:      "reader_stops_total",
			Help:      "Reader pump exits by reason.",
		},
		[]string{"channel", "reason"},
	)
	writeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netstring",
			Subsystem: "channel",
			Name:      "write_failures_total",
			Help:      "Writer pumps stopped by a transport write or flush failure.",
		},
		[]string{"channel"},
	)
	openChannels = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "netstring",
			Subsystem: "channel",
			Name:      "open",
			Help:      "Channels whose writer pump is running.",
		},
		[]string{"channel"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netstring",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "netstring",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesRead,
			framesSkipped,
			framesWritten,
			bytesWritten,
			flushes,
			readStops,
			writeFailures,
			openChannels,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordFrameRead(channel string) {
	RegisterMetrics()
	framesRead.WithLabelValues(channel).Inc()
}

func RecordFrameSkipped(channel string) {
	RegisterMetrics()
	framesSkipped.WithLabelValues(channel).Inc()
}

func RecordFrameWritten(channel string, size int) {
	RegisterMetrics()
	framesWritten.WithLabelValues(channel).Inc()
	bytesWritten.WithLabelValues(channel).Add(float64(size))
}

func RecordFlush(channel string) {
	RegisterMetrics()
	flushes.WithLabelValues(channel).Inc()
}

func RecordReadStop(channel, reason string) {
	RegisterMetrics()
	readStops.WithLabelValues(channel, reason).Inc()
}

func RecordWriteFailure(channel string) {
	RegisterMetrics()
	writeFailures.WithLabelValues(channel).Inc()
}

// ChannelOpened and ChannelClosed bracket one writer pump lifetime.
func ChannelOpened(channel string) {
	RegisterMetrics()
	openChannels.WithLabelValues(channel).Inc()
}

func ChannelClosed(channel string) {
	RegisterMetrics()
	openChannels.WithLabelValues(channel).Dec()
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readsphere_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "readsphere_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})
)

// Moderation metrics
var (
	ReportsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readsphere_reports_submitted_total",
		Help: "Total number of comment reports submitted",
	})

	AutoRemovalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readsphere_auto_removals_total",
		Help: "Total number of comments removed by the report threshold",
	})

	ModerationActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readsphere_moderation_actions_total",
		Help: "Total number of moderation actions by type",
	}, []string{"action"})

	AuditWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readsphere_audit_write_failures_total",
		Help: "Total number of failed audit log appends (degraded, not fatal)",
	})

	NotificationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readsphere_notification_failures_total",
		Help: "Total number of failed notification deliveries",
	})

	NotificationsDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readsphere_notifications_delivered_total",
		Help: "Total number of in-app notifications delivered",
	})
)

// Business gauges updated on demand
var (
	ReportsPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "readsphere_reports_pending",
		Help: "Number of reports currently awaiting review",
	})
)

// NormalizePath reduces high-cardinality path labels by replacing dynamic
// segments with placeholders. This keeps the metric label space bounded.
func NormalizePath(path string) string {
	segments := splitPath(path)
	if len(segments) < 2 {
		return path
	}

	switch segments[0] {
	case "api":
		switch segments[1] {
		case "comments":
			if len(segments) == 3 {
				return "/api/comments/:id"
			}
			if len(segments) == 4 {
				return "/api/comments/:id/" + segments[3]
			}
		case "books":
			if len(segments) == 3 {
				return "/api/books/:id"
			}
			if len(segments) == 4 {
				return "/api/books/:id/" + segments[3]
			}
		}
	case "_mod":
		if segments[1] == "reports" && len(segments) == 4 {
			return "/_mod/reports/:id/" + segments[3]
		}
	}

	return path
}

func splitPath(path string) []string {
	// Skip leading slash
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	// Split on /
	var segments []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			if i > start {
				segments = append(segments, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		segments = append(segments, path[start:])
	}
	return segments
}

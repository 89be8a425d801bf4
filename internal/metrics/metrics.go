// Package metrics holds the Prometheus collectors for leadportal. They are
// registered with the default registry on import and served by promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "leadportal"

var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests handled, by method and status code.",
	},
	[]string{"method", "code"},
)

var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Time spent serving HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method"},
)

var CSRFRejectionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "csrf_rejections_total",
		Help:      "State-changing requests refused for a missing or invalid CSRF token.",
	},
)

// LoginsTotal counts login attempts.
// Labels:
//   - portal: "admin" or "partner"
//   - result: "success", "invalid", "disabled"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Login attempts, by portal and result.",
	},
	[]string{"portal", "result"},
)

var InvitesCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invites_created_total",
		Help:      "Partner invites issued.",
	},
)

// RedemptionsTotal counts invite redemption outcomes: "success", "used",
// "expired", "not_found", "invalid".
var RedemptionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invite_redemptions_total",
		Help:      "Invite redemption attempts, by result.",
	},
	[]string{"result"},
)

var LeadsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "leads_created_total",
		Help:      "Leads submitted through the public form.",
	},
)

var CSVExportsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "csv_exports_total",
		Help:      "Lead CSV exports served.",
	},
)

var FeedFetchesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_fetches_total",
		Help:      "Upstream news feed fetches, by result (ok/error).",
	},
	[]string{"result"},
)

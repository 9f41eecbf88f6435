package middleware

import (
	"mime"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests that matched no route, keeping the label
// set bounded against path scans.
const unmatchedRoute = "unmatched"

const metricsNamespace = "fedi"

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "http_requests_inflight",
		Help:      "HTTP requests currently being served.",
	})

	httpResponseBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "http_response_size_bytes",
		Help:      "HTTP response body size by route.",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 8), // 256B..4MiB
	}, []string{"route"})

	httpMedia = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_responses_by_media_total",
		Help:      "HTTP responses by media kind.",
	}, []string{"media"})

	signedRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "signed_requests_total",
		Help:      "Requests by whether they carried an HTTP signature.",
	}, []string{"signed"})
)

func init() {
	prometheus.MustRegister(httpRequests, httpDuration, httpInflight, httpResponseBytes, httpMedia, signedRequests)
}

// mediaKind buckets a Content-Type into activity, jrd, xrd, html, json or
// other.
func mediaKind(contentType string) string {
	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "other"
	}
	switch mt {
	case "application/activity+json":
		return "activity"
	case "application/ld+json":
		if strings.Contains(params["profile"], "activitystreams") {
			return "activity"
		}
	case "application/jrd+json":
		return "jrd"
	case "application/xrd+xml":
		return "xrd"
	case "text/html":
		return "html"
	case "application/json":
		return "json"
	}
	return "other"
}

// Metrics records Prometheus request metrics labelled by route template.
// Mount promhttp.Handler() next to it to expose them.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInflight.Inc()
		defer httpInflight.Dec()
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if n := c.Writer.Size(); n >= 0 {
			httpResponseBytes.WithLabelValues(route).Observe(float64(n))
		}
		httpMedia.WithLabelValues(mediaKind(c.Writer.Header().Get("Content-Type"))).Inc()
		signedRequests.WithLabelValues(strconv.FormatBool(c.GetHeader("Signature") != "")).Inc()
	}
}

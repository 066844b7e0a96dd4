package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	LessonsUnlocked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lessons_unlocked_total",
			Help: "Lessons unlocked after the previous lesson was completed",
		},
	)

	SubmissionsSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_saved_total",
			Help: "Student submissions written to the KV store",
		},
		[]string{"kind"},
	)

	SubmissionsReviewed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "submissions_reviewed_total",
			Help: "Submissions graded by an educator",
		},
	)

	ParametroRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parametro_rejections_total",
			Help: "Parametro writes rejected by the weight budget",
		},
		[]string{"op"},
	)

	ReconcileRepairs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "submission_reconcile_repairs_total",
			Help: "Relational rows repaired from reviewed KV payloads",
		},
	)
)

var registerOnce sync.Once

// Init 注册全部指标，可重复调用
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			LessonsUnlocked,
			SubmissionsSaved,
			SubmissionsReviewed,
			ParametroRejections,
			ReconcileRepairs,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application-level instruments on a Prometheus registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	enrollments          *prometheus.CounterVec
	paymentNotifications *prometheus.CounterVec
	certificates         *prometheus.CounterVec
	jobRuns              *prometheus.CounterVec
	jobDuration          *prometheus.HistogramVec
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
}

// NewRegistry returns a registry carrying the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return reg
}

// New registers the domain instruments on reg.
func New(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		gatherer: reg,
		enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "certihub_enrollments_total",
			Help: "Enrollment provisioning attempts by authorization mode and outcome.",
		}, []string{"mode", "outcome"}),
		paymentNotifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "certihub_payment_notifications_total",
			Help: "Gateway notifications reconciled by provider, state and outcome.",
		}, []string{"provider", "state", "outcome"}),
		certificates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "certihub_certificates_total",
			Help: "Certificate lifecycle events.",
		}, []string{"action"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "certihub_scheduler_job_runs_total",
			Help: "Scheduler job executions by status.",
		}, []string{"job", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certihub_scheduler_job_duration_seconds",
			Help:    "Scheduler job duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "certihub_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certihub_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	collectors := []prometheus.Collector{
		m.enrollments,
		m.paymentNotifications,
		m.certificates,
		m.jobRuns,
		m.jobDuration,
		m.httpRequests,
		m.httpDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RecordEnrollment(mode, outcome string) {
	if m == nil {
		return
	}
	m.enrollments.WithLabelValues(strings.TrimSpace(mode), strings.TrimSpace(outcome)).Inc()
}

func (m *Metrics) RecordPaymentNotification(provider, state, outcome string) {
	if m == nil {
		return
	}
	m.paymentNotifications.WithLabelValues(strings.TrimSpace(provider), strings.TrimSpace(state), strings.TrimSpace(outcome)).Inc()
}

func (m *Metrics) RecordCertificate(action string) {
	if m == nil {
		return
	}
	m.certificates.WithLabelValues(strings.TrimSpace(action)).Inc()
}

func (m *Metrics) RecordJob(job string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.jobRuns.WithLabelValues(job, status).Inc()
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// GinMiddleware records request counts and latency per matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if m != nil && m.gatherer != nil {
		gatherer = m.gatherer
	}
	return gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "salesdesk"

var (
	// login is dominated by bcrypt, so the upper buckets matter
	httpBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}
	dbBuckets   = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2}
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         prometheus.Gauge

	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	LoginAttempts *prometheus.CounterVec
	CipherOps     *prometheus.CounterVec
	CacheLookups  *prometheus.CounterVec
}

func counter(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func histogram(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal:    counter("http", "requests_total", "HTTP requests by method, route and status.", "method", "route", "status"),
		RequestsDuration: histogram("http", "request_duration_seconds", "HTTP request latency.", httpBuckets, "method", "route", "status"),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Requests currently being served.",
		}),

		DbQueryDuration: histogram("db", "query_duration_seconds", "Store operation latency by logical op.", dbBuckets, "op", "status"),
		DbErrorsTotal:   counter("db", "errors_total", "Store errors by logical op and class.", "op", "class"),

		LoginAttempts: counter("auth", "login_attempts_total", "Login attempts by result (ok, invalid, rejected, error).", "result"),
		CipherOps:     counter("", "cipher_operations_total", "Password cipher operations by op and result.", "op", "result"),
		CacheLookups:  counter("cache", "lookups_total", "User cache lookups by result (hit, miss).", "result"),
	}

	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.LoginAttempts, p.CipherOps, p.CacheLookups,
	)
	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		p.InFlight.Inc()
		start := time.Now()

		ctx.Next()

		p.InFlight.Dec()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		labels := prometheus.Labels{
			"method": ctx.Request.Method,
			"route":  route,
			"status": strconv.Itoa(ctx.Writer.Status()),
		}

		p.RequestsTotal.With(labels).Inc()
		p.RequestsDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}

// ObserveLogin satisfies auth.LoginObserver.
func (p *Prom) ObserveLogin(result string) {
	p.LoginAttempts.WithLabelValues(result).Inc()
}

// ObserveCipher satisfies security.CipherObserver.
func (p *Prom) ObserveCipher(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.CipherOps.WithLabelValues(op, result).Inc()
}

// ObserveCache satisfies cached.Observer.
func (p *Prom) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.CacheLookups.WithLabelValues(result).Inc()
}

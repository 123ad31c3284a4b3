package cli

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mchmarny/defaultrisk/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "defaultrisk"

// Rejection reasons.
const (
	reasonBadRequest = "bad_request"
	reasonDomain     = "domain"
	reasonSchema     = "schema"
	reasonInternal   = "internal"
)

type metrics struct {
	reg         *prometheus.Registry
	predictions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

func newMetrics(reg *prometheus.Registry) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(reg)
	return &metrics{
		reg: reg,
		predictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "predictions_total",
			Help:      "Scored records by endpoint and decision.",
		}, []string{"endpoint", "prediction"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rejections_total",
			Help:      "Rejected requests by endpoint and reason.",
		}, []string{"endpoint", "reason"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *metrics) scored(endpoint string, preds []model.Prediction) {
	for _, p := range preds {
		m.predictions.WithLabelValues(endpoint, strconv.Itoa(p.Prediction)).Inc()
	}
}

func (m *metrics) rejected(endpoint, reason string) {
	m.rejections.WithLabelValues(endpoint, reason).Inc()
}

func (m *metrics) observe(route string, status int, d time.Duration) {
	m.duration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}

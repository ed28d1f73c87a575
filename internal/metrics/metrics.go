// Package metrics exposes quiz and HTTP counters to Prometheus.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements app.Metrics and instruments HTTP handlers.
type Recorder struct {
	submissions     *prometheus.CounterVec
	sessions        *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewRecorder registers the collectors on reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_submissions_total",
				Help: "Quiz submissions by track and result",
			},
			[]string{"track", "result"},
		),
		sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_sessions_finished_total",
				Help: "Finished live quiz sessions",
			},
			[]string{"celebrated"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
	}
	for _, c := range []prometheus.Collector{r.submissions, r.sessions, r.requests, r.requestDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) DailySubmitted(increased bool) {
	result := "credited"
	if !increased {
		result = "already_completed"
	}
	r.submissions.WithLabelValues("daily", result).Inc()
}

func (r *Recorder) PracticeSubmitted() {
	r.submissions.WithLabelValues("practice", "credited").Inc()
}

func (r *Recorder) QuizFinished(celebrate bool) {
	r.sessions.WithLabelValues(strconv.FormatBool(celebrate)).Inc()
}

// Instrument wraps h and records requests under the route label.
func (r *Recorder) Instrument(route string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(sw, req)

		r.requests.WithLabelValues(req.Method, route, strconv.Itoa(sw.status)).Inc()
		r.requestDuration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the instrumentation.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

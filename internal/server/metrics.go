package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sms_http_requests_total",
		Help: "HTTP requests by method and status.",
	}, []string{"method", "status"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sms_login_attempts_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	importedScores = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sms_marksheet_scores_imported_total",
		Help: "Score cells written by marksheet imports.",
	})
)

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)
		httpRequests.WithLabelValues(r.Method, strconv.Itoa(ww.status)).Inc()
	})
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

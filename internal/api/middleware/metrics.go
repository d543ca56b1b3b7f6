// metrics.go — Prometheus HTTP метрики сервиса.
// Регистрирует метрики: fv_http_requests_total, fv_http_request_duration_seconds.
// Нормализация путей предотвращает взрывной рост кардинальности.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики сервиса
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fv_http_requests_total",
			Help: "Общее количество HTTP-запросов к сервису",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fv_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к сервису в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем идентификаторы на {id} для предотвращения кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет идентификаторы в сегментах пути на шаблоны
// для предотвращения взрывного роста кардинальности метрик.
// /api/v1/files/a1b2c3d4-...            → /api/v1/files/{id}
// /api/v1/files/a1b2c3d4-.../reindex    → /api/v1/files/{id}/reindex
// /api/v1/vaults/team-docs/recent       → /api/v1/vaults/{id}/recent
func normalizePath(path string) string {
	// Статические пути — возвращаем как есть
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/v1/files/search":
		return path
	}

	// Динамические пути с UUID файла
	const filesPrefix = "/api/v1/files/"
	if strings.HasPrefix(path, filesPrefix) && len(path) > len(filesPrefix) {
		suffix := ""
		if len(path) > len(filesPrefix)+36 {
			suffix = path[len(filesPrefix)+36:]
		}
		switch suffix {
		case "/invalidate":
			return "/api/v1/files/{id}/invalidate"
		case "/reindex":
			return "/api/v1/files/{id}/reindex"
		default:
			return "/api/v1/files/{id}"
		}
	}

	// Динамические пути с идентификатором vault
	const vaultsPrefix = "/api/v1/vaults/"
	if strings.HasPrefix(path, vaultsPrefix) && len(path) > len(vaultsPrefix) {
		rest := path[len(vaultsPrefix):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			switch rest[i:] {
			case "/recent":
				return "/api/v1/vaults/{id}/recent"
			case "/suggestions":
				return "/api/v1/vaults/{id}/suggestions"
			}
		}
		return "/api/v1/vaults/{id}"
	}

	return path
}

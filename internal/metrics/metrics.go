package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "skillswap"

var (
	// Registry содержит коллекторы приложения
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	swapTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swaps",
			Name:      "transitions_total",
			Help:      "Swap requests created or moved to a status.",
		},
		[]string{"status"},
	)

	feedbackEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "events_total",
			Help:      "Feedback submitted, revised or removed.",
		},
		[]string{"action"},
	)

	notificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Notifications stored, by type.",
		},
		[]string{"type"},
	)

	notificationsPushed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "pushed_total",
			Help:      "Live pushes to websocket connections.",
		},
		[]string{"result"},
	)

	notificationsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "swept_total",
			Help:      "Read notifications removed by the retention sweep.",
		},
	)

	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Open websocket connections.",
		},
	)

	emailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "email",
			Name:      "sent_total",
			Help:      "Outbound emails by template and result.",
		},
		[]string{"template", "result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		swapTransitions,
		feedbackEvents,
		notificationsCreated,
		notificationsPushed,
		notificationsSwept,
		wsConnections,
		emailsSent,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler отдает метрики в формате Prometheus
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RequestStarted учитывает начало запроса и возвращает функцию завершения
func RequestStarted() func(method, path string, status int) {
	start := time.Now()
	httpInFlight.Inc()
	return func(method, path string, status int) {
		httpInFlight.Dec()
		httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordSwapTransition учитывает создание или смену статуса обмена
func RecordSwapTransition(status string) {
	swapTransitions.WithLabelValues(status).Inc()
}

// RecordFeedback учитывает действие с отзывом: submitted, revised, removed
func RecordFeedback(action string) {
	feedbackEvents.WithLabelValues(action).Inc()
}

// RecordNotification учитывает сохраненное уведомление
func RecordNotification(notificationType string, n int) {
	notificationsCreated.WithLabelValues(notificationType).Add(float64(n))
}

// RecordPush учитывает доставку уведомления в живое соединение
func RecordPush(delivered bool) {
	result := "no_connection"
	if delivered {
		result = "delivered"
	}
	notificationsPushed.WithLabelValues(result).Inc()
}

// RecordSweep учитывает удаленные при очистке уведомления
func RecordSweep(deleted int64) {
	notificationsSwept.Add(float64(deleted))
}

// WSConnected и WSDisconnected отслеживают открытые соединения
func WSConnected()    { wsConnections.Inc() }
func WSDisconnected() { wsConnections.Dec() }

// RecordEmail учитывает отправку письма
func RecordEmail(template string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	emailsSent.WithLabelValues(template, result).Inc()
}

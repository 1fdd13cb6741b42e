// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Исходы редиректа
const (
	OutcomeResolved     = "resolved"
	OutcomeShortCircuit = "short_circuit"
	OutcomeNotFound     = "not_found"
)

// Этапы конвейера кликов
const (
	StageSubmitted     = "submitted"
	StageDropped       = "dropped"
	StageRecorded      = "recorded"
	StageFailed        = "failed"
	StagePublished     = "published"
	StagePublishFailed = "publish_failed"
)

var (
	// Redirects считает запросы на короткие коды по исходу
	Redirects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortlink_redirects_total",
		Help: "Количество обработанных переходов по коротким ссылкам",
	}, []string{"outcome"})

	// ClickStages считает события кликов на каждом этапе конвейера
	ClickStages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortlink_click_events_total",
		Help: "Количество событий кликов на каждом этапе конвейера аналитики",
	}, []string{"stage"})

	// ClickQueueLength текущая длина очереди аналитики
	ClickQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shortlink_click_queue_length",
		Help: "Количество кликов, ожидающих записи",
	})

	// ClickProcessingDuration время записи одного клика, включая повторы
	ClickProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shortlink_click_processing_duration_seconds",
		Help:    "Время записи клика в журнал",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	// LinksCreated считает созданные ссылки по способу получения кода
	LinksCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortlink_links_created_total",
		Help: "Количество ссылок, выданных сервисом",
	}, []string{"kind"}) // kind: generated, custom, deduplicated

	// CacheLookups считает обращения к кэшу ссылок
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortlink_cache_lookups_total",
		Help: "Обращения к кэшу активных ссылок",
	}, []string{"result"}) // result: hit, miss, error, stale, invalidation_failed

	// HTTPRequestDuration время обработки HTTP-запросов
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shortlink_http_request_duration_seconds",
		Help:    "Время ответа HTTP API",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler отдает метрики в формате Prometheus
func Handler() http.Handler {
	return promhttp.Handler()
}

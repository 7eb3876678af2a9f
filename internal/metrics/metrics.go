// Package metrics собирает Prometheus метрики переводов, шины и сессий.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Исходы перевода для метки outcome
const (
	OutcomeCommitted   = "committed"
	OutcomeValidation  = "validation"
	OutcomeNotFound    = "not_found"
	OutcomeMembership  = "membership"
	OutcomePersistence = "persistence"
)

// MetricsCollector интерфейс, через который сервисы, шина и hub пишут метрики.
type MetricsCollector interface {
	RecordTransfer(outcome string)
	RecordTransferLatency(d time.Duration)
	RecordEventPublished(eventType string)
	RecordEventDropped(eventType string)
	SessionOpened()
	SessionClosed()
	SubscriptionAdded()
	SubscriptionRemoved()
}

// Collector реализация MetricsCollector поверх client_golang.
type Collector struct {
	transfers       *prometheus.CounterVec
	transferLatency prometheus.Histogram
	eventsPublished *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	sessions        prometheus.Gauge
	subscriptions   prometheus.Gauge
}

// NewCollector создает Collector и регистрирует метрики в reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoreroom_transfers_total",
			Help: "Переводы по исходу",
		}, []string{"outcome"}),
		transferLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scoreroom_transfer_commit_seconds",
			Help:    "Длительность атомарной фиксации перевода",
			Buckets: prometheus.DefBuckets,
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoreroom_bus_events_published_total",
			Help: "События, опубликованные в шину комнат",
		}, []string{"type"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoreroom_bus_events_dropped_total",
			Help: "События, не доставленные подписчику из-за переполненного буфера",
		}, []string{"type"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scoreroom_ws_sessions",
			Help: "Открытые WebSocket сессии",
		}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scoreroom_room_subscriptions",
			Help: "Активные подписки сессий на комнаты",
		}),
	}

	reg.MustRegister(
		c.transfers,
		c.transferLatency,
		c.eventsPublished,
		c.eventsDropped,
		c.sessions,
		c.subscriptions,
	)

	return c
}

func (c *Collector) RecordTransfer(outcome string) {
	c.transfers.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordTransferLatency(d time.Duration) {
	c.transferLatency.Observe(d.Seconds())
}

func (c *Collector) RecordEventPublished(eventType string) {
	c.eventsPublished.WithLabelValues(eventType).Inc()
}

func (c *Collector) RecordEventDropped(eventType string) {
	c.eventsDropped.WithLabelValues(eventType).Inc()
}

func (c *Collector) SessionOpened()       { c.sessions.Inc() }
func (c *Collector) SessionClosed()       { c.sessions.Dec() }
func (c *Collector) SubscriptionAdded()   { c.subscriptions.Inc() }
func (c *Collector) SubscriptionRemoved() { c.subscriptions.Dec() }

// Handler отдает метрики из g в формате Prometheus.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Nop ничего не записывает.
type Nop struct{}

func (Nop) RecordTransfer(string)               {}
func (Nop) RecordTransferLatency(time.Duration) {}
func (Nop) RecordEventPublished(string)         {}
func (Nop) RecordEventDropped(string)           {}
func (Nop) SessionOpened()                      {}
func (Nop) SessionClosed()                      {}
func (Nop) SubscriptionAdded()                  {}
func (Nop) SubscriptionRemoved()                {}

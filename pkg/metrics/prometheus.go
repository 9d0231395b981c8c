// Package metrics собирает Prometheus метрики прогонов лотереи.
// Пакетный запуск пишет их в textfile для node_exporter, долгоживущий
// процесс может отдать их по HTTP.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lottery/pkg/domain"
)

// Фазы прогона для PhaseDuration
const (
	PhaseLoad   = "load"
	PhaseEncode = "encode"
	PhaseSolve  = "solve"
	PhaseDecode = "decode"
	PhaseExport = "export"
)

// Metrics контейнер метрик со своим реестром
type Metrics struct {
	registry *prometheus.Registry

	// Прогоны
	RunsTotal     *prometheus.CounterVec
	FatalErrors   *prometheus.CounterVec
	CacheRequests *prometheus.CounterVec
	PhaseDuration *prometheus.HistogramVec

	// Решатель
	Augmentations prometheus.Gauge
	OraclePasses  prometheus.Gauge
	TotalCost     prometheus.Gauge
	NetworkNodes  prometheus.Gauge

	// Результат
	Persons          prometheus.Gauge
	Withdrawn        prometheus.Gauge
	ChoiceAssigned   *prometheus.GaugeVec
	CategoryFill     *prometheus.GaugeVec
	CategoryOverflow *prometheus.GaugeVec

	// Информация о сервисе
	ServiceInfo *prometheus.GaugeVec

	// Память и GC фазы решения
	Footprint *SolveFootprint
}

// New создаёт метрики в отдельном реестре вместе с Go runtime коллектором
// и замером фазы решения
func New(namespace, subsystem string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_total",
				Help:      "Total number of lottery runs",
			},
			[]string{"status"},
		),

		FatalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fatal_errors_total",
				Help:      "Fatal solver errors by code",
			},
			[]string{"code"},
		),

		CacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_requests_total",
				Help:      "Assignment cache lookups",
			},
			[]string{"result"},
		),

		PhaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "phase_duration_seconds",
				Help:      "Duration of run phases",
				Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"phase"},
		),

		Augmentations: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "augmentations",
				Help:      "Augmenting paths applied in the last run",
			},
		),

		OraclePasses: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "oracle_passes",
				Help:      "Bellman-Ford relaxation passes in the last run",
			},
		),

		TotalCost: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "total_cost",
				Help:      "Total cost of the last assignment",
			},
		),

		NetworkNodes: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "network_nodes",
				Help:      "Number of nodes in the last flow network",
			},
		),

		Persons: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "persons",
				Help:      "Persons in the last run",
			},
		),

		Withdrawn: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "withdrawn",
				Help:      "Persons withdrawn in the last run",
			},
		),

		ChoiceAssigned: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "choice_assigned",
				Help:      "Placements by tier and choice rank in the last run",
			},
			[]string{"tier", "rank"},
		),

		CategoryFill: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "category_fill_ratio",
				Help:      "Assigned persons divided by maximum size",
			},
			[]string{"category"},
		),

		CategoryOverflow: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "category_overflow",
				Help:      "Persons placed in the overflow band",
			},
			[]string{"category"},
		),

		ServiceInfo: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	m.Footprint = NewSolveFootprint(namespace, subsystem)
	reg.MustRegister(collectors.NewGoCollector(), m.Footprint)
	return m
}

// Registry возвращает реестр метрик
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRun записывает исход прогона
func (m *Metrics) RecordRun(success, cached bool) {
	status := "success"
	switch {
	case !success:
		status = "error"
	case cached:
		status = "cached"
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

// RecordFatal считает фатальную ошибку решателя
func (m *Metrics) RecordFatal(code string) {
	m.FatalErrors.WithLabelValues(code).Inc()
}

// RecordCache записывает результат обращения к кэшу
func (m *Metrics) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// ObservePhase записывает длительность фазы прогона
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordSolve записывает показатели решателя
func (m *Metrics) RecordSolve(nodes, augmentations, passes int, totalCost int64) {
	m.NetworkNodes.Set(float64(nodes))
	m.Augmentations.Set(float64(augmentations))
	m.OraclePasses.Set(float64(passes))
	m.TotalCost.Set(float64(totalCost))
}

// RecordStatistics переносит статистику распределения в gauge метрики.
// Предыдущие значения по уровням и группам сбрасываются.
func (m *Metrics) RecordStatistics(persons int, stats *domain.Statistics) {
	m.Persons.Set(float64(persons))
	m.Withdrawn.Set(float64(stats.Withdrawn))

	m.ChoiceAssigned.Reset()
	for _, ts := range stats.Tiers {
		for rank, n := range ts.Choices {
			m.ChoiceAssigned.WithLabelValues(ts.Tier.String(), strconv.Itoa(rank+1)).Set(float64(n))
		}
	}

	m.CategoryFill.Reset()
	m.CategoryOverflow.Reset()
	for _, cs := range stats.Categories {
		m.CategoryFill.WithLabelValues(cs.Name).Set(cs.FillRatio())
		m.CategoryOverflow.WithLabelValues(cs.Name).Set(float64(cs.Overflow))
	}
}

// SetServiceInfo устанавливает информацию о сервисе
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// WriteTextfile записывает метрики в формате node_exporter textfile collector.
// Файл пишется атомарно через временный файл.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Handler возвращает HTTP handler для /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve поднимает HTTP сервер метрик и останавливает его при отмене ctx
func (m *Metrics) Serve(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // health endpoint, ошибка записи не критична
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx) //nolint:errcheck // сервер метрик не критичен
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

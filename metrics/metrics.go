// Package metrics собирает счетчики сканирования в отдельный prometheus-реестр.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Исходы обработки документа
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Recorder принимает события сканера. Реализация по умолчанию пишет в prometheus,
// Nop ничего не делает.
type Recorder interface {
	Document(format, outcome string)
	INNs(n int)
	Folder(empty bool)
	ScanDuration(d time.Duration)
}

// Service метрики сканера
type Service struct {
	registry  *prometheus.Registry
	documents *prometheus.CounterVec
	inns      prometheus.Counter
	folders   *prometheus.CounterVec
	duration  prometheus.Histogram
}

// New регистрирует метрики в собственном реестре, чтобы тесты и повторные
// инициализации не конфликтовали с глобальным реестром.
func New() *Service {
	s := &Service{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "innscan",
			Name:      "documents_total",
			Help:      "Обработанные документы по формату и исходу.",
		}, []string{"format", "outcome"}),
		inns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "innscan",
			Name:      "inn_matches_total",
			Help:      "Найденные вхождения ИНН (до дедупликации).",
		}),
		folders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "innscan",
			Name:      "folders_total",
			Help:      "Обработанные папки заявок.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "innscan",
			Name:      "scan_duration_seconds",
			Help:      "Длительность полного сканирования.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
	s.registry.MustRegister(s.documents, s.inns, s.folders, s.duration)
	return s
}

func (s *Service) Document(format, outcome string) {
	s.documents.WithLabelValues(format, outcome).Inc()
}

func (s *Service) INNs(n int) {
	if n > 0 {
		s.inns.Add(float64(n))
	}
}

func (s *Service) Folder(empty bool) {
	result := "found"
	if empty {
		result = "empty"
	}
	s.folders.WithLabelValues(result).Inc()
}

func (s *Service) ScanDuration(d time.Duration) {
	s.duration.Observe(d.Seconds())
}

// Registry нужен тестам и внешним экспортерам
func (s *Service) Registry() *prometheus.Registry {
	return s.registry
}

// Handler отдает метрики для /metrics
func (s *Service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

type nop struct{}

func (nop) Document(string, string)   {}
func (nop) INNs(int)                  {}
func (nop) Folder(bool)               {}
func (nop) ScanDuration(time.Duration) {}

// Nop возвращает Recorder без побочных эффектов
func Nop() Recorder { return nop{} }

package loader

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var prefetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fv_prefetch_total",
	Help: "Задачи фонового прогрева по исходу.",
}, []string{"status"})

// prefetchTask — единица работы фонового прогрева.
type prefetchTask func(ctx context.Context) error

// Prefetcher — фоновый executor спекулятивного прогрева кэша
// с ограниченной очередью. Задержка перед выполнением даёт
// пользовательскому запросу уйти первым; ошибки задач логируются
// и проглатываются — prefetch никогда не влияет на путь запроса.
type Prefetcher struct {
	tasks  chan prefetchTask
	delay  time.Duration
	logger *slog.Logger
}

// NewPrefetcher создаёт executor. queueSize ограничивает число
// ожидающих задач, delay — пауза перед выполнением каждой.
func NewPrefetcher(queueSize int, delay time.Duration, logger *slog.Logger) *Prefetcher {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Prefetcher{
		tasks:  make(chan prefetchTask, queueSize),
		delay:  delay,
		logger: logger.With(slog.String("component", "prefetcher")),
	}
}

// Submit ставит задачу в очередь без блокировки.
// Возвращает false, если очередь заполнена (задача отброшена).
func (p *Prefetcher) Submit(task prefetchTask) bool {
	select {
	case p.tasks <- task:
		return true
	default:
		prefetchTotal.WithLabelValues("dropped").Inc()
		p.logger.Debug("Очередь prefetch заполнена, задача отброшена")
		return false
	}
}

// Run — рабочий цикл executor'а. Блокируется до отмены ctx.
func (p *Prefetcher) Run(ctx context.Context) {
	p.logger.Info("Prefetcher запущен",
		slog.Int("queue_size", cap(p.tasks)),
		slog.Duration("delay", p.delay),
	)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Prefetcher остановлен")
			return
		case task := <-p.tasks:
			if p.delay > 0 {
				select {
				case <-ctx.Done():
					p.logger.Info("Prefetcher остановлен")
					return
				case <-time.After(p.delay):
				}
			}
			if err := task(ctx); err != nil {
				prefetchTotal.WithLabelValues("error").Inc()
				p.logger.Debug("Ошибка задачи prefetch",
					slog.String("error", err.Error()),
				)
				continue
			}
			prefetchTotal.WithLabelValues("ok").Inc()
		}
	}
}

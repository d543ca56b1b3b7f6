// Пакет loader — оркестратор трёхъярусного пути чтения метаданных файлов.
// Отвечает на «дай страницу N файлов по запросу Q» с минимальной задержкой,
// какую позволяют живые нижние ярусы, гарантируя корректность: каждый
// идентификатор из поискового яруса резолвится в настоящую запись или
// молча отбрасывается — никогда не фабрикуется.
//
// Ярусы кэша и поиска — best-effort ускорители, не источники истины:
// их отказы проглатываются. Единственный отказ, который виден вызывающему, —
// отказ долговременного хранилища (под ним запасного пути нет).
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/teamdesk/filevault/internal/cache"
	"github.com/teamdesk/filevault/internal/domain/model"
	"github.com/teamdesk/filevault/internal/repository"
	"github.com/teamdesk/filevault/internal/search"
)

// Ошибки загрузчика.
var (
	// ErrNotFound — файл не найден ни в одном ярусе.
	ErrNotFound = errors.New("файл не найден")
)

// Prometheus-метрики загрузчика.
var (
	loadPageDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fv_load_page_duration_seconds",
		Help:    "Полная длительность loadPage (все ярусы).",
		Buckets: prometheus.DefBuckets,
	})
	fallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fv_fallback_total",
		Help: "Количество страниц, отданных деградированным путём (прямой запрос к хранилищу).",
	})
	resolutionGapsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fv_resolution_gaps_total",
		Help: "Идентификаторы из индекса, не зарезолвившиеся ни в кэше, ни в хранилище (отброшены).",
	})
)

// Параметры пагинации и кэша подсказок.
const (
	defaultPageSize     = 50
	maxPageSize         = 500
	suggestionCacheSize = 512
	suggestionCacheTTL  = 30 * time.Second
)

// Loader — умный загрузчик: координирует поисковый ярус, ярус кэша
// и долговременное хранилище. Оба ускоряющих яруса опциональны —
// при недоступности загрузчик прозрачно падает на прямой путь
// к хранилищу с in-process фильтрацией и фасетами.
type Loader struct {
	files      repository.FileRepository
	cache      cache.FileCache
	index      search.FileIndex
	prefetcher *Prefetcher
	// Мемоизация подсказок автокомплита: короткий TTL поверх
	// запроса к индексу (та же обёртка, что expirable LRU кэша записей)
	suggestions *expirable.LRU[string, []string]
	logger      *slog.Logger
}

// New создаёт загрузчик. prefetcher может быть nil —
// тогда фоновый look-ahead отключён.
func New(
	files repository.FileRepository,
	fileCache cache.FileCache,
	index search.FileIndex,
	prefetcher *Prefetcher,
	logger *slog.Logger,
) *Loader {
	return &Loader{
		files:       files,
		cache:       fileCache,
		index:       index,
		prefetcher:  prefetcher,
		suggestions: expirable.NewLRU[string, []string](suggestionCacheSize, nil, suggestionCacheTTL),
		logger:      logger.With(slog.String("component", "smart_loader")),
	}
}

// LoadPage возвращает страницу файлов по параметрам поиска.
//
// Быстрая ветка: индекс → кэш (bulk) → хранилище (только промахи) →
// пересборка в порядке ранжирования индекса. Деградированная ветка:
// индекс недоступен или не дал ни одного идентификатора — вся работа
// делегируется loadFromDatabase (пустой результат индекса нельзя путать
// с «файлов нет», истина всегда перевыводится из хранилища).
func (l *Loader) LoadPage(ctx context.Context, params model.FileSearchParams) (*model.PaginatedFiles, error) {
	start := time.Now()
	params = normalizeParams(params)

	hits, err := l.index.Search(ctx, params)
	if err != nil {
		// Отказ яруса поиска — не ошибка запроса: деградируем
		l.logger.Warn("Ярус поиска вернул ошибку, переключение на хранилище",
			slog.String("vault_id", params.VaultID),
			slog.String("error", err.Error()),
		)
	}

	if err != nil || !l.index.IsAvailable() || len(hits.FileIDs) == 0 {
		fallbackTotal.Inc()
		result, dbErr := l.loadFromDatabase(ctx, params)
		if dbErr != nil {
			return nil, dbErr
		}
		result.TookMs = time.Since(start).Milliseconds()
		loadPageDuration.Observe(time.Since(start).Seconds())
		return result, nil
	}

	// Bulk-чтение кэша; отсутствующие ключи — промахи
	cached := l.cache.GetMany(ctx, hits.FileIDs)

	missing := make([]string, 0, len(hits.FileIDs))
	for _, id := range hits.FileIDs {
		if _, ok := cached[id]; !ok {
			missing = append(missing, id)
		}
	}

	// Промахи добираем из хранилища — единственный вызов,
	// отказ которого обязан быть виден вызывающему
	fetched := map[string]*model.FileRecord{}
	if len(missing) > 0 {
		records, err := l.files.GetManyByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("bulk-чтение из хранилища: %w", err)
		}
		for _, r := range records {
			fetched[r.ID] = r
		}
		// Best-effort прогрев кэша свежепрочитанными записями
		if len(records) > 0 {
			l.cache.SetMany(ctx, records)
		}
	}

	// Позиционная пересборка в исходном порядке индекса: это не пересортировка.
	// Идентификаторы без записи (удалены между индексацией и чтением)
	// молча отбрасываются; Total остаётся кардинальностью индекса.
	files := make([]*model.FileRecord, 0, len(hits.FileIDs))
	dropped := 0
	for _, id := range hits.FileIDs {
		if r, ok := cached[id]; ok {
			files = append(files, r)
			continue
		}
		if r, ok := fetched[id]; ok {
			files = append(files, r)
			continue
		}
		dropped++
	}
	if dropped > 0 {
		resolutionGapsTotal.Add(float64(dropped))
		l.logger.Debug("Отброшены нерезолвящиеся идентификаторы индекса",
			slog.String("vault_id", params.VaultID),
			slog.Int("dropped", dropped),
		)
	}

	total := hits.Total
	hasMore := (params.Page+1)*params.PageSize < total

	// Спекулятивный прогрев следующей страницы — вне жизненного цикла запроса
	if hasMore {
		l.schedulePrefetch(params)
	}

	took := time.Since(start)
	loadPageDuration.Observe(took.Seconds())

	return &model.PaginatedFiles{
		Files:    files,
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
		HasMore:  hasMore,
		Facets:   hits.Facets,
		TookMs:   took.Milliseconds(),
	}, nil
}

// GetFile возвращает одну запись: сначала кэш, при промахе — хранилище
// с прогревом кэша перед возвратом.
func (l *Loader) GetFile(ctx context.Context, fileID string) (*model.FileRecord, error) {
	if record := l.cache.Get(ctx, fileID); record != nil {
		l.logger.Debug("Кэш hit для файла", slog.String("file_id", fileID))
		return record, nil
	}

	record, err := l.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("чтение файла из хранилища: %w", err)
	}

	l.cache.Set(ctx, record)
	return record, nil
}

// InvalidateFile конкурентно инвалидирует записи файла в кэше и индексе.
// Вызывается после внешнего update/delete. Отказы ярусов проглатываются —
// оба яруса best-effort, следующий TTL/reindex их догонит.
func (l *Loader) InvalidateFile(ctx context.Context, fileID string) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		l.cache.Invalidate(ctx, fileID)
	}()
	go func() {
		defer wg.Done()
		if err := l.index.DeleteFile(ctx, fileID); err != nil {
			l.logger.Warn("Ошибка удаления из индекса при инвалидации",
				slog.String("file_id", fileID),
				slog.String("error", err.Error()),
			)
		}
	}()

	wg.Wait()
}

// ReindexFile перечитывает авторитетную запись из хранилища и конкурентно
// проталкивает её в кэш и индекс — ресинхронизация обоих производных ярусов
// из единственного источника истины за один проход (без окна устаревания
// «инвалидировал, потом лениво перечитал» для горячих файлов).
// Обе записи используют один и тот же прочитанный снимок.
func (l *Loader) ReindexFile(ctx context.Context, fileID string) error {
	record, err := l.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("чтение файла для переиндексации: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		l.cache.Set(ctx, record)
	}()
	go func() {
		defer wg.Done()
		if err := l.index.IndexFile(ctx, record, ""); err != nil {
			l.logger.Warn("Ошибка записи в индекс при переиндексации",
				slog.String("file_id", fileID),
				slog.String("error", err.Error()),
			)
		}
	}()

	wg.Wait()
	return nil
}

// GetRecent возвращает идентификаторы недавно затронутых файлов vault
// из ranked-структуры яруса кэша.
func (l *Loader) GetRecent(ctx context.Context, vaultID string, limit int) []string {
	return l.cache.GetRecent(ctx, vaultID, limit)
}

// GetSuggestions возвращает префиксные подсказки имён файлов,
// мемоизированные с коротким TTL. Отказ индекса — пустой список.
func (l *Loader) GetSuggestions(ctx context.Context, vaultID, prefix string, limit int) []string {
	key := fmt.Sprintf("%s\x00%s\x00%d", vaultID, prefix, limit)
	if cached, ok := l.suggestions.Get(key); ok {
		return cached
	}

	result, err := l.index.GetSuggestions(ctx, vaultID, prefix, limit)
	if err != nil {
		l.logger.Debug("Ошибка запроса подсказок, возвращён пустой список",
			slog.String("vault_id", vaultID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	l.suggestions.Add(key, result)
	return result
}

// schedulePrefetch ставит прогрев следующей страницы в фоновый executor.
// Неблокирующий: при заполненной очереди задача отбрасывается.
func (l *Loader) schedulePrefetch(params model.FileSearchParams) {
	if l.prefetcher == nil {
		return
	}

	next := prefetchParams(params)
	l.prefetcher.Submit(func(ctx context.Context) error {
		return l.prefetchNextPage(ctx, next)
	})
}

// prefetchParams строит параметры look-ahead окна: удвоенный размер
// страницы («широкая сеть» против краевых промахов на следующем шаге
// скролла). Смещение считается как Page*PageSize, поэтому страница
// берётся как (page+1)/2: окно 2×pageSize всегда целиком накрывает
// следующую страницу (плюс соседнюю — в зависимости от чётности).
func prefetchParams(params model.FileSearchParams) model.FileSearchParams {
	next := params
	next.PageSize = params.PageSize * 2
	next.Page = (params.Page + 1) / 2
	return next
}

// prefetchNextPage повторяет поиск для look-ahead окна, добирает
// отсутствующие в кэше записи из хранилища и прогревает кэш.
// Конкурентные prefetch одной страницы не дедуплицируются: записи
// кэша идемпотентны, last-write-wins.
func (l *Loader) prefetchNextPage(ctx context.Context, params model.FileSearchParams) error {
	hits, err := l.index.Search(ctx, params)
	if err != nil {
		return fmt.Errorf("поиск look-ahead окна: %w", err)
	}
	if len(hits.FileIDs) == 0 {
		return nil
	}

	cached := l.cache.GetMany(ctx, hits.FileIDs)
	missing := make([]string, 0, len(hits.FileIDs))
	for _, id := range hits.FileIDs {
		if _, ok := cached[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	records, err := l.files.GetManyByIDs(ctx, missing)
	if err != nil {
		return fmt.Errorf("чтение look-ahead записей из хранилища: %w", err)
	}
	if len(records) > 0 {
		l.cache.SetMany(ctx, records)
	}

	l.logger.Debug("Prefetch выполнен",
		slog.String("vault_id", params.VaultID),
		slog.Int("warmed", len(records)),
	)
	return nil
}

// normalizeParams нормализует пагинацию.
func normalizeParams(params model.FileSearchParams) model.FileSearchParams {
	if params.Page < 0 {
		params.Page = 0
	}
	if params.PageSize <= 0 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}
	return params
}

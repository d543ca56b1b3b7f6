// Пакет cache — ярус кэша метаданных файлов поверх Redis.
// O(1)-доступ к FileRecord без обращения к хранилищу, с ограниченной
// устареваемостью (TTL). Ярус опционален и деградируем: при выключенном
// флаге или недоступном Redis собирается no-op реализация, и вызывающий
// код ветвится только по IsAvailable(), никогда по ошибкам соединения.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/teamdesk/filevault/internal/domain/model"
)

// FileCache — контракт яруса кэша.
// Все операции fail-soft: транзиентная ошибка Redis трактуется как промах
// (Get/GetMany) или молча проглатывается (Set/Invalidate) — кэш никогда
// не является источником истины и не имеет права ронять путь чтения.
type FileCache interface {
	// IsAvailable — true, если при старте процесса было установлено
	// соединение с Redis. Свойство выбранной реализации, не запроса.
	IsAvailable() bool
	// Get возвращает запись по идентификатору; nil при промахе.
	Get(ctx context.Context, fileID string) *model.FileRecord
	// GetMany возвращает записи по списку идентификаторов одним
	// pipeline round trip. В карте присутствуют только идентификаторы
	// с валидными кэшированными данными — отсутствие ключа это промах.
	GetMany(ctx context.Context, fileIDs []string) map[string]*model.FileRecord
	// Set записывает денормализованные поля записи с TTL и отмечает
	// идентификатор в per-vault ranked-структуре «недавние».
	Set(ctx context.Context, record *model.FileRecord)
	// SetMany — fan-out Set без атомарности между записями:
	// частичный успех допустим, каждая запись TTL'ится и идемпотентна.
	SetMany(ctx context.Context, records []*model.FileRecord)
	// Invalidate удаляет кэшированную запись; идемпотентна.
	Invalidate(ctx context.Context, fileID string)
	// InvalidateMany — fan-out Invalidate.
	InvalidateMany(ctx context.Context, fileIDs []string)
	// GetRecent возвращает идентификаторы недавно затронутых файлов
	// vault, по убыванию времени записи.
	GetRecent(ctx context.Context, vaultID string, limit int) []string
}

// Setup выбирает реализацию яруса кэша на старте процесса.
// Флаг выключен — no-op. Redis недоступен — предупреждение в лог и no-op:
// отсутствие кэша никогда не мешает запуску сервиса.
func Setup(ctx context.Context, enabled bool, redisURL string, ttl time.Duration, logger *slog.Logger) FileCache {
	if !enabled {
		logger.Info("Ярус кэша выключен (ENABLE_REDIS_CACHE != true)")
		return NewNoop()
	}

	c, err := NewRedisCache(ctx, redisURL, ttl, logger)
	if err != nil {
		logger.Warn("Redis недоступен, ярус кэша работает как no-op",
			slog.String("error", err.Error()),
		)
		return NewNoop()
	}
	return c
}

// noopCache — заглушка яруса кэша: безопасна для вызова,
// всегда сообщает IsAvailable() == false.
type noopCache struct{}

// NewNoop создаёт no-op реализацию яруса кэша.
func NewNoop() FileCache {
	return noopCache{}
}

func (noopCache) IsAvailable() bool { return false }

func (noopCache) Get(context.Context, string) *model.FileRecord { return nil }

func (noopCache) GetMany(context.Context, []string) map[string]*model.FileRecord {
	return map[string]*model.FileRecord{}
}

func (noopCache) Set(context.Context, *model.FileRecord) {}

func (noopCache) SetMany(context.Context, []*model.FileRecord) {}

func (noopCache) Invalidate(context.Context, string) {}

func (noopCache) InvalidateMany(context.Context, []string) {}

func (noopCache) GetRecent(context.Context, string, int) []string { return nil }

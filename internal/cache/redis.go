// redis.go — реализация яруса кэша поверх Redis (go-redis/v9).
// Хранение: хэш file:{id} с плоскими строковыми полями + per-vault ZSET
// vault:{id}:recent, ранжированный временем записи.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/teamdesk/filevault/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fv_cache_hits_total",
		Help: "Общее количество попаданий в кэш метаданных.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fv_cache_misses_total",
		Help: "Общее количество промахов кэша метаданных.",
	})
	cacheErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fv_cache_errors_total",
		Help: "Количество проглоченных транзиентных ошибок Redis (трактуются как промахи).",
	})
)

// recentSetMax — сколько недавних идентификаторов держит ZSET каждого vault.
const recentSetMax = 1000

// redisCache — реализация FileCache через go-redis.
type redisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache создаёт ярус кэша и проверяет соединение ping'ом.
// Ошибка здесь означает «кэш не строим» — вызывающий подставит no-op.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration, logger *slog.Logger) (FileCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга REDIS_URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
	}

	logger.Info("Подключение к Redis установлено",
		slog.String("addr", opt.Addr),
		slog.Duration("ttl", ttl),
	)

	return &redisCache{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "file_cache")),
	}, nil
}

// fileKey возвращает ключ хэша записи файла.
func fileKey(fileID string) string {
	return "file:" + fileID
}

// recentKey возвращает ключ ZSET недавних файлов vault.
func recentKey(vaultID string) string {
	return "vault:" + vaultID + ":recent"
}

// IsAvailable — соединение было установлено при старте.
func (c *redisCache) IsAvailable() bool { return true }

// Get возвращает запись по идентификатору; nil при промахе.
// Транзиентная ошибка Redis трактуется как промах, не ошибка.
func (c *redisCache) Get(ctx context.Context, fileID string) *model.FileRecord {
	fields, err := c.rdb.HGetAll(ctx, fileKey(fileID)).Result()
	if err != nil {
		cacheErrorsTotal.Inc()
		c.logger.Debug("Ошибка чтения из кэша, трактуется как промах",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		cacheMissesTotal.Inc()
		return nil
	}

	record := decodeRecord(fields)
	if record == nil {
		cacheMissesTotal.Inc()
		return nil
	}
	cacheHitsTotal.Inc()
	return record
}

// GetMany выполняет batched-чтение одним pipeline round trip.
// В результат попадают только валидные записи; ошибка pipeline
// целиком трактуется как полный промах.
func (c *redisCache) GetMany(ctx context.Context, fileIDs []string) map[string]*model.FileRecord {
	result := make(map[string]*model.FileRecord, len(fileIDs))
	if len(fileIDs) == 0 {
		return result
	}

	pipe := c.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(fileIDs))
	for _, id := range fileIDs {
		cmds[id] = pipe.HGetAll(ctx, fileKey(id))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		cacheErrorsTotal.Inc()
		c.logger.Debug("Ошибка pipeline-чтения из кэша, трактуется как полный промах",
			slog.Int("ids", len(fileIDs)),
			slog.String("error", err.Error()),
		)
		cacheMissesTotal.Add(float64(len(fileIDs)))
		return result
	}

	for id, cmd := range cmds {
		record := decodeRecord(cmd.Val())
		if record == nil {
			cacheMissesTotal.Inc()
			continue
		}
		cacheHitsTotal.Inc()
		result[id] = record
	}
	return result
}

// Set записывает денормализованные поля с TTL и отмечает файл
// в ZSET недавних его vault (score — текущее время).
func (c *redisCache) Set(ctx context.Context, record *model.FileRecord) {
	key := fileKey(record.ID)
	rKey := recentKey(record.VaultID)
	now := float64(time.Now().UnixMilli())

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, encodeRecord(record))
	pipe.Expire(ctx, key, c.ttl)
	pipe.ZAdd(ctx, rKey, redis.Z{Score: now, Member: record.ID})
	// Ограничиваем ranked-структуру и не даём ей жить дольше кэша
	pipe.ZRemRangeByRank(ctx, rKey, 0, int64(-recentSetMax-1))
	pipe.Expire(ctx, rKey, c.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		cacheErrorsTotal.Inc()
		c.logger.Debug("Ошибка записи в кэш, проглочена",
			slog.String("file_id", record.ID),
			slog.String("error", err.Error()),
		)
	}
}

// SetMany — fan-out Set. Атомарности между записями нет и не нужно:
// каждая запись независимо TTL'ится и идемпотентна.
func (c *redisCache) SetMany(ctx context.Context, records []*model.FileRecord) {
	for _, record := range records {
		c.Set(ctx, record)
	}
}

// Invalidate удаляет кэшированную запись и её упоминание в ZSET.
// Идемпотентна: отсутствие ключа не ошибка.
func (c *redisCache) Invalidate(ctx context.Context, fileID string) {
	// VaultID записи неизвестен без чтения — пробуем прочитать,
	// чтобы убрать идентификатор и из ranked-структуры
	fields, err := c.rdb.HGetAll(ctx, fileKey(fileID)).Result()
	if err == nil {
		if vaultID := fields[fieldVaultID]; vaultID != "" {
			_ = c.rdb.ZRem(ctx, recentKey(vaultID), fileID).Err()
		}
	}

	if err := c.rdb.Del(ctx, fileKey(fileID)).Err(); err != nil {
		cacheErrorsTotal.Inc()
		c.logger.Debug("Ошибка инвалидации кэша, проглочена",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
	}
}

// InvalidateMany — fan-out Invalidate.
func (c *redisCache) InvalidateMany(ctx context.Context, fileIDs []string) {
	for _, id := range fileIDs {
		c.Invalidate(ctx, id)
	}
}

// GetRecent возвращает идентификаторы недавно затронутых файлов vault,
// по убыванию времени записи.
func (c *redisCache) GetRecent(ctx context.Context, vaultID string, limit int) []string {
	if limit <= 0 {
		limit = 100
	}

	ids, err := c.rdb.ZRevRange(ctx, recentKey(vaultID), 0, int64(limit-1)).Result()
	if err != nil {
		cacheErrorsTotal.Inc()
		c.logger.Debug("Ошибка чтения недавних файлов, возвращён пустой список",
			slog.String("vault_id", vaultID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return ids
}

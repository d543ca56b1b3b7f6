// elastic.go — реализация яруса поиска поверх Elasticsearch
// (официальный клиент go-elasticsearch).
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/teamdesk/filevault/internal/domain/model"
)

// Prometheus-метрики яруса поиска.
var (
	searchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fv_search_total",
		Help: "Общее количество поисковых запросов к индексу.",
	})
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fv_search_duration_seconds",
		Help:    "Длительность поисковых запросов к индексу.",
		Buckets: prometheus.DefBuckets,
	})
	indexOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fv_index_ops_total",
		Help: "Количество операций записи в индекс (по типу операции).",
	}, []string{"op"})
)

// elasticIndex — реализация FileIndex через go-elasticsearch.
type elasticIndex struct {
	es     *elasticsearch.Client
	index  string
	logger *slog.Logger
}

// NewElasticIndex создаёт ярус поиска и проверяет соединение ping'ом.
// Ошибка здесь означает «индекс не строим» — вызывающий подставит no-op.
func NewElasticIndex(ctx context.Context, esURL, indexName string, logger *slog.Logger) (FileIndex, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента Elasticsearch: %w", err)
	}

	res, err := es.Ping(es.Ping.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ошибка ping Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("Elasticsearch ping вернул статус %s", res.Status())
	}

	logger.Info("Подключение к Elasticsearch установлено",
		slog.String("url", esURL),
		slog.String("index", indexName),
	)

	return &elasticIndex{
		es:     es,
		index:  indexName,
		logger: logger.With(slog.String("component", "file_index")),
	}, nil
}

// IsAvailable — соединение было установлено при старте.
func (e *elasticIndex) IsAvailable() bool { return true }

// SetupIndex идемпотентно создаёт индекс: сначала проверка существования,
// создание только при её отрицательном результате.
func (e *elasticIndex) SetupIndex(ctx context.Context) error {
	exists, err := e.es.Indices.Exists([]string{e.index},
		e.es.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("ошибка проверки существования индекса: %w", err)
	}
	defer exists.Body.Close()

	if exists.StatusCode == 200 {
		e.logger.Debug("Индекс уже существует", slog.String("index", e.index))
		return nil
	}

	res, err := e.es.Indices.Create(e.index,
		e.es.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
		e.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("ошибка создания индекса: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("создание индекса вернуло статус %s", res.Status())
	}

	e.logger.Info("Индекс создан", slog.String("index", e.index))
	return nil
}

// IndexFile делает upsert одного документа.
func (e *elasticIndex) IndexFile(ctx context.Context, record *model.FileRecord, content string) error {
	doc, err := json.Marshal(buildIndexDoc(record, content))
	if err != nil {
		return fmt.Errorf("ошибка сериализации документа: %w", err)
	}

	res, err := e.es.Index(e.index, bytes.NewReader(doc),
		e.es.Index.WithDocumentID(record.ID),
		e.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("ошибка индексации файла %s: %w", record.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("индексация файла %s вернула статус %s", record.ID, res.Status())
	}

	indexOpsTotal.WithLabelValues("index").Inc()
	return nil
}

// BulkIndex делает upsert пачки документов одним bulk-запросом (NDJSON).
func (e *elasticIndex) BulkIndex(ctx context.Context, records []*model.FileRecord) error {
	if len(records) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, record := range records {
		action, err := json.Marshal(map[string]any{
			"index": map[string]any{"_id": record.ID},
		})
		if err != nil {
			return fmt.Errorf("ошибка сериализации bulk-действия: %w", err)
		}
		doc, err := json.Marshal(buildIndexDoc(record, ""))
		if err != nil {
			return fmt.Errorf("ошибка сериализации документа %s: %w", record.ID, err)
		}
		buf.Write(action)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	res, err := e.es.Bulk(bytes.NewReader(buf.Bytes()),
		e.es.Bulk.WithIndex(e.index),
		e.es.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("ошибка bulk-индексации: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk-индексация вернула статус %s", res.Status())
	}

	indexOpsTotal.WithLabelValues("bulk").Add(float64(len(records)))
	return nil
}

// Search выполняет поисковый запрос и возвращает упорядоченные
// идентификаторы, total, took и фасеты.
func (e *elasticIndex) Search(ctx context.Context, params model.FileSearchParams) (*model.SearchHits, error) {
	start := time.Now()
	searchTotal.Inc()

	from := params.Page * params.PageSize
	body, err := json.Marshal(buildSearchBody(params, from, params.PageSize))
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации поискового запроса: %w", err)
	}

	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(e.index),
		e.es.Search.WithBody(bytes.NewReader(body)),
		e.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка поискового запроса: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("поисковый запрос вернул статус %s", res.Status())
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа поиска: %w", err)
	}

	hits := &model.SearchHits{
		FileIDs: make([]string, 0, len(parsed.Hits.Hits)),
		Total:   parsed.Hits.Total.Value,
		TookMs:  parsed.Took,
		Facets:  facetsFromAggregations(parsed.Aggregations),
	}
	for _, h := range parsed.Hits.Hits {
		hits.FileIDs = append(hits.FileIDs, h.ID)
	}

	duration := time.Since(start)
	searchDuration.Observe(duration.Seconds())

	e.logger.Debug("Поиск в индексе выполнен",
		slog.String("vault_id", params.VaultID),
		slog.Int("total", hits.Total),
		slog.Int("returned", len(hits.FileIDs)),
		slog.Duration("duration", duration),
	)

	return hits, nil
}

// DeleteFile удаляет документ из индекса; 404 не ошибка.
func (e *elasticIndex) DeleteFile(ctx context.Context, fileID string) error {
	res, err := e.es.Delete(e.index, fileID,
		e.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("ошибка удаления документа %s: %w", fileID, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("удаление документа %s вернуло статус %s", fileID, res.Status())
	}

	indexOpsTotal.WithLabelValues("delete").Inc()
	return nil
}

// DeleteVaultFiles удаляет все документы vault через delete-by-query.
func (e *elasticIndex) DeleteVaultFiles(ctx context.Context, vaultID string) error {
	body, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"term": map[string]any{"vault_id": vaultID},
		},
	})
	if err != nil {
		return fmt.Errorf("ошибка сериализации delete-by-query: %w", err)
	}

	res, err := e.es.DeleteByQuery([]string{e.index}, bytes.NewReader(body),
		e.es.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("ошибка удаления документов vault %s: %w", vaultID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("удаление документов vault %s вернуло статус %s", vaultID, res.Status())
	}

	indexOpsTotal.WithLabelValues("delete_by_query").Inc()
	return nil
}

// GetSuggestions возвращает префиксные подсказки имён файлов в пределах vault.
// Дубликаты имён схлопываются с сохранением порядка релевантности.
func (e *elasticIndex) GetSuggestions(ctx context.Context, vaultID, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}

	// Запрашиваем с запасом: дубликаты имён по разным версиям схлопнутся
	body, err := json.Marshal(buildSuggestBody(vaultID, prefix, limit*2))
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации запроса подсказок: %w", err)
	}

	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(e.index),
		e.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса подсказок: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("запрос подсказок вернул статус %s", res.Status())
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа подсказок: %w", err)
	}

	seen := map[string]bool{}
	suggestions := make([]string, 0, limit)
	for _, h := range parsed.Hits.Hits {
		name := h.Source.Name
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		suggestions = append(suggestions, name)
		if len(suggestions) >= limit {
			break
		}
	}
	return suggestions, nil
}

// query.go — построение тел запросов и документов Elasticsearch.
// Чистые функции без I/O: тела собираются как map[string]any и
// сериализуются вызывающей стороной. Аналог динамического SQL-билдера
// репозитория, переведённый на ES DSL.
package search

import (
	"fmt"
	"time"

	"github.com/teamdesk/filevault/internal/domain/model"
)

// indexMapping — маппинги и настройки индекса файлов.
// Метаданные: только продвинутые ключи (indexedMetadataKeys) получают
// типизированные под-поля; остальное в индекс не попадает.
const indexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 1
  },
  "mappings": {
    "properties": {
      "vault_id":   {"type": "keyword"},
      "folder_id":  {"type": "keyword"},
      "name":       {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "extension":  {"type": "keyword"},
      "mime_type":  {"type": "keyword"},
      "size_bytes": {"type": "long"},
      "tags":       {"type": "keyword"},
      "owner_id":   {"type": "keyword"},
      "is_public":  {"type": "boolean"},
      "is_latest":  {"type": "boolean"},
      "version":    {"type": "integer"},
      "created_at": {"type": "date"},
      "updated_at": {"type": "date"},
      "content":    {"type": "text"},
      "metadata": {
        "properties": {
          "project":  {"type": "keyword"},
          "status":   {"type": "keyword"},
          "priority": {"type": "keyword"}
        }
      }
    }
  }
}`

// buildIndexDoc строит документ индекса из записи.
// В индекс попадают только лёгкие поля: storage-привязка, миниатюры
// и прочие display-поля сознательно не индексируются.
func buildIndexDoc(record *model.FileRecord, content string) map[string]any {
	doc := map[string]any{
		"vault_id":   record.VaultID,
		"name":       record.Name,
		"extension":  record.Extension,
		"mime_type":  record.MimeType,
		"size_bytes": record.SizeBytes,
		"tags":       record.Tags,
		"owner_id":   record.OwnerID,
		"is_public":  record.IsPublic,
		"is_latest":  record.IsLatest,
		"version":    record.Version,
		"created_at": record.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at": record.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if record.FolderID != nil {
		doc["folder_id"] = *record.FolderID
	}
	if content != "" {
		doc["content"] = content
	}

	// Продвигаем объявленное подмножество ключей метаданных
	metadata := map[string]string{}
	for _, key := range indexedMetadataKeys {
		if v, ok := record.Metadata[key]; ok {
			metadata[key] = v.String()
		}
	}
	if len(metadata) > 0 {
		doc["metadata"] = metadata
	}

	return doc
}

// buildSearchBody строит тело поискового запроса: bool-запрос с обязательным
// фильтром vault, опциональным fuzzy multi-match (имя весит больше контента,
// контент больше тегов и метаданных) и произвольным числом точных и
// диапазонных фильтров. Пагинация from/size, явная сортировка или
// ранжирование по релевантности.
func buildSearchBody(params model.FileSearchParams, from, size int) map[string]any {
	filters := []map[string]any{
		{"term": map[string]any{"vault_id": params.VaultID}},
	}

	f := params.Filters
	if f.FolderID != nil && *f.FolderID != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"folder_id": *f.FolderID}})
	}
	if f.Extension != nil && *f.Extension != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"extension": *f.Extension}})
	}
	if f.MimeType != nil && *f.MimeType != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"mime_type": *f.MimeType}})
	}
	if f.OwnerID != nil && *f.OwnerID != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"owner_id": *f.OwnerID}})
	}
	// Файл должен содержать все указанные теги — term-фильтр на каждый
	for _, tag := range f.Tags {
		filters = append(filters, map[string]any{"term": map[string]any{"tags": tag}})
	}
	// Метаданные: фильтруются только продвинутые в индекс ключи
	for _, key := range indexedMetadataKeys {
		if v, ok := f.Metadata[key]; ok && v != "" {
			filters = append(filters, map[string]any{"term": map[string]any{"metadata." + key: v}})
		}
	}
	if f.MinSize != nil || f.MaxSize != nil {
		rng := map[string]any{}
		if f.MinSize != nil {
			rng["gte"] = *f.MinSize
		}
		if f.MaxSize != nil {
			rng["lte"] = *f.MaxSize
		}
		filters = append(filters, map[string]any{"range": map[string]any{"size_bytes": rng}})
	}
	if f.CreatedAfter != nil || f.CreatedBefore != nil {
		rng := map[string]any{}
		if f.CreatedAfter != nil {
			rng["gte"] = f.CreatedAfter.UTC().Format(time.RFC3339Nano)
		}
		if f.CreatedBefore != nil {
			rng["lte"] = f.CreatedBefore.UTC().Format(time.RFC3339Nano)
		}
		filters = append(filters, map[string]any{"range": map[string]any{"created_at": rng}})
	}

	boolQuery := map[string]any{"filter": filters}

	// Свободный текст: имя весит выше контента, контент выше тегов
	// и продвинутых метаданных
	if params.Query != "" {
		boolQuery["must"] = []map[string]any{
			{
				"multi_match": map[string]any{
					"query": params.Query,
					"fields": []string{
						"name^3", "content^2", "tags",
						"metadata.project", "metadata.status", "metadata.priority",
					},
					"fuzziness": "AUTO",
				},
			},
		}
	}

	body := map[string]any{
		"query":   map[string]any{"bool": boolQuery},
		"from":    from,
		"size":    size,
		"_source": false,
		"aggs": map[string]any{
			"extensions": map[string]any{"terms": map[string]any{"field": "extension", "size": 50}},
			"projects":   map[string]any{"terms": map[string]any{"field": "metadata.project", "size": 50}},
			"statuses":   map[string]any{"terms": map[string]any{"field": "metadata.status", "size": 50}},
			"tags":       map[string]any{"terms": map[string]any{"field": "tags", "size": 50}},
		},
	}

	// Явная сортировка; без неё — ранжирование по релевантности
	if params.Sort != nil {
		body["sort"] = []map[string]any{
			{sortField(params.Sort.Field): map[string]any{"order": sortOrder(params.Sort.Order)}},
		}
	}

	return body
}

// buildSuggestBody строит запрос префиксных подсказок по имени файла.
func buildSuggestBody(vaultID, prefix string, size int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []map[string]any{
					{"term": map[string]any{"vault_id": vaultID}},
				},
				"must": []map[string]any{
					{"match_phrase_prefix": map[string]any{"name": prefix}},
				},
			},
		},
		"_source": []string{"name"},
		"size":    size,
	}
}

// sortField переводит поле сортировки в поле индекса (whitelist).
// Текстовое имя сортируется по keyword-подполю.
func sortField(field string) string {
	switch field {
	case "name":
		return "name.keyword"
	case "size_bytes", "created_at", "updated_at":
		return field
	default:
		return "updated_at"
	}
}

// sortOrder нормализует направление сортировки.
func sortOrder(order string) string {
	if order == "asc" {
		return "asc"
	}
	return "desc"
}

// esSearchResponse — разбираемая часть ответа _search.
type esSearchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string `json:"_id"`
			Source struct {
				Name string `json:"name"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]esAggregation `json:"aggregations"`
}

// esAggregation — одна terms-агрегация ответа.
type esAggregation struct {
	Buckets []struct {
		Key      any `json:"key"`
		DocCount int `json:"doc_count"`
	} `json:"buckets"`
}

// facetsFromAggregations переводит агрегации ответа в доменные фасеты.
func facetsFromAggregations(aggs map[string]esAggregation) model.FileFacets {
	return model.FileFacets{
		Extensions: bucketsOf(aggs["extensions"]),
		Projects:   bucketsOf(aggs["projects"]),
		Statuses:   bucketsOf(aggs["statuses"]),
		Tags:       bucketsOf(aggs["tags"]),
	}
}

// bucketsOf переводит корзины одной агрегации.
// Ключ может прийти числом (например, boolean-поле) — приводим к строке.
func bucketsOf(agg esAggregation) []model.FacetBucket {
	if len(agg.Buckets) == 0 {
		return nil
	}
	buckets := make([]model.FacetBucket, 0, len(agg.Buckets))
	for _, b := range agg.Buckets {
		key, ok := b.Key.(string)
		if !ok {
			key = fmt.Sprintf("%v", b.Key)
		}
		buckets = append(buckets, model.FacetBucket{Key: key, Count: b.DocCount})
	}
	return buckets
}

package loader

import (
	"context"
	"fmt"
	"sort"

	"github.com/teamdesk/filevault/internal/domain/model"
	"github.com/teamdesk/filevault/internal/repository"
)

// Ключи метаданных, по которым строятся фасеты (совпадают
// с промотированными ключами яруса поиска).
const (
	facetKeyProject = "project"
	facetKeyStatus  = "status"
)

// loadFromDatabase — деградированный путь: прямой запрос к хранилищу
// с in-process дофильтрацией, фасетами и пагинацией. То, что в быстрой
// ветке делал индекс (полнотекст по имени, фильтры по размеру/датам/
// метаданным, агрегации), здесь выполняется над выборкой vault в памяти.
// Полнотекста по содержимому нет — только подстрочное совпадение имени.
func (l *Loader) loadFromDatabase(ctx context.Context, params model.FileSearchParams) (*model.PaginatedFiles, error) {
	filter := repository.FindFilter{
		VaultID:   params.VaultID,
		FolderID:  params.Filters.FolderID,
		Extension: params.Filters.Extension,
		OwnerID:   params.Filters.OwnerID,
	}
	if params.Query != "" {
		q := params.Query
		filter.NameQuery = &q
	}
	if params.Sort != nil {
		filter.SortBy = params.Sort.Field
		filter.SortOrder = params.Sort.Order
	}

	rows, err := l.files.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("fallback-запрос к хранилищу: %w", err)
	}

	// Остаточные фильтры, не выраженные в SQL-предикатах
	matched := rows[:0:0]
	for _, r := range rows {
		if matchesResidualFilters(r, params.Filters) {
			matched = append(matched, r)
		}
	}

	total := len(matched)
	facets := buildFacets(matched)

	// Оконная пагинация поверх отфильтрованной выборки
	startIdx := params.Page * params.PageSize
	if startIdx > total {
		startIdx = total
	}
	endIdx := startIdx + params.PageSize
	if endIdx > total {
		endIdx = total
	}

	return &model.PaginatedFiles{
		Files:    matched[startIdx:endIdx],
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
		HasMore:  (params.Page+1)*params.PageSize < total,
		Facets:   facets,
	}, nil
}

// matchesResidualFilters применяет фильтры, которые хранилище
// не получило в виде предикатов.
func matchesResidualFilters(r *model.FileRecord, f model.FileFilters) bool {
	if f.MimeType != nil && r.MimeType != *f.MimeType {
		return false
	}
	if f.MinSize != nil && r.SizeBytes < *f.MinSize {
		return false
	}
	if f.MaxSize != nil && r.SizeBytes > *f.MaxSize {
		return false
	}
	if f.CreatedAfter != nil && r.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && r.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	// Теги: запись должна содержать каждый запрошенный тег
	for _, want := range f.Tags {
		found := false
		for _, have := range r.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	// Метаданные: точное совпадение строковых представлений
	for key, want := range f.Metadata {
		value, ok := r.Metadata[key]
		if !ok || value.String() != want {
			return false
		}
	}
	return true
}

// buildFacets считает фасеты in-process по отфильтрованной выборке:
// расширения, metadata.project, metadata.status, теги.
func buildFacets(records []*model.FileRecord) model.FileFacets {
	extensions := map[string]int{}
	projects := map[string]int{}
	statuses := map[string]int{}
	tags := map[string]int{}

	for _, r := range records {
		if r.Extension != "" {
			extensions[r.Extension]++
		}
		if v, ok := r.Metadata[facetKeyProject]; ok {
			projects[v.String()]++
		}
		if v, ok := r.Metadata[facetKeyStatus]; ok {
			statuses[v.String()]++
		}
		for _, tag := range r.Tags {
			tags[tag]++
		}
	}

	return model.FileFacets{
		Extensions: bucketsFromTally(extensions),
		Projects:   bucketsFromTally(projects),
		Statuses:   bucketsFromTally(statuses),
		Tags:       bucketsFromTally(tags),
	}
}

// bucketsFromTally превращает tally-карту в детерминированный список
// бакетов: убывание счётчика, при равенстве — лексикографически по ключу.
func bucketsFromTally(tally map[string]int) []model.FacetBucket {
	if len(tally) == 0 {
		return nil
	}
	buckets := make([]model.FacetBucket, 0, len(tally))
	for key, count := range tally {
		buckets = append(buckets, model.FacetBucket{Key: key, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Key < buckets[j].Key
	})
	return buckets
}

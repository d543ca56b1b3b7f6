package loader

import (
	"context"
	"testing"
	"time"

	"github.com/teamdesk/filevault/internal/domain/model"
	"github.com/teamdesk/filevault/internal/repository"
)

// TestLoadFromDatabase_Facets проверяет in-process tally фасетов.
func TestLoadFromDatabase_Facets(t *testing.T) {
	rows := []*model.FileRecord{
		{ID: "1", VaultID: "v1", Extension: "pdf", Tags: []string{"q1"}},
		{ID: "2", VaultID: "v1", Extension: "pdf",
			Metadata: map[string]model.MetadataValue{"project": model.StringValue("alpha")}},
		{ID: "3", VaultID: "v1", Extension: "docx",
			Metadata: map[string]model.MetadataValue{"project": model.StringValue("alpha")}},
	}
	repo := &mockRepo{
		findFn: func(ctx context.Context, filter repository.FindFilter) ([]*model.FileRecord, error) {
			return rows, nil
		},
	}

	l := New(repo, newFakeCache(), &mockIndex{}, nil, testLogger())
	result, err := l.loadFromDatabase(context.Background(), model.FileSearchParams{VaultID: "v1", PageSize: 10})
	if err != nil {
		t.Fatalf("loadFromDatabase вернул ошибку: %v", err)
	}

	ext := result.Facets.Extensions
	if len(ext) != 2 {
		t.Fatalf("фасет расширений: %d бакетов, ожидалось 2", len(ext))
	}
	if ext[0].Key != "pdf" || ext[0].Count != 2 {
		t.Errorf("первый бакет = {%s %d}, ожидался {pdf 2}", ext[0].Key, ext[0].Count)
	}
	if ext[1].Key != "docx" || ext[1].Count != 1 {
		t.Errorf("второй бакет = {%s %d}, ожидался {docx 1}", ext[1].Key, ext[1].Count)
	}

	projects := result.Facets.Projects
	if len(projects) != 1 || projects[0].Key != "alpha" || projects[0].Count != 2 {
		t.Errorf("фасет проектов = %v, ожидался [{alpha 2}]", projects)
	}

	tags := result.Facets.Tags
	if len(tags) != 1 || tags[0].Key != "q1" {
		t.Errorf("фасет тегов = %v, ожидался [{q1 1}]", tags)
	}
}

// TestLoadFromDatabase_Pagination проверяет оконную пагинацию
// поверх отфильтрованной выборки.
func TestLoadFromDatabase_Pagination(t *testing.T) {
	rows := make([]*model.FileRecord, 5)
	for i := range rows {
		rows[i] = record(string(rune('a'+i)), "v1")
	}
	repo := &mockRepo{
		findFn: func(ctx context.Context, filter repository.FindFilter) ([]*model.FileRecord, error) {
			return rows, nil
		},
	}
	l := New(repo, newFakeCache(), &mockIndex{}, nil, testLogger())

	// Страница 1 при pageSize=2: записи c, d; дальше ещё есть
	result, err := l.loadFromDatabase(context.Background(), model.FileSearchParams{
		VaultID: "v1", Page: 1, PageSize: 2,
	})
	if err != nil {
		t.Fatalf("loadFromDatabase вернул ошибку: %v", err)
	}
	if len(result.Files) != 2 || result.Files[0].ID != "c" || result.Files[1].ID != "d" {
		t.Errorf("страница 1 = %v, ожидались [c d]", idsOf(result.Files))
	}
	if !result.HasMore {
		t.Error("HasMore = false на странице 1 из 3")
	}
	if result.Total != 5 {
		t.Errorf("Total = %d, ожидался 5", result.Total)
	}

	// Последняя неполная страница
	result, err = l.loadFromDatabase(context.Background(), model.FileSearchParams{
		VaultID: "v1", Page: 2, PageSize: 2,
	})
	if err != nil {
		t.Fatalf("loadFromDatabase вернул ошибку: %v", err)
	}
	if len(result.Files) != 1 || result.Files[0].ID != "e" {
		t.Errorf("страница 2 = %v, ожидался [e]", idsOf(result.Files))
	}
	if result.HasMore {
		t.Error("HasMore = true на последней странице")
	}

	// Страница за пределами выборки — пустая, не паника
	result, err = l.loadFromDatabase(context.Background(), model.FileSearchParams{
		VaultID: "v1", Page: 9, PageSize: 2,
	})
	if err != nil {
		t.Fatalf("loadFromDatabase вернул ошибку: %v", err)
	}
	if len(result.Files) != 0 {
		t.Errorf("страница за пределами = %v, ожидалась пустая", idsOf(result.Files))
	}
}

func idsOf(files []*model.FileRecord) []string {
	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = f.ID
	}
	return ids
}

// TestMatchesResidualFilters проверяет фильтры, применяемые в памяти.
func TestMatchesResidualFilters(t *testing.T) {
	created := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	r := &model.FileRecord{
		ID:        "f1",
		MimeType:  "application/pdf",
		SizeBytes: 2048,
		Tags:      []string{"q1", "reviewed"},
		Metadata: map[string]model.MetadataValue{
			"project": model.StringValue("alpha"),
			"pages":   model.NumberValue(42),
		},
		CreatedAt: created,
	}

	strPtr := func(s string) *string { return &s }
	int64Ptr := func(n int64) *int64 { return &n }
	timePtr := func(tm time.Time) *time.Time { return &tm }

	tests := []struct {
		name    string
		filters model.FileFilters
		want    bool
	}{
		{"без фильтров", model.FileFilters{}, true},
		{"mime совпадает", model.FileFilters{MimeType: strPtr("application/pdf")}, true},
		{"mime не совпадает", model.FileFilters{MimeType: strPtr("image/png")}, false},
		{"теги — подмножество", model.FileFilters{Tags: []string{"q1"}}, true},
		{"тег отсутствует", model.FileFilters{Tags: []string{"q1", "archived"}}, false},
		{"размер в диапазоне", model.FileFilters{MinSize: int64Ptr(1024), MaxSize: int64Ptr(4096)}, true},
		{"меньше MinSize", model.FileFilters{MinSize: int64Ptr(4096)}, false},
		{"больше MaxSize", model.FileFilters{MaxSize: int64Ptr(1024)}, false},
		{"создан после", model.FileFilters{CreatedAfter: timePtr(created.Add(-time.Hour))}, true},
		{"создан раньше границы", model.FileFilters{CreatedAfter: timePtr(created.Add(time.Hour))}, false},
		{"метаданные совпадают", model.FileFilters{Metadata: map[string]string{"project": "alpha"}}, true},
		{"числовые метаданные по строке", model.FileFilters{Metadata: map[string]string{"pages": "42"}}, true},
		{"метаданные не совпадают", model.FileFilters{Metadata: map[string]string{"project": "beta"}}, false},
		{"ключ метаданных отсутствует", model.FileFilters{Metadata: map[string]string{"status": "done"}}, false},
	}

	for _, tt := range tests {
		if got := matchesResidualFilters(r, tt.filters); got != tt.want {
			t.Errorf("%s: matchesResidualFilters = %v, ожидался %v", tt.name, got, tt.want)
		}
	}
}

// TestBucketsFromTally проверяет детерминированный порядок бакетов.
func TestBucketsFromTally(t *testing.T) {
	buckets := bucketsFromTally(map[string]int{"b": 3, "a": 3, "c": 7})
	want := []model.FacetBucket{{Key: "c", Count: 7}, {Key: "a", Count: 3}, {Key: "b", Count: 3}}
	if len(buckets) != len(want) {
		t.Fatalf("получено %d бакетов, ожидалось %d", len(buckets), len(want))
	}
	for i := range want {
		if buckets[i] != want[i] {
			t.Errorf("бакет %d = %v, ожидался %v", i, buckets[i], want[i])
		}
	}
	if got := bucketsFromTally(nil); got != nil {
		t.Errorf("пустой tally: %v, ожидался nil", got)
	}
}

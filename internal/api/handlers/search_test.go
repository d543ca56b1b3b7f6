package handlers

import (
	"testing"
	"time"

	"github.com/teamdesk/filevault/internal/domain/model"
)

// TestValidateSearchRequest проверяет валидацию тела поискового запроса.
func TestValidateSearchRequest(t *testing.T) {
	intPtr := func(n int) *int { return &n }
	int64Ptr := func(n int64) *int64 { return &n }
	strPtr := func(s string) *string { return &s }
	timePtr := func(tm time.Time) *time.Time { return &tm }
	now := time.Now()

	tests := []struct {
		name    string
		req     searchRequest
		wantErr bool
	}{
		{"минимальный валидный", searchRequest{VaultID: "v1"}, false},
		{"без vault_id", searchRequest{}, true},
		{"отрицательная страница", searchRequest{VaultID: "v1", Page: intPtr(-1)}, true},
		{"нулевой page_size", searchRequest{VaultID: "v1", PageSize: intPtr(0)}, true},
		{"некорректный sort_order", searchRequest{VaultID: "v1", SortOrder: strPtr("sideways")}, true},
		{"валидный sort_order", searchRequest{VaultID: "v1", SortOrder: strPtr("asc")}, false},
		{"min_size > max_size", searchRequest{VaultID: "v1", Filters: &searchFilters{
			MinSize: int64Ptr(100), MaxSize: int64Ptr(10),
		}}, true},
		{"отрицательный min_size", searchRequest{VaultID: "v1", Filters: &searchFilters{
			MinSize: int64Ptr(-1),
		}}, true},
		{"created_after позже created_before", searchRequest{VaultID: "v1", Filters: &searchFilters{
			CreatedAfter: timePtr(now), CreatedBefore: timePtr(now.Add(-time.Hour)),
		}}, true},
		{"валидные фильтры", searchRequest{VaultID: "v1", Filters: &searchFilters{
			MinSize: int64Ptr(10), MaxSize: int64Ptr(100),
			CreatedAfter: timePtr(now.Add(-time.Hour)), CreatedBefore: timePtr(now),
		}}, false},
	}

	for _, tt := range tests {
		err := validateSearchRequest(&tt.req)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr = %v", tt.name, err, tt.wantErr)
		}
	}
}

// TestSearchRequestToParams проверяет трансляцию тела запроса
// в доменные параметры.
func TestSearchRequestToParams(t *testing.T) {
	page := 2
	pageSize := 25
	sortBy := "name"
	ext := "pdf"

	params := searchRequestToParams(&searchRequest{
		VaultID:  "v1",
		Query:    "отчёт",
		Page:     &page,
		PageSize: &pageSize,
		SortBy:   &sortBy,
		Filters:  &searchFilters{Extension: &ext, Tags: []string{"q2"}},
	})

	if params.VaultID != "v1" || params.Query != "отчёт" {
		t.Errorf("базовые поля: %+v", params)
	}
	if params.Page != 2 || params.PageSize != 25 {
		t.Errorf("пагинация = (%d, %d), ожидалась (2, 25)", params.Page, params.PageSize)
	}
	if params.Sort == nil || params.Sort.Field != "name" || params.Sort.Order != "asc" {
		t.Errorf("Sort = %+v, ожидался name asc (направление по умолчанию)", params.Sort)
	}
	if params.Filters.Extension == nil || *params.Filters.Extension != "pdf" {
		t.Errorf("Filters.Extension = %v", params.Filters.Extension)
	}

	// Без sort_by сортировка отсутствует — ранжирование по релевантности
	params = searchRequestToParams(&searchRequest{VaultID: "v1"})
	if params.Sort != nil {
		t.Errorf("Sort = %+v, ожидался nil", params.Sort)
	}
}

// TestFileRecordToResponse проверяет конвертацию доменной записи
// в API-представление.
func TestFileRecordToResponse(t *testing.T) {
	folder := "f-1"
	record := &model.FileRecord{
		ID:        "file-1",
		VaultID:   "v1",
		FolderID:  &folder,
		Name:      "report.pdf",
		SizeBytes: 1 << 60,
		Metadata: map[string]model.MetadataValue{
			"project": model.StringValue("alpha"),
		},
		IsLatest: true,
	}

	resp := fileRecordToResponse(record)
	if resp.ID != "file-1" || resp.VaultID != "v1" {
		t.Errorf("базовые поля: %+v", resp)
	}
	if resp.SizeBytes != 1<<60 {
		t.Errorf("SizeBytes = %d, потеря точности", resp.SizeBytes)
	}
	if resp.FolderID == nil || *resp.FolderID != folder {
		t.Errorf("FolderID = %v", resp.FolderID)
	}
	if resp.Metadata["project"].String() != "alpha" {
		t.Errorf("Metadata = %v", resp.Metadata)
	}
}

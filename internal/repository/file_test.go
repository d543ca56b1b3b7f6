package repository

import (
	"strings"
	"testing"
)

// --- Тесты buildFindWhere ---

// TestBuildFindWhere_VaultOnly проверяет минимальный фильтр:
// область vault присутствует всегда.
func TestBuildFindWhere_VaultOnly(t *testing.T) {
	where, args := buildFindWhere(FindFilter{VaultID: "v1"}, 1)

	if !strings.Contains(where, "vault_id = $1") {
		t.Errorf("where = %q, ожидалось содержание 'vault_id = $1'", where)
	}
	if len(args) != 1 {
		t.Errorf("args count = %d, ожидался 1", len(args))
	}
	if args[0] != "v1" {
		t.Errorf("args[0] = %v, ожидался 'v1'", args[0])
	}
}

// TestBuildFindWhere_AllFilters проверяет нумерацию $-параметров
// при всех активных фильтрах.
func TestBuildFindWhere_AllFilters(t *testing.T) {
	folder := "f-42"
	ext := "pdf"
	owner := "u-7"
	query := "report"
	where, args := buildFindWhere(FindFilter{
		VaultID:   "v1",
		FolderID:  &folder,
		Extension: &ext,
		OwnerID:   &owner,
		NameQuery: &query,
	}, 1)

	for _, want := range []string{
		"vault_id = $1",
		"folder_id = $2",
		"extension = $3",
		"owner_id = $4",
		"name ILIKE $5",
	} {
		if !strings.Contains(where, want) {
			t.Errorf("where = %q, ожидалось содержание %q", where, want)
		}
	}
	if len(args) != 5 {
		t.Fatalf("args count = %d, ожидался 5", len(args))
	}
	// Запрос по имени оборачивается в %...%
	if args[4] != "%report%" {
		t.Errorf("args[4] = %v, ожидался '%%report%%'", args[4])
	}
}

// TestBuildFindWhere_EmptyPointersIgnored проверяет, что пустые
// строковые значения фильтров не попадают в условие.
func TestBuildFindWhere_EmptyPointersIgnored(t *testing.T) {
	empty := ""
	where, args := buildFindWhere(FindFilter{
		VaultID:   "v1",
		Extension: &empty,
	}, 1)

	if strings.Contains(where, "extension") {
		t.Errorf("where = %q, пустой фильтр extension не должен попасть в условие", where)
	}
	if len(args) != 1 {
		t.Errorf("args count = %d, ожидался 1", len(args))
	}
}

// --- Тесты buildOrderBy ---

// TestBuildOrderBy проверяет whitelist полей сортировки
// и значения по умолчанию.
func TestBuildOrderBy(t *testing.T) {
	tests := []struct {
		sortBy    string
		sortOrder string
		want      string
	}{
		{"name", "asc", "ORDER BY name ASC"},
		{"size_bytes", "desc", "ORDER BY size_bytes DESC"},
		{"created_at", "ASC", "ORDER BY created_at ASC"},
		{"", "", "ORDER BY updated_at DESC"},
		// Поле вне whitelist — замена на updated_at
		{"metadata; DROP TABLE file_records", "asc", "ORDER BY updated_at ASC"},
		// Некорректное направление — DESC по умолчанию
		{"name", "sideways", "ORDER BY name DESC"},
	}

	for _, tt := range tests {
		if got := buildOrderBy(tt.sortBy, tt.sortOrder); got != tt.want {
			t.Errorf("buildOrderBy(%q, %q) = %q, ожидался %q", tt.sortBy, tt.sortOrder, got, tt.want)
		}
	}
}

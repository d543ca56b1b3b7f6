// vaults.go — обработчики vault-уровня:
// GET /api/v1/vaults/{vault_id}/recent      — недавно затронутые файлы
// GET /api/v1/vaults/{vault_id}/suggestions — автокомплит имён
package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/teamdesk/filevault/internal/api/errors"
)

// Ограничения query-параметра limit.
const (
	defaultRecentLimit      = 100
	maxRecentLimit          = 1000
	defaultSuggestionsLimit = 10
	maxSuggestionsLimit     = 50
)

// recentResponse — тело ответа списка недавних файлов.
type recentResponse struct {
	VaultID string   `json:"vault_id"`
	FileIDs []string `json:"file_ids"`
}

// suggestionsResponse — тело ответа автокомплита.
type suggestionsResponse struct {
	VaultID     string   `json:"vault_id"`
	Suggestions []string `json:"suggestions"`
}

// GetRecentFiles — реализация GET /api/v1/vaults/{vault_id}/recent.
// Источник — ranked-структура яруса кэша; при выключенном кэше список пуст.
func (h *APIHandler) GetRecentFiles(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vault_id")
	if vaultID == "" {
		apierrors.ValidationError(w, "vault_id обязателен")
		return
	}

	limit, ok := parseLimit(r, defaultRecentLimit, maxRecentLimit)
	if !ok {
		apierrors.ValidationError(w, "limit должен быть положительным числом")
		return
	}

	fileIDs := h.loader.GetRecent(r.Context(), vaultID, limit)
	if fileIDs == nil {
		fileIDs = []string{}
	}

	writeJSON(w, http.StatusOK, recentResponse{VaultID: vaultID, FileIDs: fileIDs})
}

// GetSuggestions — реализация GET /api/v1/vaults/{vault_id}/suggestions?q=...
func (h *APIHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vault_id")
	if vaultID == "" {
		apierrors.ValidationError(w, "vault_id обязателен")
		return
	}

	prefix := r.URL.Query().Get("q")
	if prefix == "" {
		apierrors.ValidationError(w, "query-параметр q обязателен")
		return
	}

	limit, ok := parseLimit(r, defaultSuggestionsLimit, maxSuggestionsLimit)
	if !ok {
		apierrors.ValidationError(w, "limit должен быть положительным числом")
		return
	}

	suggestions := h.loader.GetSuggestions(r.Context(), vaultID, prefix, limit)
	if suggestions == nil {
		suggestions = []string{}
	}

	writeJSON(w, http.StatusOK, suggestionsResponse{VaultID: vaultID, Suggestions: suggestions})
}

// parseLimit читает query-параметр limit с дефолтом и верхней границей.
// Второй результат false — значение некорректно.
func parseLimit(r *http.Request, def, max int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, false
	}
	if limit > max {
		limit = max
	}
	return limit, true
}

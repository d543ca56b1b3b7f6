// handler.go — основной обработчик API: маршруты и общие помощники.
// Бизнес-запросы делегируются умному загрузчику.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/teamdesk/filevault/internal/loader"
)

// APIHandler — основной обработчик API сервиса.
type APIHandler struct {
	loader *loader.Loader
	health *HealthHandler
	logger *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	ld *loader.Loader,
	health *HealthHandler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		loader: ld,
		health: health,
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

// Routes регистрирует все маршруты сервиса на переданном роутере.
func (h *APIHandler) Routes(r chi.Router) {
	r.Post("/api/v1/files/search", h.SearchFiles)
	r.Get("/api/v1/files/{file_id}", h.GetFileMetadata)
	r.Post("/api/v1/files/{file_id}/invalidate", h.InvalidateFile)
	r.Post("/api/v1/files/{file_id}/reindex", h.ReindexFile)
	r.Get("/api/v1/vaults/{vault_id}/recent", h.GetRecentFiles)
	r.Get("/api/v1/vaults/{vault_id}/suggestions", h.GetSuggestions)

	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// parseFileID валидирует path-параметр file_id как UUID.
// Возвращает пустую строку при некорректном значении.
func parseFileID(r *http.Request) string {
	raw := chi.URLParam(r, "file_id")
	if _, err := uuid.Parse(raw); err != nil {
		return ""
	}
	return raw
}

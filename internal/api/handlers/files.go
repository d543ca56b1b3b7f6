// files.go — обработчики операций над одним файлом:
// GET /api/v1/files/{file_id}           — метаданные
// POST /api/v1/files/{file_id}/invalidate — инвалидация производных ярусов
// POST /api/v1/files/{file_id}/reindex    — ресинхронизация производных ярусов
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/teamdesk/filevault/internal/api/errors"
	"github.com/teamdesk/filevault/internal/domain/model"
	"github.com/teamdesk/filevault/internal/loader"
)

// fileResponse — API-представление записи файла.
type fileResponse struct {
	ID              string                         `json:"id"`
	VaultID         string                         `json:"vault_id"`
	FolderID        *string                        `json:"folder_id,omitempty"`
	Path            string                         `json:"path"`
	Name            string                         `json:"name"`
	Extension       string                         `json:"extension"`
	MimeType        string                         `json:"mime_type"`
	SizeBytes       int64                          `json:"size_bytes"`
	StorageProvider string                         `json:"storage_provider"`
	StorageBucket   string                         `json:"storage_bucket"`
	StoragePath     string                         `json:"storage_path"`
	StorageKey      string                         `json:"storage_key"`
	ChecksumMD5     string                         `json:"checksum_md5"`
	Metadata        map[string]model.MetadataValue `json:"metadata,omitempty"`
	Version         int                            `json:"version"`
	IsLatest        bool                           `json:"is_latest"`
	ThumbnailSmall  *string                        `json:"thumbnail_small,omitempty"`
	ThumbnailMedium *string                        `json:"thumbnail_medium,omitempty"`
	ThumbnailLarge  *string                        `json:"thumbnail_large,omitempty"`
	Tags            []string                       `json:"tags,omitempty"`
	OwnerID         string                         `json:"owner_id"`
	IsPublic        bool                           `json:"is_public"`
	CreatedAt       time.Time                      `json:"created_at"`
	UpdatedAt       time.Time                      `json:"updated_at"`
}

// fileRecordToResponse конвертирует доменную запись в API-представление.
func fileRecordToResponse(r *model.FileRecord) fileResponse {
	return fileResponse{
		ID:              r.ID,
		VaultID:         r.VaultID,
		FolderID:        r.FolderID,
		Path:            r.Path,
		Name:            r.Name,
		Extension:       r.Extension,
		MimeType:        r.MimeType,
		SizeBytes:       r.SizeBytes,
		StorageProvider: r.StorageProvider,
		StorageBucket:   r.StorageBucket,
		StoragePath:     r.StoragePath,
		StorageKey:      r.StorageKey,
		ChecksumMD5:     r.ChecksumMD5,
		Metadata:        r.Metadata,
		Version:         r.Version,
		IsLatest:        r.IsLatest,
		ThumbnailSmall:  r.ThumbnailSmall,
		ThumbnailMedium: r.ThumbnailMedium,
		ThumbnailLarge:  r.ThumbnailLarge,
		Tags:            r.Tags,
		OwnerID:         r.OwnerID,
		IsPublic:        r.IsPublic,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// fileRecordsToResponses конвертирует список доменных записей.
func fileRecordsToResponses(records []*model.FileRecord) []fileResponse {
	items := make([]fileResponse, 0, len(records))
	for _, r := range records {
		items = append(items, fileRecordToResponse(r))
	}
	return items
}

// GetFileMetadata — реализация GET /api/v1/files/{file_id}.
func (h *APIHandler) GetFileMetadata(w http.ResponseWriter, r *http.Request) {
	fileID := parseFileID(r)
	if fileID == "" {
		apierrors.ValidationError(w, "file_id должен быть корректным UUID")
		return
	}

	record, err := h.loader.GetFile(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, loader.ErrNotFound) {
			apierrors.NotFound(w, "Файл не найден")
			return
		}
		h.logger.Error("Ошибка получения метаданных файла",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при получении метаданных файла")
		return
	}

	writeJSON(w, http.StatusOK, fileRecordToResponse(record))
}

// InvalidateFile — реализация POST /api/v1/files/{file_id}/invalidate.
// Всегда 204: инвалидация best-effort ярусов не имеет видимых отказов.
func (h *APIHandler) InvalidateFile(w http.ResponseWriter, r *http.Request) {
	fileID := parseFileID(r)
	if fileID == "" {
		apierrors.ValidationError(w, "file_id должен быть корректным UUID")
		return
	}

	h.loader.InvalidateFile(r.Context(), fileID)
	w.WriteHeader(http.StatusNoContent)
}

// ReindexFile — реализация POST /api/v1/files/{file_id}/reindex.
func (h *APIHandler) ReindexFile(w http.ResponseWriter, r *http.Request) {
	fileID := parseFileID(r)
	if fileID == "" {
		apierrors.ValidationError(w, "file_id должен быть корректным UUID")
		return
	}

	if err := h.loader.ReindexFile(r.Context(), fileID); err != nil {
		if errors.Is(err, loader.ErrNotFound) {
			apierrors.NotFound(w, "Файл не найден")
			return
		}
		h.logger.Error("Ошибка переиндексации файла",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при переиндексации файла")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

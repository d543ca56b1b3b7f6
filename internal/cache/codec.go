// codec.go — сериализация FileRecord в плоскую строковую карту Redis-хэша.
// Бэкенды кэша строковые, поэтому числа и булевы кодируются через strconv,
// структуры (metadata, tags) — через JSON. SizeBytes проходит строго через
// int64-строку, никогда через float — точность сохраняется выше 2^53.
package cache

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/teamdesk/filevault/internal/domain/model"
)

// Имена полей хэша. Симметричны между encodeRecord и decodeRecord.
const (
	fieldID              = "id"
	fieldVaultID         = "vault_id"
	fieldFolderID        = "folder_id"
	fieldPath            = "path"
	fieldName            = "name"
	fieldExtension       = "extension"
	fieldMimeType        = "mime_type"
	fieldSizeBytes       = "size_bytes"
	fieldStorageProvider = "storage_provider"
	fieldStorageBucket   = "storage_bucket"
	fieldStoragePath     = "storage_path"
	fieldStorageKey      = "storage_key"
	fieldChecksumMD5     = "checksum_md5"
	fieldMetadata        = "metadata"
	fieldVersion         = "version"
	fieldIsLatest        = "is_latest"
	fieldThumbSmall      = "thumbnail_small"
	fieldThumbMedium     = "thumbnail_medium"
	fieldThumbLarge      = "thumbnail_large"
	fieldTags            = "tags"
	fieldOwnerID         = "owner_id"
	fieldIsPublic        = "is_public"
	fieldCreatedAt       = "created_at"
	fieldUpdatedAt       = "updated_at"
)

// encodeRecord кодирует запись в плоскую строковую карту.
func encodeRecord(record *model.FileRecord) map[string]string {
	fields := map[string]string{
		fieldID:              record.ID,
		fieldVaultID:         record.VaultID,
		fieldPath:            record.Path,
		fieldName:            record.Name,
		fieldExtension:       record.Extension,
		fieldMimeType:        record.MimeType,
		fieldSizeBytes:       strconv.FormatInt(record.SizeBytes, 10),
		fieldStorageProvider: record.StorageProvider,
		fieldStorageBucket:   record.StorageBucket,
		fieldStoragePath:     record.StoragePath,
		fieldStorageKey:      record.StorageKey,
		fieldChecksumMD5:     record.ChecksumMD5,
		fieldVersion:         strconv.Itoa(record.Version),
		fieldIsLatest:        strconv.FormatBool(record.IsLatest),
		fieldOwnerID:         record.OwnerID,
		fieldIsPublic:        strconv.FormatBool(record.IsPublic),
		fieldCreatedAt:       record.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldUpdatedAt:       record.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}

	if record.FolderID != nil {
		fields[fieldFolderID] = *record.FolderID
	}
	if record.ThumbnailSmall != nil {
		fields[fieldThumbSmall] = *record.ThumbnailSmall
	}
	if record.ThumbnailMedium != nil {
		fields[fieldThumbMedium] = *record.ThumbnailMedium
	}
	if record.ThumbnailLarge != nil {
		fields[fieldThumbLarge] = *record.ThumbnailLarge
	}

	// Структурные поля — JSON
	if metadataJSON, err := json.Marshal(record.Metadata); err == nil {
		fields[fieldMetadata] = string(metadataJSON)
	}
	if tagsJSON, err := json.Marshal(record.Tags); err == nil {
		fields[fieldTags] = string(tagsJSON)
	}

	return fields
}

// decodeRecord восстанавливает запись из строковой карты хэша.
// Возвращает nil для пустой или малоформенной записи (без id) — вызывающий
// трактует это как промах. Битый JSON в metadata/tags декодируется fail-soft:
// поле остаётся пустым, путь чтения не падает.
func decodeRecord(fields map[string]string) *model.FileRecord {
	if len(fields) == 0 || fields[fieldID] == "" {
		return nil
	}

	record := &model.FileRecord{
		ID:              fields[fieldID],
		VaultID:         fields[fieldVaultID],
		Path:            fields[fieldPath],
		Name:            fields[fieldName],
		Extension:       fields[fieldExtension],
		MimeType:        fields[fieldMimeType],
		StorageProvider: fields[fieldStorageProvider],
		StorageBucket:   fields[fieldStorageBucket],
		StoragePath:     fields[fieldStoragePath],
		StorageKey:      fields[fieldStorageKey],
		ChecksumMD5:     fields[fieldChecksumMD5],
		OwnerID:         fields[fieldOwnerID],
		Metadata:        map[string]model.MetadataValue{},
	}

	record.SizeBytes, _ = strconv.ParseInt(fields[fieldSizeBytes], 10, 64)
	record.Version, _ = strconv.Atoi(fields[fieldVersion])
	record.IsLatest, _ = strconv.ParseBool(fields[fieldIsLatest])
	record.IsPublic, _ = strconv.ParseBool(fields[fieldIsPublic])
	record.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	record.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt])

	if v, ok := fields[fieldFolderID]; ok && v != "" {
		record.FolderID = &v
	}
	if v, ok := fields[fieldThumbSmall]; ok && v != "" {
		record.ThumbnailSmall = &v
	}
	if v, ok := fields[fieldThumbMedium]; ok && v != "" {
		record.ThumbnailMedium = &v
	}
	if v, ok := fields[fieldThumbLarge]; ok && v != "" {
		record.ThumbnailLarge = &v
	}

	if raw := fields[fieldMetadata]; raw != "" {
		// Fail-soft: при ошибке карта остаётся пустой
		_ = json.Unmarshal([]byte(raw), &record.Metadata)
	}
	if raw := fields[fieldTags]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &record.Tags)
	}

	return record
}

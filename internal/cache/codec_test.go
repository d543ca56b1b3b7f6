package cache

import (
	"context"
	"testing"
	"time"

	"github.com/teamdesk/filevault/internal/domain/model"
)

// TestCodec_RoundTrip проверяет encode → decode без потерь.
func TestCodec_RoundTrip(t *testing.T) {
	folder := "f-1"
	thumb := "https://cdn/th/s.png"
	created := time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)

	original := &model.FileRecord{
		ID:              "11111111-2222-3333-4444-555555555555",
		VaultID:         "team-docs",
		FolderID:        &folder,
		Path:            "/reports/q2/report.pdf",
		Name:            "report.pdf",
		Extension:       "pdf",
		MimeType:        "application/pdf",
		SizeBytes:       1 << 60, // точность выше 2^53 обязана сохраниться
		StorageProvider: "s3",
		StorageBucket:   "vault-prod",
		StoragePath:     "team-docs/reports",
		StorageKey:      "abc123",
		ChecksumMD5:     "d41d8cd98f00b204e9800998ecf8427e",
		Metadata: map[string]model.MetadataValue{
			"project": model.StringValue("alpha"),
			"pages":   model.NumberValue(42),
			"signed":  model.BoolValue(true),
		},
		Version:        3,
		IsLatest:       true,
		ThumbnailSmall: &thumb,
		Tags:           []string{"q2", "reviewed"},
		OwnerID:        "u-7",
		IsPublic:       false,
		CreatedAt:      created,
		UpdatedAt:      created.Add(time.Hour),
	}

	decoded := decodeRecord(encodeRecord(original))
	if decoded == nil {
		t.Fatal("decodeRecord вернул nil для валидных полей")
	}

	if decoded.ID != original.ID {
		t.Errorf("ID = %q, ожидался %q", decoded.ID, original.ID)
	}
	if decoded.SizeBytes != original.SizeBytes {
		t.Errorf("SizeBytes = %d, ожидался %d (потеря точности?)", decoded.SizeBytes, original.SizeBytes)
	}
	if decoded.FolderID == nil || *decoded.FolderID != folder {
		t.Errorf("FolderID = %v, ожидался %q", decoded.FolderID, folder)
	}
	if decoded.ThumbnailSmall == nil || *decoded.ThumbnailSmall != thumb {
		t.Errorf("ThumbnailSmall = %v, ожидался %q", decoded.ThumbnailSmall, thumb)
	}
	if decoded.ThumbnailMedium != nil {
		t.Errorf("ThumbnailMedium = %v, ожидался nil", decoded.ThumbnailMedium)
	}
	if !decoded.IsLatest {
		t.Error("IsLatest = false, ожидался true")
	}
	if !decoded.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("CreatedAt = %v, ожидался %v", decoded.CreatedAt, original.CreatedAt)
	}
	if len(decoded.Tags) != 2 || decoded.Tags[0] != "q2" {
		t.Errorf("Tags = %v, ожидались [q2 reviewed]", decoded.Tags)
	}

	if got := decoded.Metadata["project"].String(); got != "alpha" {
		t.Errorf("Metadata[project] = %q, ожидался alpha", got)
	}
	if got := decoded.Metadata["pages"]; got.Kind != model.MetadataNumber || got.Num != 42 {
		t.Errorf("Metadata[pages] = %+v, ожидалось число 42", got)
	}
	if got := decoded.Metadata["signed"]; got.Kind != model.MetadataBool || !got.Bool {
		t.Errorf("Metadata[signed] = %+v, ожидался bool true", got)
	}
}

// TestDecodeRecord_Empty проверяет, что пустой hash — это промах (nil).
func TestDecodeRecord_Empty(t *testing.T) {
	if decodeRecord(nil) != nil {
		t.Error("decodeRecord(nil) != nil")
	}
	if decodeRecord(map[string]string{}) != nil {
		t.Error("decodeRecord(пустая карта) != nil")
	}
	// Hash без ключа id — повреждённые данные, тоже промах
	if decodeRecord(map[string]string{"name": "x.txt"}) != nil {
		t.Error("decodeRecord без id != nil")
	}
}

// TestDecodeRecord_MalformedFields проверяет fail-soft: повреждённые
// поля не роняют декодер, запись возвращается с нулевыми значениями.
func TestDecodeRecord_MalformedFields(t *testing.T) {
	decoded := decodeRecord(map[string]string{
		fieldID:        "file-1",
		fieldVaultID:   "v1",
		fieldSizeBytes: "not-a-number",
		fieldMetadata:  "{broken json",
		fieldTags:      "[broken",
		fieldCreatedAt: "вчера",
	})
	if decoded == nil {
		t.Fatal("decodeRecord вернул nil при повреждённых полях")
	}
	if decoded.ID != "file-1" {
		t.Errorf("ID = %q, ожидался file-1", decoded.ID)
	}
	if decoded.SizeBytes != 0 {
		t.Errorf("SizeBytes = %d, ожидался 0", decoded.SizeBytes)
	}
	if decoded.Metadata != nil {
		t.Errorf("Metadata = %v, ожидался nil", decoded.Metadata)
	}
}

// TestNoopCache проверяет поведение no-op реализации:
// все чтения — промахи, записи — без эффекта и без паник.
func TestNoopCache(t *testing.T) {
	ctx := context.Background()
	c := NewNoop()

	if c.IsAvailable() {
		t.Error("IsAvailable = true для no-op")
	}
	if c.Get(ctx, "any") != nil {
		t.Error("Get вернул запись из no-op")
	}
	if got := c.GetMany(ctx, []string{"a", "b"}); len(got) != 0 {
		t.Errorf("GetMany вернул %d записей из no-op", len(got))
	}
	if got := c.GetRecent(ctx, "v1", 10); got != nil {
		t.Errorf("GetRecent = %v, ожидался nil", got)
	}

	// Записи и инвалидация не должны паниковать
	c.Set(ctx, &model.FileRecord{ID: "a", VaultID: "v1"})
	c.SetMany(ctx, []*model.FileRecord{{ID: "b", VaultID: "v1"}})
	c.Invalidate(ctx, "a")
	c.InvalidateMany(ctx, []string{"a", "b"})

	if c.Get(ctx, "a") != nil {
		t.Error("no-op сохранил запись после Set")
	}
}

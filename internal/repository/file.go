package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/teamdesk/filevault/internal/domain/model"
)

// fileColumns — список столбцов таблицы file_records для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const fileColumns = `id, vault_id, folder_id, path, name, extension, mime_type,
	size_bytes, storage_provider, storage_bucket, storage_path, storage_key,
	checksum_md5, metadata, version, is_latest,
	thumbnail_small, thumbnail_medium, thumbnail_large,
	tags, owner_id, is_public, created_at, updated_at`

// FindFilter — предикат fallback-запроса к хранилищу.
// Хранилище фильтрует только равенства и подстроку по имени;
// остаточные фильтры (mime, теги, диапазоны, metadata) загрузчик
// применяет in-process. Все поля-указатели, nil = фильтр не применяется.
type FindFilter struct {
	// VaultID — обязательная область
	VaultID string
	// FolderID — фильтр по папке (exact match)
	FolderID *string
	// Extension — фильтр по расширению (exact match, без точки)
	Extension *string
	// OwnerID — фильтр по владельцу (exact match)
	OwnerID *string
	// NameQuery — case-insensitive подстрока по имени файла
	NameQuery *string
	// SortBy — поле сортировки: name, size_bytes, created_at, updated_at
	SortBy string
	// SortOrder — направление: asc, desc
	SortOrder string
}

// FileRepository — интерфейс доступа к file_records.
// Загрузчик — read-only потребитель; мутации выполняют внешние
// коллабораторы (upload/update handlers вне этого ядра).
type FileRepository interface {
	// GetByID возвращает файл по идентификатору или ErrNotFound.
	GetByID(ctx context.Context, fileID string) (*model.FileRecord, error)
	// GetManyByIDs возвращает файлы по списку идентификаторов
	// за один round trip. Отсутствующие идентификаторы просто
	// не попадают в результат — это не ошибка.
	GetManyByIDs(ctx context.Context, fileIDs []string) ([]*model.FileRecord, error)
	// Find возвращает ВСЕ строки, подходящие под фильтр (без пагинации
	// на стороне хранилища — страницу вырезает загрузчик).
	Find(ctx context.Context, filter FindFilter) ([]*model.FileRecord, error)
}

// fileRepo — реализация FileRepository через pgx.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий файлов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

// GetByID возвращает файл по идентификатору или ErrNotFound.
func (r *fileRepo) GetByID(ctx context.Context, fileID string) (*model.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM file_records WHERE id = $1`, fileColumns)

	row := r.db.QueryRow(ctx, query, fileID)
	f, err := scanFileRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

// GetManyByIDs возвращает файлы по списку идентификаторов (= ANY).
func (r *fileRepo) GetManyByIDs(ctx context.Context, fileIDs []string) ([]*model.FileRecord, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM file_records WHERE id = ANY($1)`, fileColumns)

	rows, err := r.db.Query(ctx, query, fileIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка bulk-запроса файлов: %w", err)
	}
	defer rows.Close()

	var result []*model.FileRecord
	for rows.Next() {
		f, err := scanFileRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// Find выполняет fallback-запрос с динамическими фильтрами и сортировкой.
// Возвращает все подходящие строки; пагинации нет намеренно — деградированный
// путь материализует полный набор для in-process фасетов.
func (r *fileRepo) Find(ctx context.Context, filter FindFilter) ([]*model.FileRecord, error) {
	where, args := buildFindWhere(filter, 1)
	orderBy := buildOrderBy(filter.SortBy, filter.SortOrder)

	query := fmt.Sprintf(`SELECT %s FROM file_records %s %s`, fileColumns, where, orderBy)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска файлов: %w", err)
	}
	defer rows.Close()

	var result []*model.FileRecord
	for rows.Next() {
		f, err := scanFileRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// scanFileRecord сканирует одну строку file_records в модель.
// metadata (JSONB) приходит как []byte и декодируется fail-soft:
// битый JSON оставляет пустую карту, не роняя чтение.
func scanFileRecord(row pgx.Row) (*model.FileRecord, error) {
	f := &model.FileRecord{}
	var metadataRaw []byte

	err := row.Scan(
		&f.ID, &f.VaultID, &f.FolderID, &f.Path, &f.Name, &f.Extension, &f.MimeType,
		&f.SizeBytes, &f.StorageProvider, &f.StorageBucket, &f.StoragePath, &f.StorageKey,
		&f.ChecksumMD5, &metadataRaw, &f.Version, &f.IsLatest,
		&f.ThumbnailSmall, &f.ThumbnailMedium, &f.ThumbnailLarge,
		&f.Tags, &f.OwnerID, &f.IsPublic, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.Metadata = map[string]model.MetadataValue{}
	if len(metadataRaw) > 0 {
		_ = json.Unmarshal(metadataRaw, &f.Metadata)
	}
	return f, nil
}

// buildFindWhere строит WHERE-условие и аргументы fallback-запроса.
// startArg — номер первого $-параметра (для корректной нумерации).
func buildFindWhere(filter FindFilter, startArg int) (whereClause string, args []any) {
	var conditions []string
	argNum := startArg

	// Обязательная область vault
	conditions = append(conditions, fmt.Sprintf("vault_id = $%d", argNum))
	args = append(args, filter.VaultID)
	argNum++

	// Фильтр по папке
	if filter.FolderID != nil && *filter.FolderID != "" {
		conditions = append(conditions, fmt.Sprintf("folder_id = $%d", argNum))
		args = append(args, *filter.FolderID)
		argNum++
	}

	// Фильтр по расширению (exact match)
	if filter.Extension != nil && *filter.Extension != "" {
		conditions = append(conditions, fmt.Sprintf("extension = $%d", argNum))
		args = append(args, *filter.Extension)
		argNum++
	}

	// Фильтр по владельцу (exact match)
	if filter.OwnerID != nil && *filter.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argNum))
		args = append(args, *filter.OwnerID)
		argNum++
	}

	// Свободный запрос — case-insensitive подстрока по имени (ILIKE)
	if filter.NameQuery != nil && *filter.NameQuery != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argNum))
		args = append(args, "%"+*filter.NameQuery+"%")
		argNum++
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// buildOrderBy строит ORDER BY из whitelist-полей.
// Некорректные значения молча заменяются значениями по умолчанию —
// пользовательский ввод никогда не попадает в SQL напрямую.
func buildOrderBy(sortBy, sortOrder string) string {
	switch sortBy {
	case "name", "size_bytes", "created_at", "updated_at":
	default:
		sortBy = "updated_at"
	}

	order := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		order = "ASC"
	}

	return fmt.Sprintf("ORDER BY %s %s", sortBy, order)
}

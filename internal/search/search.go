// Пакет search — ярус полнотекстового/фасетного поиска поверх Elasticsearch.
// По запросу и набору фильтров возвращает упорядоченный список идентификаторов
// файлов и агрегированные фасеты — без полных записей: индекс остаётся
// компактным и дёшево перестраивается, display-точность полей отложена
// на кэш и хранилище (нет dual-write проблем для тяжёлых полей).
//
// Ярус опционален и деградируем: при выключенном флаге или недоступном
// кластере собирается no-op реализация. Недоступность и «ноль совпадений»
// различимы только через IsAvailable(), не по форме результата.
package search

import (
	"context"
	"log/slog"

	"github.com/teamdesk/filevault/internal/domain/model"
)

// indexedMetadataKeys — объявленное подмножество ключей открытой карты
// metadata, которое индекс продвигает в типизированные под-поля.
// Версионируется вместе с маппингом индекса: новое значение требует
// пересоздания индекса и переиндексации.
var indexedMetadataKeys = []string{"project", "status", "priority"}

// FileIndex — контракт яруса поиска.
type FileIndex interface {
	// IsAvailable — true, если при старте процесса было установлено
	// соединение с кластером. Свойство выбранной реализации.
	IsAvailable() bool
	// SetupIndex идемпотентно создаёт индекс с маппингами,
	// если он ещё не существует. Безопасен для повторных вызовов.
	SetupIndex(ctx context.Context) error
	// IndexFile делает upsert одного документа. content — опциональный
	// извлечённый полный текст (OCR/текст документа), индексируется
	// отдельно от метаданных.
	IndexFile(ctx context.Context, record *model.FileRecord, content string) error
	// BulkIndex делает upsert пачки документов одним bulk-запросом.
	BulkIndex(ctx context.Context, records []*model.FileRecord) error
	// Search возвращает упорядоченные идентификаторы + total + фасеты.
	// Без побочных эффектов.
	Search(ctx context.Context, params model.FileSearchParams) (*model.SearchHits, error)
	// DeleteFile удаляет документ; not-found не ошибка.
	DeleteFile(ctx context.Context, fileID string) error
	// DeleteVaultFiles удаляет все документы vault.
	DeleteVaultFiles(ctx context.Context, vaultID string) error
	// GetSuggestions возвращает префиксные подсказки имён в пределах vault.
	GetSuggestions(ctx context.Context, vaultID, prefix string, limit int) ([]string, error)
}

// Setup выбирает реализацию яруса поиска на старте процесса.
// Флаг выключен — no-op. Кластер недоступен — предупреждение и no-op.
func Setup(ctx context.Context, enabled bool, esURL, indexName string, logger *slog.Logger) FileIndex {
	if !enabled {
		logger.Info("Ярус поиска выключен (ENABLE_ELASTICSEARCH != true)")
		return NewNoop()
	}

	idx, err := NewElasticIndex(ctx, esURL, indexName, logger)
	if err != nil {
		logger.Warn("Elasticsearch недоступен, ярус поиска работает как no-op",
			slog.String("error", err.Error()),
		)
		return NewNoop()
	}
	return idx
}

// noopIndex — заглушка яруса поиска: безопасна для вызова,
// всегда сообщает IsAvailable() == false и пустые результаты.
type noopIndex struct{}

// NewNoop создаёт no-op реализацию яруса поиска.
func NewNoop() FileIndex {
	return noopIndex{}
}

func (noopIndex) IsAvailable() bool { return false }

func (noopIndex) SetupIndex(context.Context) error { return nil }

func (noopIndex) IndexFile(context.Context, *model.FileRecord, string) error { return nil }

func (noopIndex) BulkIndex(context.Context, []*model.FileRecord) error { return nil }

func (noopIndex) Search(context.Context, model.FileSearchParams) (*model.SearchHits, error) {
	return &model.SearchHits{}, nil
}

func (noopIndex) DeleteFile(context.Context, string) error { return nil }

func (noopIndex) DeleteVaultFiles(context.Context, string) error { return nil }

func (noopIndex) GetSuggestions(context.Context, string, string, int) ([]string, error) {
	return nil, nil
}

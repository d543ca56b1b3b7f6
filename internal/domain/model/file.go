// Пакет model — доменные модели файлового хранилища (file vault).
// FileRecord — каноническая единица данных, которую перемещают все ярусы
// (поисковый индекс, кэш метаданных, долговременное хранилище).
package model

import (
	"encoding/json"
	"time"
)

// FileRecord — запись файла в хранилище (vault).
// Поля storage_* непрозрачны для этого слоя и передаются без изменений.
type FileRecord struct {
	// ID — стабильный идентификатор файла (UUID), уникален в пределах vault
	ID string
	// VaultID — владеющая коллекция
	VaultID string
	// FolderID — родительская папка (опционально)
	FolderID *string
	// Path — человекочитаемый полный путь
	Path string
	// Name — имя файла
	Name string
	// Extension — расширение файла (без точки)
	Extension string
	// MimeType — MIME-тип файла
	MimeType string
	// SizeBytes — размер файла в байтах. int64 — точность сохраняется
	// и выше 2^53 (размер никогда не проходит через float)
	SizeBytes int64
	// StorageProvider — провайдер хранилища (s3, gcs, local)
	StorageProvider string
	// StorageBucket — bucket в хранилище
	StorageBucket string
	// StoragePath — путь в хранилище
	StoragePath string
	// StorageKey — ключ объекта в хранилище
	StorageKey string
	// ChecksumMD5 — MD5 контрольная сумма
	ChecksumMD5 string
	// Metadata — открытая карта доменных полей (project, status, priority...).
	// Кэш сериализует её целиком как JSON, индекс продвигает объявленное
	// подмножество ключей в типизированные под-поля.
	Metadata map[string]MetadataValue
	// Version — монотонный номер версии логического файла
	Version int
	// IsLatest — признак последней версии в линии файла.
	// Инвариант «ровно одна запись с IsLatest=true» этим слоем не
	// обеспечивается, только переносится.
	IsLatest bool
	// ThumbnailSmall — ссылка на маленькую миниатюру (опционально)
	ThumbnailSmall *string
	// ThumbnailMedium — ссылка на среднюю миниатюру (опционально)
	ThumbnailMedium *string
	// ThumbnailLarge — ссылка на большую миниатюру (опционально)
	ThumbnailLarge *string
	// Tags — неупорядоченное множество тегов (фильтрация и фасеты)
	Tags []string
	// OwnerID — идентификатор владельца
	OwnerID string
	// IsPublic — публичная видимость
	IsPublic bool
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления (UpdatedAt >= CreatedAt)
	UpdatedAt time.Time
}

// SortSpec — явная сортировка результата поиска.
type SortSpec struct {
	// Field — поле сортировки (name, size_bytes, created_at, updated_at)
	Field string
	// Order — направление: asc, desc
	Order string
}

// FileFilters — набор точных и диапазонных фильтров поиска.
// Все поля-указатели: nil = фильтр не применяется.
type FileFilters struct {
	// FolderID — фильтр по папке
	FolderID *string
	// Extension — фильтр по расширению (без точки)
	Extension *string
	// MimeType — фильтр по MIME-типу
	MimeType *string
	// OwnerID — фильтр по владельцу
	OwnerID *string
	// Tags — файл должен содержать все указанные теги
	Tags []string
	// MinSize — минимальный размер (байт)
	MinSize *int64
	// MaxSize — максимальный размер (байт)
	MaxSize *int64
	// CreatedAfter — файлы, созданные после указанной даты
	CreatedAfter *time.Time
	// CreatedBefore — файлы, созданные до указанной даты
	CreatedBefore *time.Time
	// Metadata — произвольные доменные поля (project, status...),
	// точное совпадение по строковому значению
	Metadata map[string]string
}

// FileSearchParams — контракт запроса страницы файлов.
type FileSearchParams struct {
	// VaultID — обязательная область поиска
	VaultID string
	// Query — свободный текстовый запрос (опционально)
	Query string
	// Filters — набор фильтров
	Filters FileFilters
	// Page — номер страницы (с нуля)
	Page int
	// PageSize — размер страницы
	PageSize int
	// Sort — явная сортировка; nil = ранжирование по релевантности
	Sort *SortSpec
}

// FacetBucket — одна корзина фасета: ключ и количество документов.
type FacetBucket struct {
	Key   string `json:"key"`
	Count int    `json:"doc_count"`
}

// FileFacets — агрегированные счётчики по измерениям фасетов.
// Используются панелями фильтров UI, не логикой загрузчика.
type FileFacets struct {
	Extensions []FacetBucket `json:"extensions"`
	Projects   []FacetBucket `json:"projects"`
	Statuses   []FacetBucket `json:"statuses"`
	Tags       []FacetBucket `json:"tags"`
}

// SearchHits — результат поискового яруса: упорядоченные идентификаторы
// без полных записей (индекс остаётся компактным, display-точность
// отложена на кэш и хранилище).
type SearchHits struct {
	// FileIDs — идентификаторы в порядке ранжирования
	FileIDs []string
	// Total — общее количество совпадений в индексе
	Total int
	// TookMs — время выполнения запроса индексом (мс)
	TookMs int64
	// Facets — агрегированные счётчики
	Facets FileFacets
}

// PaginatedFiles — ответ загрузчика на запрос страницы.
type PaginatedFiles struct {
	// Files — записи в порядке ранжирования поискового яруса
	Files []*FileRecord
	// Total — общее количество совпадений (кардинальность индекса;
	// не корректируется при нерезолвящихся идентификаторах)
	Total int
	// Page — номер страницы (с нуля)
	Page int
	// PageSize — размер страницы
	PageSize int
	// HasMore — (page+1)*pageSize < total
	HasMore bool
	// Facets — агрегированные счётчики
	Facets FileFacets
	// TookMs — полное время операции (мс)
	TookMs int64
}

// MetadataKind — вид значения в открытой карте метаданных.
type MetadataKind int

// Замкнутый набор примитивных вариантов значения метаданных.
const (
	MetadataString MetadataKind = iota
	MetadataNumber
	MetadataBool
	MetadataTime
)

// MetadataValue — типизированный вариант значения открытой карты метаданных
/// (string/number/boolean/date). Сознательно без interface{}: каждому виду —
// своё поле, Kind выбирает активное.
type MetadataValue struct {
	Kind MetadataKind
	Str  string
	Num  float64
	Bool bool
	Time time.Time
}

// StringValue создаёт строковый вариант.
func StringValue(s string) MetadataValue { return MetadataValue{Kind: MetadataString, Str: s} }

// NumberValue создаёт числовой вариант.
func NumberValue(n float64) MetadataValue { return MetadataValue{Kind: MetadataNumber, Num: n} }

// BoolValue создаёт булев вариант.
func BoolValue(b bool) MetadataValue { return MetadataValue{Kind: MetadataBool, Bool: b} }

// TimeValue создаёт вариант даты/времени.
func TimeValue(t time.Time) MetadataValue { return MetadataValue{Kind: MetadataTime, Time: t} }

// String возвращает строковое представление активного варианта.
// Используется фасетами fallback-пути и фильтрами точного совпадения.
func (v MetadataValue) String() string {
	switch v.Kind {
	case MetadataNumber:
		b, _ := json.Marshal(v.Num)
		return string(b)
	case MetadataBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case MetadataTime:
		return v.Time.UTC().Format(time.RFC3339Nano)
	default:
		return v.Str
	}
}

// MarshalJSON сериализует значение как «голый» JSON-примитив
// (строка, число, bool; дата — RFC3339-строка).
func (v MetadataValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case MetadataNumber:
		return json.Marshal(v.Num)
	case MetadataBool:
		return json.Marshal(v.Bool)
	case MetadataTime:
		return json.Marshal(v.Time.UTC().Format(time.RFC3339Nano))
	default:
		return json.Marshal(v.Str)
	}
}

// UnmarshalJSON восстанавливает вариант из JSON-примитива.
// Порядок распознавания: bool → number → строка (строка в формате RFC3339
// становится датой). Чужой JSON деградирует до строки, никогда не ошибка.
// Следствие: StringValue, содержимое которого совпадает с RFC3339,
// после round-trip превращается в TimeValue, и String() для него
// нормализуется (в том числе смещение таймзоны рендерится в UTC).
func (v *MetadataValue) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = BoolValue(b)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = NumberValue(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			*v = TimeValue(t)
			return nil
		}
		*v = StringValue(s)
		return nil
	}
	// Объект или массив — сохраняем исходный JSON строкой
	*v = StringValue(string(data))
	return nil
}

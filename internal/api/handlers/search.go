// search.go — обработчик POST /api/v1/files/search.
// Десериализация запроса, валидация, вызов загрузчика, сериализация ответа.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/teamdesk/filevault/internal/api/errors"
	"github.com/teamdesk/filevault/internal/domain/model"
)

// searchRequest — тело запроса поиска файлов.
type searchRequest struct {
	VaultID   string         `json:"vault_id"`
	Query     string         `json:"query,omitempty"`
	Filters   *searchFilters `json:"filters,omitempty"`
	Page      *int           `json:"page,omitempty"`
	PageSize  *int           `json:"page_size,omitempty"`
	SortBy    *string        `json:"sort_by,omitempty"`
	SortOrder *string        `json:"sort_order,omitempty"`
}

// searchFilters — фильтры поиска в теле запроса.
type searchFilters struct {
	FolderID      *string           `json:"folder_id,omitempty"`
	Extension     *string           `json:"extension,omitempty"`
	MimeType      *string           `json:"mime_type,omitempty"`
	OwnerID       *string           `json:"owner_id,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	MinSize       *int64            `json:"min_size,omitempty"`
	MaxSize       *int64            `json:"max_size,omitempty"`
	CreatedAfter  *time.Time        `json:"created_after,omitempty"`
	CreatedBefore *time.Time        `json:"created_before,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// searchResponse — тело ответа поиска файлов.
type searchResponse struct {
	Files    []fileResponse   `json:"files"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	HasMore  bool             `json:"has_more"`
	Facets   model.FileFacets `json:"facets"`
	TookMs   int64            `json:"took_ms"`
}

// SearchFiles — реализация POST /api/v1/files/search.
func (h *APIHandler) SearchFiles(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	if err := validateSearchRequest(&req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	params := searchRequestToParams(&req)

	result, err := h.loader.LoadPage(r.Context(), params)
	if err != nil {
		h.logger.Error("Ошибка загрузки страницы файлов",
			slog.String("vault_id", req.VaultID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при поиске файлов")
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Files:    fileRecordsToResponses(result.Files),
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
		HasMore:  result.HasMore,
		Facets:   result.Facets,
		TookMs:   result.TookMs,
	})
}

// validateSearchRequest проверяет корректность параметров поиска.
func validateSearchRequest(req *searchRequest) error {
	if req.VaultID == "" {
		return errors.New("vault_id обязателен")
	}
	if req.Page != nil && *req.Page < 0 {
		return errors.New("page не может быть отрицательным")
	}
	if req.PageSize != nil && *req.PageSize < 1 {
		return errors.New("page_size должен быть не меньше 1")
	}
	if req.SortOrder != nil && *req.SortOrder != "asc" && *req.SortOrder != "desc" {
		return errors.New("sort_order должен быть asc или desc")
	}

	if f := req.Filters; f != nil {
		if f.MinSize != nil && *f.MinSize < 0 {
			return errors.New("min_size не может быть отрицательным")
		}
		if f.MaxSize != nil && *f.MaxSize < 0 {
			return errors.New("max_size не может быть отрицательным")
		}
		if f.MinSize != nil && f.MaxSize != nil && *f.MinSize > *f.MaxSize {
			return errors.New("min_size не может быть больше max_size")
		}
		if f.CreatedAfter != nil && f.CreatedBefore != nil && f.CreatedAfter.After(*f.CreatedBefore) {
			return errors.New("created_after не может быть позже created_before")
		}
	}

	return nil
}

// searchRequestToParams строит доменные параметры поиска из тела запроса.
func searchRequestToParams(req *searchRequest) model.FileSearchParams {
	params := model.FileSearchParams{
		VaultID: req.VaultID,
		Query:   req.Query,
	}
	if req.Page != nil {
		params.Page = *req.Page
	}
	if req.PageSize != nil {
		params.PageSize = *req.PageSize
	}
	if req.SortBy != nil {
		order := "asc"
		if req.SortOrder != nil {
			order = *req.SortOrder
		}
		params.Sort = &model.SortSpec{Field: *req.SortBy, Order: order}
	}

	if f := req.Filters; f != nil {
		params.Filters = model.FileFilters{
			FolderID:      f.FolderID,
			Extension:     f.Extension,
			MimeType:      f.MimeType,
			OwnerID:       f.OwnerID,
			Tags:          f.Tags,
			MinSize:       f.MinSize,
			MaxSize:       f.MaxSize,
			CreatedAfter:  f.CreatedAfter,
			CreatedBefore: f.CreatedBefore,
			Metadata:      f.Metadata,
		}
	}

	return params
}

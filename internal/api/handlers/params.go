// params.go — привязка параметров пути и query-строки через oapi-codegen runtime
// в стиле сгенерированных chi-обёрток.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/bigkaa/intake-portal/internal/service"
)

// errInvalidParam — параметр запроса не разобран.
var errInvalidParam = errors.New("некорректный параметр запроса")

// FormID — ID анкеты из пути.
type FormID = int64

// ListParams — параметры списка анкет кандидата.
type ListParams struct {
	Page *int `form:"page,omitempty" json:"page,omitempty"`
}

// AdminListParams — параметры административного списка и экспорта.
type AdminListParams struct {
	Page      *int    `form:"page,omitempty" json:"page,omitempty"`
	UserID    *int64  `form:"user_id,omitempty" json:"user_id,omitempty"`
	Position  *string `form:"position,omitempty" json:"position,omitempty"`
	Education *string `form:"education,omitempty" json:"education,omitempty"`
}

// bindFormID разбирает {id} из пути. Нечисловой или неположительный ID — ошибка.
func bindFormID(r *http.Request) (FormID, error) {
	var id FormID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return 0, fmt.Errorf("%w: id: %w", errInvalidParam, err) //nolint:errorlint // намеренный двойной wrap
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: id: %d", errInvalidParam, id)
	}
	return id, nil
}

// bindListParams разбирает параметры списка кандидата.
func bindListParams(r *http.Request) (ListParams, error) {
	var params ListParams
	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &params.Page); err != nil {
		return params, fmt.Errorf("%w: page: %w", errInvalidParam, err) //nolint:errorlint // намеренный двойной wrap
	}
	return params, nil
}

// bindAdminListParams разбирает фильтры и страницу административного списка.
func bindAdminListParams(r *http.Request) (AdminListParams, error) {
	var params AdminListParams
	query := nonEmptyQuery(r)

	if err := runtime.BindQueryParameter("form", true, false, "page", query, &params.Page); err != nil {
		return params, fmt.Errorf("%w: page: %w", errInvalidParam, err) //nolint:errorlint // намеренный двойной wrap
	}
	if err := runtime.BindQueryParameter("form", true, false, "user_id", query, &params.UserID); err != nil {
		return params, fmt.Errorf("%w: user_id: %w", errInvalidParam, err) //nolint:errorlint // намеренный двойной wrap
	}
	if err := runtime.BindQueryParameter("form", true, false, "position", query, &params.Position); err != nil {
		return params, fmt.Errorf("%w: position: %w", errInvalidParam, err) //nolint:errorlint // намеренный двойной wrap
	}
	if err := runtime.BindQueryParameter("form", true, false, "education", query, &params.Education); err != nil {
		return params, fmt.Errorf("%w: education: %w", errInvalidParam, err) //nolint:errorlint // намеренный двойной wrap
	}
	return params, nil
}

// nonEmptyQuery возвращает query-параметры без пустых значений:
// форма фильтров отправляет "user_id=" для варианта «все».
func nonEmptyQuery(r *http.Request) url.Values {
	query := r.URL.Query()
	for key, values := range query {
		if len(values) == 1 && strings.TrimSpace(values[0]) == "" {
			delete(query, key)
		}
	}
	return query
}

// pageOf возвращает номер страницы, 1 по умолчанию.
func pageOf(p *int) int {
	if p == nil {
		return 1
	}
	return *p
}

// filters переводит параметры в фильтры сервиса.
// Пустой фильтр из формы (user_id= или position=) не применяется.
func (p AdminListParams) filters() service.ReviewFilters {
	f := service.ReviewFilters{UserID: p.UserID}
	if p.Position != nil {
		f.Position = strings.TrimSpace(*p.Position)
	}
	if p.Education != nil {
		f.Education = strings.TrimSpace(*p.Education)
	}
	return f
}

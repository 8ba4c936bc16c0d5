// Package list реализует HTTP-обработчик выборки пользователей.
//
// Параметры строки запроса передаются сервису как есть: фильтр вида
// field=value и field[gte]=value, sort=a,-b, fields=a,b и page/limit.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/user-service/internal/http/response"
)

// Response страница пользователей без общего количества.
type Response struct {
	Users []map[string]any `json:"users"`
}

// Handler обрабатывает запросы на получение списка пользователей.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает выборку пользователей по параметрам запроса.
type Service interface {
	List(ctx context.Context, params url.Values) ([]map[string]any, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список пользователей
// @Description Только для роли admin. Поддерживает фильтрацию, сортировку, выбор полей и пагинацию.
// @Tags Users
// @Produce  json
// @Param role query string false "Фильтр по роли"
// @Param sort query string false "Поля сортировки, например -createdAt,name"
// @Param fields query string false "Поля ответа, например name,email"
// @Param page query int false "Номер страницы" default(1)
// @Param limit query int false "Размер страницы" default(10)
// @Success 200 {object} Response
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /user [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	users, err := h.service.List(r.Context(), r.URL.Query())
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if users == nil {
		users = []map[string]any{}
	}

	log.Info("users listed", slog.Int("count", len(users)))
	response.JSON(w, r, http.StatusOK, Response{Users: users})
}

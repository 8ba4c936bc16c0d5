// Package update реализует изменение имени и email пользователя.
//
// Пароль через этот маршрут не меняется: тело с ключом "password"
// отклоняется независимо от значения.
package update

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/user-service/internal/http/handlers/user/read"
	"github.com/magabrotheeeer/user-service/internal/http/response"
	"github.com/magabrotheeeer/user-service/internal/lib/apperr"
	"github.com/magabrotheeeer/user-service/internal/models"
)

// MsgNoPasswordUpdates ответ на попытку сменить пароль.
const MsgNoPasswordUpdates = "This route is not for password updates"

// Request изменяемые поля. Отсутствующее поле не меняется.
type Request struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// Handler обрабатывает изменение профиля.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает изменение профиля.
type Service interface {
	Update(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Изменить пользователя
// @Description Меняет имя и/или email. Для пароля есть отдельные маршруты.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param id path string true "ID пользователя"
// @Param request body Request true "Изменяемые поля"
// @Success 200 {object} read.UserResponse
// @Failure 400 {object} response.ErrorResponse "Некорректные данные или email занят"
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /user/{id} [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.update"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	// Тело читается дважды: сначала ищется ключ password, затем поля профиля.
	var buf bytes.Buffer
	var keys map[string]json.RawMessage
	if err := response.DecodeJSON(io.TeeReader(r.Body, &buf), &keys); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if _, ok := keys["password"]; ok {
		response.Fail(w, r, log, apperr.BadRequest(MsgNoPasswordUpdates))
		return
	}

	var req Request
	if err := response.DecodeJSON(&buf, &req); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		response.Fail(w, r, log, apperr.NotFound("User not found").Wrap(err))
		return
	}

	user, err := h.service.Update(r.Context(), id, models.ProfileUpdate{Name: req.Name, Email: req.Email})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("user updated", slog.String("user_id", id))
	response.JSON(w, r, http.StatusOK, read.UserResponse{User: user})
}

// Package updatepassword реализует смену пароля вошедшим пользователем.
package updatepassword

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/user-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/user-service/internal/http/response"
	"github.com/magabrotheeeer/user-service/internal/lib/apperr"
)

// MsgSuccess ответ после смены пароля.
const MsgSuccess = "Password update successful"

// Request текущий и новый пароль.
type Request struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// Handler обрабатывает смену пароля.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает смену пароля.
type Service interface {
	UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Смена пароля
// @Description Проверяет текущий пароль и устанавливает новый. Ранее выданные токены перестают действовать.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Пароли"
// @Success 200 {object} response.MessageResponse
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Нет сессии или неверный пароль"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /user/auth/updatePassword [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.updatepassword"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		response.Fail(w, r, log, apperr.Unauthorized("You are not logged in"))
		return
	}

	var req Request
	if err := response.Decode(r, h.validate, &req); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	if err := h.service.UpdatePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("password updated", slog.String("user_id", user.ID))
	response.Message(w, r, http.StatusOK, MsgSuccess)
}

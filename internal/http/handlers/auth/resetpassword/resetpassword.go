// Package resetpassword реализует установку нового пароля по токену из письма.
package resetpassword

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/user-service/internal/http/response"
)

// MsgSuccess ответ после смены пароля.
const MsgSuccess = "Password reset successful"

// Request новый пароль.
type Request struct {
	Password string `json:"password" validate:"required"`
}

// Handler обрабатывает сброс пароля.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает сброс пароля по токену.
type Service interface {
	ResetPassword(ctx context.Context, token, newPassword string) error
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
// @Summary Сброс пароля
// @Description Устанавливает новый пароль, если токен существует и не просрочен.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param token path string true "Токен из письма"
// @Param request body Request true "Новый пароль"
// @Success 200 {object} response.MessageResponse
// @Failure 400 {object} response.ErrorResponse "Токен недействителен или истек"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /user/auth/resetPassword/{token} [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.resetpassword"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := response.Decode(r, h.validate, &req); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("password reset")
	response.Message(w, r, http.StatusOK, MsgSuccess)
}

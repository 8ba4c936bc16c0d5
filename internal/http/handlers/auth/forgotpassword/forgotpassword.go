// Package forgotpassword реализует запрос на сброс пароля: сервис выпускает
// одноразовый токен и отправляет ссылку на почту пользователя.
package forgotpassword

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/user-service/internal/http/response"
)

// MsgSuccess ответ после отправки письма.
const MsgSuccess = "Token sent to email"

// Request адрес, на который отправляется ссылка.
type Request struct {
	Email string `json:"email" validate:"required"`
}

// Response тело успешного ответа. TokenForTest заполняется только
// при включенном password_reset.expose_token.
type Response struct {
	Message      string `json:"message" example:"Token sent to email"`
	TokenForTest string `json:"token_for_test,omitempty"`
}

// Handler обрабатывает запросы на сброс пароля.
type Handler struct {
	log         *slog.Logger
	service     Service
	exposeToken bool
	validate    *validator.Validate
}

// Service описывает выпуск токена сброса.
type Service interface {
	ForgotPassword(ctx context.Context, email string) (string, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service, exposeToken bool) *Handler {
	return &Handler{
		log:         log,
		service:     service,
		exposeToken: exposeToken,
		validate:    validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Запрос сброса пароля
// @Description Отправляет на почту ссылку со сроком действия 10 минут.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Email пользователя"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка отправки письма"
// @Router /user/auth/forgotPassword [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.forgotpassword"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := response.Decode(r, h.validate, &req); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	token, err := h.service.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	resp := Response{Message: MsgSuccess}
	if h.exposeToken {
		resp.TokenForTest = token
	}

	log.Info("password reset token sent")
	response.JSON(w, r, http.StatusOK, resp)
}

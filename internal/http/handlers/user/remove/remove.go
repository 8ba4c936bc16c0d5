// Package remove реализует мягкое удаление пользователя по ID.
package remove

import (
	"context"
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

// Handler обрабатывает удаление пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает мягкое удаление.
type Service interface {
	Delete(ctx context.Context, id string) (*models.User, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить пользователя
// @Description Помечает пользователя удаленным. Запись остается в базе, но больше не читается.
// @Tags Users
// @Produce  json
// @Param id path string true "ID пользователя"
// @Success 200 {object} read.UserResponse
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /user/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.remove"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		response.Fail(w, r, log, apperr.NotFound("User not found").Wrap(err))
		return
	}

	user, err := h.service.Delete(r.Context(), id)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("user deleted", slog.String("user_id", id))
	response.JSON(w, r, http.StatusOK, read.UserResponse{User: user})
}

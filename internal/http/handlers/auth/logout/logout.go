// Package logout реализует выход пользователя: cookie сессии заменяется
// просроченной. Выданный ранее токен не отзывается.
package logout

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/user-service/internal/config"
	"github.com/magabrotheeeer/user-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/user-service/internal/http/response"
)

// MsgSuccess ответ на выход.
const MsgSuccess = "Logout successful"

// Handler обрабатывает выход пользователя.
type Handler struct {
	log    *slog.Logger
	cookie config.Cookie
}

// New создает новый Handler.
func New(log *slog.Logger, cookie config.Cookie) *Handler {
	return &Handler{
		log:    log,
		cookie: cookie,
	}
}

// ServeHTTP godoc
// @Summary Выход пользователя
// @Description Удаляет cookie token.
// @Tags Auth
// @Produce  json
// @Success 200 {object} response.MessageResponse
// @Router /user/auth/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	http.SetCookie(w, &http.Cookie{
		Name:     middlewarectx.TokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info("logout")
	response.Message(w, r, http.StatusOK, MsgSuccess)
}

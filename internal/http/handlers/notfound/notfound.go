// Package notfound отвечает на запросы к несуществующим маршрутам.
package notfound

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/user-service/internal/http/response"
	"github.com/magabrotheeeer/user-service/internal/lib/apperr"
)

// Handler отдает 404 с исходным путем запроса.
type Handler struct {
	log *slog.Logger
}

// New создает новый Handler.
func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	msg := fmt.Sprintf("Can't find %s on this server!", r.URL.RequestURI())
	response.Fail(w, r, h.log, apperr.NotFound(msg))
}

package userservice

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	// Регистрация swagger-документации.
	_ "github.com/magabrotheeeer/user-service/docs"
	"github.com/magabrotheeeer/user-service/internal/config"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/auth/forgotpassword"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/auth/resetpassword"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/auth/signup"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/auth/updatepassword"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/health"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/notfound"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/user/list"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/user/me"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/user/read"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/user/remove"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/user/update"
	"github.com/magabrotheeeer/user-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/user-service/internal/metrics"
	"github.com/magabrotheeeer/user-service/internal/models"
	authservice "github.com/magabrotheeeer/user-service/internal/services/auth"
	usersservice "github.com/magabrotheeeer/user-service/internal/services/users"
)

// Deps зависимости, нужные маршрутам.
type Deps struct {
	Auth    *authservice.AuthService
	Users   *usersservice.UsersService
	DB      health.Pinger
	Metrics *metrics.HTTP
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, deps Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middlewarectx.Logger(logger),
		deps.Metrics.Middleware,
		middlewarectx.Recoverer(logger),
		middlewarectx.SecureHeaders,
		middlewarectx.BodyLimit(cfg.BodyLimit),
	)

	// Обработчик неизвестных маршрутов наследуется вложенными роутерами,
	// поэтому задается до их монтирования.
	notFound := notfound.New(logger)
	r.NotFound(notFound.ServeHTTP)
	r.MethodNotAllowed(notFound.ServeHTTP)

	protect := middlewarectx.Protect(deps.Auth, logger)

	r.Route("/api/user", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/signup", signup.New(logger, deps.Auth).ServeHTTP)
		r.Post("/auth/login", login.New(logger, deps.Auth, cfg.Cookie).ServeHTTP)
		r.Post("/auth/logout", logout.New(logger, cfg.Cookie).ServeHTTP)
		r.Post("/auth/forgotPassword", forgotpassword.New(logger, deps.Auth, cfg.PasswordReset.ExposeToken).ServeHTTP)
		r.Patch("/auth/resetPassword/{token}", resetpassword.New(logger, deps.Auth).ServeHTTP)

		// Группа с проверкой сессии
		r.Group(func(r chi.Router) {
			r.Use(protect)
			r.Patch("/auth/updatePassword", updatepassword.New(logger, deps.Auth).ServeHTTP)
			r.Get("/getMe", me.New(logger).ServeHTTP)
			r.With(middlewarectx.RestrictTo(logger, models.RoleAdmin)).Get("/", list.New(logger, deps.Users).ServeHTTP)
			r.Get("/{id}", read.New(logger, deps.Users).ServeHTTP)
			r.Patch("/{id}", update.New(logger, deps.Users).ServeHTTP)
			r.Delete("/{id}", remove.New(logger, deps.Users).ServeHTTP)
		})
	})

	r.Get("/healthz", health.New(logger, deps.DB).ServeHTTP)
	r.Handle("/metrics", deps.Metrics.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

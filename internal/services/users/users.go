// Package users содержит бизнес-логику администрирования учетных записей:
// выборку списка, чтение, изменение профиля и мягкое удаление.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/magabrotheeeer/user-service/internal/lib/apperr"
	"github.com/magabrotheeeer/user-service/internal/lib/query"
	"github.com/magabrotheeeer/user-service/internal/lib/sl"
	"github.com/magabrotheeeer/user-service/internal/models"
	"github.com/magabrotheeeer/user-service/internal/storage"
)

// Сообщения ошибок, которые видит клиент.
const (
	MsgUserNotFound = "User not found"
	MsgUserExists   = "User already exists"
	MsgInvalidEmail = "Please provide a valid email"
	MsgNameRequired = "Please provide your name"
)

// UserRepository описывает контракт хранилища для операций администрирования.
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error)
	SoftDeleteUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, q query.Query) ([]map[string]any, error)
}

// UserCache кэш профилей пользователей.
type UserCache interface {
	GetUser(ctx context.Context, id string) (*models.User, bool, error)
	SetUser(ctx context.Context, u *models.User) error
	InvalidateUser(ctx context.Context, id string) error
}

// UsersService реализует операции над записями пользователей.
type UsersService struct {
	log   *slog.Logger
	repo  UserRepository
	cache UserCache
}

// NewUsersService создает новый экземпляр UsersService.
func NewUsersService(log *slog.Logger, repo UserRepository, cache UserCache) *UsersService {
	return &UsersService{
		log:   log,
		repo:  repo,
		cache: cache,
	}
}

// List возвращает страницу пользователей по параметрам строки запроса:
// фильтр, сортировка, проекция полей и пагинация.
func (s *UsersService) List(ctx context.Context, params url.Values) ([]map[string]any, error) {
	const op = "services.users.List"

	q := query.New(models.UserSchema, params).
		Filter().
		Sort().
		LimitFields().
		Paginate().
		Build()

	res, err := s.repo.ListUsers(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// Get возвращает пользователя по ID.
func (s *UsersService) Get(ctx context.Context, id string) (*models.User, error) {
	const op = "services.users.Get"

	if user, found, err := s.cache.GetUser(ctx, id); err != nil {
		s.log.Warn("user cache read failed", slog.String("user_id", id), sl.Err(err))
	} else if found {
		return user, nil
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, apperr.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.SetUser(ctx, user); err != nil {
		s.log.Warn("user cache write failed", slog.String("user_id", id), sl.Err(err))
	}
	return user, nil
}

// Update меняет имя и/или email. Пустое изменение возвращает текущую запись.
func (s *UsersService) Update(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	const op = "services.users.Update"

	if upd.Name != nil {
		name := models.NormalizeName(*upd.Name)
		if name == "" {
			return nil, apperr.BadRequest(MsgNameRequired)
		}
		upd.Name = &name
	}
	if upd.Email != nil {
		email := models.NormalizeEmail(*upd.Email)
		if !models.ValidEmail(email) {
			return nil, apperr.BadRequest(MsgInvalidEmail)
		}
		upd.Email = &email
	}

	if upd.Empty() {
		user, err := s.repo.GetUserByID(ctx, id)
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apperr.NotFound(MsgUserNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return user, nil
	}

	user, err := s.repo.UpdateProfile(ctx, id, upd)
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		return nil, apperr.NotFound(MsgUserNotFound)
	case errors.Is(err, storage.ErrUserExists):
		return nil, apperr.Conflict(MsgUserExists).Wrap(err)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, id)
	return user, nil
}

// Delete помечает пользователя удаленным. Запись остается в базе.
func (s *UsersService) Delete(ctx context.Context, id string) (*models.User, error) {
	const op = "services.users.Delete"

	user, err := s.repo.SoftDeleteUser(ctx, id)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, apperr.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, id)
	return user, nil
}

func (s *UsersService) invalidate(ctx context.Context, id string) {
	if err := s.cache.InvalidateUser(ctx, id); err != nil {
		s.log.Warn("user cache invalidation failed", slog.String("user_id", id), sl.Err(err))
	}
}
